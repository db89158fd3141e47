package checker_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/smokeprobe/internal/checker"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

const infoURL = "https://api.test/GetBritEdgeInfo"

func TestInfoCheck_Valid(t *testing.T) {
	f := &stubFetcher{responses: map[string]*checker.Response{
		infoURL: jsonResponse(http.StatusOK, `{"company":{"name":"BritEdge"},"stats":{"totalEmployees":120},"locations":[{"city":"Leeds"}]}`),
	}}
	results := runCheck(t, checker.NewInfoCheck(infoURL, f))

	require.Len(t, results, 1)
	assert.Equal(t, "GetBritEdgeInfo API", results[0].Name)
	assert.Equal(t, harness.StatusPass, results[0].Status)
	assert.Equal(t, "BritEdge: 120 employees, 1 locations", results[0].Message)
	assert.True(t, results[0].Data.IsNull())
}

func TestInfoCheck_MissingFieldAttachesPayload(t *testing.T) {
	f := &stubFetcher{responses: map[string]*checker.Response{
		infoURL: jsonResponse(http.StatusOK, `{"company":{"name":"BritEdge"},"locations":[{"city":"Leeds"}]}`),
	}}
	results := runCheck(t, checker.NewInfoCheck(infoURL, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Contains(t, results[0].Message, "stats.totalEmployees")
	received := results[0].Data.GetByKey("received")
	assert.Equal(t, "BritEdge", received.GetByKey("company").GetByKey("name").StringValue())
	assert.Equal(t, 1, results[0].Data.GetByKey("problems").Count())
}

func TestInfoCheck_WrongStatus(t *testing.T) {
	f := &stubFetcher{responses: map[string]*checker.Response{
		infoURL: jsonResponse(http.StatusInternalServerError, `{}`),
	}}
	results := runCheck(t, checker.NewInfoCheck(infoURL, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Equal(t, "expected status 200, got 500", results[0].Message)
}

func TestInfoCheck_NetworkErrorIsRecorded(t *testing.T) {
	f := &stubFetcher{errs: map[string]error{infoURL: errors.New("connection refused")}}
	results := runCheck(t, checker.NewInfoCheck(infoURL, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Equal(t, "Error: connection refused", results[0].Message)
}

func TestInfoCheck_MalformedJSON(t *testing.T) {
	f := &stubFetcher{responses: map[string]*checker.Response{
		infoURL: jsonResponse(http.StatusOK, `<!doctype html>`),
	}}
	results := runCheck(t, checker.NewInfoCheck(infoURL, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Contains(t, results[0].Message, "parsing JSON")
}

func TestTestimonialsCheck(t *testing.T) {
	url := "https://api.test/GetTestimonials"
	f := &stubFetcher{responses: map[string]*checker.Response{
		url: jsonResponse(http.StatusOK, `{"testimonials":[{"client":"Acme","rating":5},{"client":"Beta","rating":4}]}`),
	}}
	results := runCheck(t, checker.NewTestimonialsCheck(url, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusPass, results[0].Status)
	assert.Equal(t, "2 testimonials loaded", results[0].Message)
}

func TestTestimonialsCheck_EmptyList(t *testing.T) {
	url := "https://api.test/GetTestimonials"
	f := &stubFetcher{responses: map[string]*checker.Response{
		url: jsonResponse(http.StatusOK, `{"testimonials":[]}`),
	}}
	results := runCheck(t, checker.NewTestimonialsCheck(url, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
}

func TestCustomersCheck(t *testing.T) {
	url := "https://api.test/GetCustomers"
	f := &stubFetcher{responses: map[string]*checker.Response{
		url: jsonResponse(http.StatusOK, `{"customers":[{"customerId":1,"companyName":"Acme"}]}`),
	}}
	results := runCheck(t, checker.NewCustomersCheck(url, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusPass, results[0].Status)
	assert.Equal(t, "1 customers loaded", results[0].Message)
}
