package checker_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/smokeprobe/internal/checker"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

func timedResponse(elapsed time.Duration) *checker.Response {
	r := jsonResponse(http.StatusOK, `{}`)
	r.Elapsed = elapsed
	return r
}

func TestResponseTime_SlowEndpointFailsIndependently(t *testing.T) {
	targets := []checker.Endpoint{
		{Name: "GetBritEdgeInfo", URL: "https://api.test/GetBritEdgeInfo"},
		{Name: "GetTestimonials", URL: "https://api.test/GetTestimonials"},
		{Name: "GetCustomers", URL: "https://api.test/GetCustomers"},
	}
	f := &stubFetcher{responses: map[string]*checker.Response{
		targets[0].URL: timedResponse(150 * time.Millisecond),
		targets[1].URL: timedResponse(2500 * time.Millisecond),
		targets[2].URL: timedResponse(1999 * time.Millisecond),
	}}

	results := runCheck(t, checker.NewResponseTimeCheck(targets, 2000*time.Millisecond, f))

	require.Len(t, results, 3)
	assert.Equal(t, "Response Time: GetBritEdgeInfo", results[0].Name)
	assert.Equal(t, harness.StatusPass, results[0].Status)
	assert.Equal(t, "Response Time: GetTestimonials", results[1].Name)
	assert.Equal(t, harness.StatusFail, results[1].Status)
	assert.Equal(t, "2500ms (threshold 2000ms)", results[1].Message)
	assert.Equal(t, harness.StatusPass, results[2].Status)
}

func TestResponseTime_ErrorDoesNotStopLoop(t *testing.T) {
	targets := []checker.Endpoint{
		{Name: "a", URL: "https://api.test/a"},
		{Name: "b", URL: "https://api.test/b"},
	}
	f := &stubFetcher{
		errs:      map[string]error{targets[0].URL: errors.New("timeout")},
		responses: map[string]*checker.Response{targets[1].URL: timedResponse(time.Millisecond)},
	}

	results := runCheck(t, checker.NewResponseTimeCheck(targets, time.Second, f))

	require.Len(t, results, 2)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Equal(t, "Error: timeout", results[0].Message)
	assert.Equal(t, harness.StatusPass, results[1].Status)
	assert.Equal(t, []string{targets[0].URL, targets[1].URL}, f.calls)
}

func TestResponseTime_ElapsedAtThresholdFails(t *testing.T) {
	targets := []checker.Endpoint{{Name: "GetCustomers", URL: "https://api.test/GetCustomers"}}
	f := &stubFetcher{responses: map[string]*checker.Response{
		targets[0].URL: timedResponse(2000 * time.Millisecond),
	}}

	results := runCheck(t, checker.NewResponseTimeCheck(targets, 2000*time.Millisecond, f))

	require.Len(t, results, 1)
	assert.Equal(t, harness.StatusFail, results[0].Status)
	assert.Equal(t, "2000ms (threshold 2000ms)", results[0].Message)
}
