package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/hazz-dev/smokeprobe/internal/contract"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

// endpointCheck fetches one API resource and validates its payload.
type endpointCheck[T any] struct {
	name     string
	url      string
	schema   contract.Schema
	describe func(T) string
	fetcher  Fetcher
}

// NewInfoCheck checks GetBritEdgeInfo.
func NewInfoCheck(url string, f Fetcher) harness.Check {
	return &endpointCheck[contract.Info]{
		name:   "GetBritEdgeInfo API",
		url:    url,
		schema: contract.InfoSchema,
		describe: func(p contract.Info) string {
			return fmt.Sprintf("%s: %.0f employees, %d locations",
				p.Company.Name, p.Stats.TotalEmployees, len(p.Locations))
		},
		fetcher: f,
	}
}

// NewTestimonialsCheck checks GetTestimonials.
func NewTestimonialsCheck(url string, f Fetcher) harness.Check {
	return &endpointCheck[contract.Testimonials]{
		name:   "GetTestimonials API",
		url:    url,
		schema: contract.TestimonialsSchema,
		describe: func(p contract.Testimonials) string {
			return fmt.Sprintf("%d testimonials loaded", len(p.Testimonials))
		},
		fetcher: f,
	}
}

// NewCustomersCheck checks GetCustomers.
func NewCustomersCheck(url string, f Fetcher) harness.Check {
	return &endpointCheck[contract.Customers]{
		name:   "GetCustomers API",
		url:    url,
		schema: contract.CustomersSchema,
		describe: func(p contract.Customers) string {
			return fmt.Sprintf("%d customers loaded", len(p.Customers))
		},
		fetcher: f,
	}
}

func (c *endpointCheck[T]) Name() string { return c.name }

func (c *endpointCheck[T]) Run(ctx context.Context, rec harness.Recorder) {
	resp, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		rec.Record(c.name, false, "Error: "+err.Error(), ldvalue.Null())
		return
	}
	if resp.StatusCode != http.StatusOK {
		rec.Record(c.name, false, fmt.Sprintf("expected status 200, got %d", resp.StatusCode), ldvalue.Null())
		return
	}

	payload, received, err := contract.Decode[T](resp.Body, c.schema)
	var verr *contract.ValidationError
	switch {
	case errors.As(err, &verr):
		rec.Record(c.name, false, "Invalid response structure: "+verr.Error(),
			ldvalue.ObjectBuild().
				Set("problems", verr.AsValue()).
				Set("received", received).
				Build())
	case err != nil:
		rec.Record(c.name, false, "Error: "+err.Error(), ldvalue.Null())
	default:
		rec.Record(c.name, true, c.describe(payload), ldvalue.Null())
	}
}
