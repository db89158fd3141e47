package checker

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/hazz-dev/smokeprobe/internal/harness"
)

type responseTimeCheck struct {
	targets   []Endpoint
	threshold time.Duration
	fetcher   Fetcher
}

// NewResponseTimeCheck records one result per target: PASS when the
// response arrives in under threshold.
func NewResponseTimeCheck(targets []Endpoint, threshold time.Duration, f Fetcher) harness.Check {
	return &responseTimeCheck{targets: targets, threshold: threshold, fetcher: f}
}

func (c *responseTimeCheck) Name() string { return "Response Time" }

func (c *responseTimeCheck) Run(ctx context.Context, rec harness.Recorder) {
	for _, t := range c.targets {
		name := "Response Time: " + t.Name
		resp, err := c.fetcher.Fetch(ctx, t.URL)
		if err != nil {
			rec.Record(name, false, "Error: "+err.Error(), ldvalue.Null())
			continue
		}
		rec.Record(name, resp.Elapsed < c.threshold,
			fmt.Sprintf("%dms (threshold %dms)", resp.Elapsed.Milliseconds(), c.threshold.Milliseconds()),
			ldvalue.Null())
	}
}
