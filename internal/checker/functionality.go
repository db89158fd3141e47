package checker

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/contract"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

type websiteContentCheck struct {
	url     string
	markers []config.ContentMarker
	fetcher Fetcher
}

// NewWebsiteContentCheck scores the home page one point per marker whose
// substrings are all present.
func NewWebsiteContentCheck(url string, markers []config.ContentMarker, f Fetcher) harness.Check {
	return &websiteContentCheck{url: url, markers: markers, fetcher: f}
}

func (c *websiteContentCheck) Name() string { return "Website Content" }

func (c *websiteContentCheck) Run(ctx context.Context, rec harness.Recorder) {
	resp, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		rec.Record(c.Name(), false, "Error: "+err.Error(), ldvalue.Null())
		return
	}

	html := string(resp.Body)
	score := 0
	missing := ldvalue.ObjectBuild()
	anyMissing := false
	for _, m := range c.markers {
		var absent []ldvalue.Value
		for _, s := range m.Contains {
			if !strings.Contains(html, s) {
				absent = append(absent, ldvalue.String(s))
			}
		}
		if len(absent) == 0 {
			score++
			continue
		}
		anyMissing = true
		missing.Set(m.Name, ldvalue.ArrayOf(absent...))
	}

	data := ldvalue.Null()
	if anyMissing {
		data = ldvalue.ObjectBuild().Set("missing", missing.Build()).Build()
	}
	rec.Record(c.Name(), score == len(c.markers),
		fmt.Sprintf("content score %d/%d", score, len(c.markers)), data)
}

type jsonValidityCheck struct {
	targets []Endpoint
	fetcher Fetcher
}

// NewJSONValidityCheck counts targets whose body parses to a JSON object.
// Fetch and parse errors only lower the count.
func NewJSONValidityCheck(targets []Endpoint, f Fetcher) harness.Check {
	return &jsonValidityCheck{targets: targets, fetcher: f}
}

func (c *jsonValidityCheck) Name() string { return "JSON Validity" }

func (c *jsonValidityCheck) Run(ctx context.Context, rec harness.Recorder) {
	valid := 0
	var invalid []ldvalue.Value
	for _, t := range c.targets {
		if c.isObject(ctx, t.URL) {
			valid++
			continue
		}
		invalid = append(invalid, ldvalue.String(t.Name))
	}

	data := ldvalue.Null()
	if len(invalid) > 0 {
		data = ldvalue.ObjectBuild().Set("invalid", ldvalue.ArrayOf(invalid...)).Build()
	}
	rec.Record(c.Name(), valid == len(c.targets),
		fmt.Sprintf("%d/%d endpoints returned valid JSON", valid, len(c.targets)), data)
}

func (c *jsonValidityCheck) isObject(ctx context.Context, url string) bool {
	resp, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return false
	}
	v, err := contract.Parse(resp.Body)
	if err != nil {
		return false
	}
	return v.Type() == ldvalue.ObjectType
}
