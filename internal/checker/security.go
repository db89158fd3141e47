package checker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

// HeaderMismatch describes an expected header that did not match.
type HeaderMismatch struct {
	Name     string
	Expected string
	Match    string
	Actual   string
}

// MatchHeaders counts how many expectations h satisfies.
func MatchHeaders(h http.Header, expected []config.HeaderExpectation) (int, []HeaderMismatch) {
	matched := 0
	var mismatches []HeaderMismatch
	for _, e := range expected {
		actual := h.Get(e.Name)
		var ok bool
		if e.Match == config.MatchContains {
			ok = actual != "" && strings.Contains(actual, e.Value)
		} else {
			ok = actual == e.Value
		}
		if ok {
			matched++
			continue
		}
		mismatches = append(mismatches, HeaderMismatch{Name: e.Name, Expected: e.Value, Match: e.Match, Actual: actual})
	}
	return matched, mismatches
}

type securityHeadersCheck struct {
	url      string
	expected []config.HeaderExpectation
	fetcher  Fetcher
}

// NewSecurityHeadersCheck fetches the website and compares its headers.
func NewSecurityHeadersCheck(url string, expected []config.HeaderExpectation, f Fetcher) harness.Check {
	return &securityHeadersCheck{url: url, expected: expected, fetcher: f}
}

func (c *securityHeadersCheck) Name() string { return "Security Headers" }

func (c *securityHeadersCheck) Run(ctx context.Context, rec harness.Recorder) {
	resp, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		rec.Record(c.Name(), false, "Error: "+err.Error(), ldvalue.Null())
		return
	}

	matched, mismatches := MatchHeaders(resp.Header, c.expected)
	total := len(c.expected)
	msg := fmt.Sprintf("%d/%d security headers present", matched, total)

	data := ldvalue.Null()
	if len(mismatches) > 0 {
		obj := ldvalue.ObjectBuild()
		for _, m := range mismatches {
			obj.Set(m.Name, ldvalue.ObjectBuild().
				Set("expected", ldvalue.String(m.Expected)).
				Set("match", ldvalue.String(m.Match)).
				Set("actual", ldvalue.String(m.Actual)).
				Build())
		}
		data = obj.Build()
	}
	rec.Record(c.Name(), matched == total, msg, data)
}

type httpsCheck struct {
	websiteURL string
}

// NewHTTPSCheck verifies the configured website URL uses https. It makes no
// network call.
func NewHTTPSCheck(websiteURL string) harness.Check {
	return &httpsCheck{websiteURL: websiteURL}
}

func (c *httpsCheck) Name() string { return "HTTPS Enforcement" }

func (c *httpsCheck) Run(_ context.Context, rec harness.Recorder) {
	if strings.HasPrefix(c.websiteURL, "https://") {
		rec.Record(c.Name(), true, "website URL uses HTTPS", ldvalue.Null())
		return
	}
	rec.Record(c.Name(), false, "website URL is not HTTPS: "+c.websiteURL, ldvalue.Null())
}

type corsCheck struct {
	url     string
	origin  string
	fetcher Fetcher
}

// NewCORSCheck fetches an API endpoint and requires
// Access-Control-Allow-Origin to be "*" or origin.
func NewCORSCheck(url, origin string, f Fetcher) harness.Check {
	return &corsCheck{url: url, origin: origin, fetcher: f}
}

func (c *corsCheck) Name() string { return "CORS Configuration" }

func (c *corsCheck) Run(ctx context.Context, rec harness.Recorder) {
	resp, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		rec.Record(c.Name(), false, "Error: "+err.Error(), ldvalue.Null())
		return
	}
	got := resp.Header.Get("Access-Control-Allow-Origin")
	if got == "*" || got == c.origin {
		rec.Record(c.Name(), true, fmt.Sprintf("Access-Control-Allow-Origin: %s", got), ldvalue.Null())
		return
	}
	if got == "" {
		got = "(missing)"
	}
	rec.Record(c.Name(), false,
		fmt.Sprintf("Access-Control-Allow-Origin is %s, want * or %s", got, c.origin), ldvalue.Null())
}
