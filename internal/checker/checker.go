package checker

import (
	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/contract"
	"github.com/hazz-dev/smokeprobe/internal/harness"
)

// Group titles, in run order.
const (
	GroupAPI           = "API"
	GroupSecurity      = "Security"
	GroupPerformance   = "Performance"
	GroupFunctionality = "Functionality"
)

// Endpoint is a named API resource URL.
type Endpoint struct {
	Name string
	URL  string
}

// Endpoints resolves endpoint names against the configured API base URL.
func Endpoints(cfg *config.Config, names []string) []Endpoint {
	targets := make([]Endpoint, len(names))
	for i, n := range names {
		targets[i] = Endpoint{Name: n, URL: cfg.EndpointURL(n)}
	}
	return targets
}

// Suite returns the fixed check sequence for cfg: API payload checks, then
// security, performance and functionality checks.
func Suite(cfg *config.Config, f Fetcher) []harness.Group {
	return []harness.Group{
		{Title: GroupAPI, Checks: []harness.Check{
			NewInfoCheck(cfg.EndpointURL("GetBritEdgeInfo"), f),
			NewTestimonialsCheck(cfg.EndpointURL("GetTestimonials"), f),
			NewCustomersCheck(cfg.EndpointURL("GetCustomers"), f),
		}},
		{Title: GroupSecurity, Checks: []harness.Check{
			NewSecurityHeadersCheck(cfg.Target.WebsiteURL, cfg.Checks.SecurityHeaders, f),
			NewHTTPSCheck(cfg.Target.WebsiteURL),
			NewCORSCheck(cfg.EndpointURL(cfg.Checks.CORSEndpoint), cfg.WebsiteOrigin(), f),
		}},
		{Title: GroupPerformance, Checks: []harness.Check{
			NewResponseTimeCheck(Endpoints(cfg, cfg.Checks.Endpoints), cfg.Checks.LatencyThreshold.Duration, f),
		}},
		{Title: GroupFunctionality, Checks: []harness.Check{
			NewWebsiteContentCheck(cfg.Target.WebsiteURL, cfg.Checks.ContentMarkers, f),
			NewJSONValidityCheck(Endpoints(cfg, cfg.Checks.Endpoints), f),
		}},
	}
}

// compile-time interface checks
var (
	_ harness.Check = (*endpointCheck[contract.Info])(nil)
	_ harness.Check = (*securityHeadersCheck)(nil)
	_ harness.Check = (*httpsCheck)(nil)
	_ harness.Check = (*corsCheck)(nil)
	_ harness.Check = (*responseTimeCheck)(nil)
	_ harness.Check = (*websiteContentCheck)(nil)
	_ harness.Check = (*jsonValidityCheck)(nil)
)
