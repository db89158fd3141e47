package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Header match modes.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
)

// HeaderExpectation is one security header the website must send.
type HeaderExpectation struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Match string `yaml:"match"`
}

// ContentMarker scores one point when every substring is present in the page.
type ContentMarker struct {
	Name     string   `yaml:"name"`
	Contains []string `yaml:"contains"`
}

// TargetConfig names the deployment under test.
type TargetConfig struct {
	APIBaseURL string   `yaml:"api_base_url"`
	WebsiteURL string   `yaml:"website_url"`
	Timeout    Duration `yaml:"timeout"`
}

// ChecksConfig tunes the check suite.
type ChecksConfig struct {
	LatencyThreshold Duration            `yaml:"latency_threshold"`
	Endpoints        []string            `yaml:"endpoints"`
	CORSEndpoint     string              `yaml:"cors_endpoint"`
	SecurityHeaders  []HeaderExpectation `yaml:"security_headers"`
	ContentMarkers   []ContentMarker     `yaml:"content_markers"`
}

// ScheduleConfig controls repeated runs in serve mode. Cron wins over Interval.
type ScheduleConfig struct {
	Interval Duration `yaml:"interval"`
	Cron     string   `yaml:"cron"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root application configuration.
type Config struct {
	Target   TargetConfig   `yaml:"target"`
	Checks   ChecksConfig   `yaml:"checks"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultEndpoints are the API resources the suite exercises.
var DefaultEndpoints = []string{"GetBritEdgeInfo", "GetTestimonials", "GetCustomers"}

// DefaultSecurityHeaders returns the header set expected from the website.
func DefaultSecurityHeaders() []HeaderExpectation {
	return []HeaderExpectation{
		{Name: "X-Frame-Options", Value: "DENY", Match: MatchExact},
		{Name: "X-Content-Type-Options", Value: "nosniff", Match: MatchExact},
		{Name: "X-XSS-Protection", Value: "1; mode=block", Match: MatchExact},
		{Name: "Strict-Transport-Security", Value: "max-age=", Match: MatchContains},
	}
}

// DefaultContentMarkers returns the substrings expected in the home page.
func DefaultContentMarkers() []ContentMarker {
	return []ContentMarker{
		{Name: "navigation", Contains: []string{"nav-link"}},
		{Name: "branding", Contains: []string{"BritEdge", "Manufacturing"}},
		{Name: "styling", Contains: []string{"tailwindcss"}},
	}
}

// Load reads, parses, and validates the config file at path. ${VAR}
// references are expanded and SMOKEPROBE_* environment variables override
// file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	env, err := readEnvOverrides()
	if err != nil {
		return nil, err
	}
	return parse([]byte(os.ExpandEnv(string(data))), env)
}

// Parse builds a validated Config from YAML. Unlike Load it ignores the
// process environment.
func Parse(data []byte) (*Config, error) {
	return parse(data, envOverrides{})
}

func parse(data []byte, env envOverrides) (*Config, error) {
	// Unmarshal into a raw intermediate to detect YAML parse errors vs duration errors.
	type rawTarget struct {
		APIBaseURL string `yaml:"api_base_url"`
		WebsiteURL string `yaml:"website_url"`
		Timeout    string `yaml:"timeout"`
	}
	type rawChecks struct {
		LatencyThreshold string              `yaml:"latency_threshold"`
		Endpoints        []string            `yaml:"endpoints"`
		CORSEndpoint     string              `yaml:"cors_endpoint"`
		SecurityHeaders  []HeaderExpectation `yaml:"security_headers"`
		ContentMarkers   []ContentMarker     `yaml:"content_markers"`
	}
	type rawSchedule struct {
		Interval string `yaml:"interval"`
		Cron     string `yaml:"cron"`
	}
	type rawWebhook struct {
		URL      string `yaml:"url"`
		Cooldown string `yaml:"cooldown"`
	}
	type rawConfig struct {
		Target   rawTarget   `yaml:"target"`
		Checks   rawChecks   `yaml:"checks"`
		Schedule rawSchedule `yaml:"schedule"`
		Alerts   struct {
			Webhook rawWebhook `yaml:"webhook"`
		} `yaml:"alerts"`
		Server  ServerConfig  `yaml:"server"`
		Storage StorageConfig `yaml:"storage"`
		Log     LogConfig     `yaml:"log"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{
		Target: TargetConfig{
			APIBaseURL: strings.TrimRight(firstNonEmpty(env.APIBaseURL, raw.Target.APIBaseURL), "/"),
			WebsiteURL: firstNonEmpty(env.WebsiteURL, raw.Target.WebsiteURL),
		},
		Checks: ChecksConfig{
			Endpoints:       raw.Checks.Endpoints,
			CORSEndpoint:    raw.Checks.CORSEndpoint,
			SecurityHeaders: raw.Checks.SecurityHeaders,
			ContentMarkers:  raw.Checks.ContentMarkers,
		},
		Schedule: ScheduleConfig{Cron: raw.Schedule.Cron},
		Alerts:   AlertsConfig{Webhook: WebhookConfig{URL: raw.Alerts.Webhook.URL}},
		Server:   raw.Server,
		Storage:  raw.Storage,
		Log:      raw.Log,
	}

	// Apply defaults.
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if env.StoragePath != "" {
		cfg.Storage.Path = env.StoragePath
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "smokeprobe.db"
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if len(cfg.Checks.Endpoints) == 0 {
		cfg.Checks.Endpoints = append([]string(nil), DefaultEndpoints...)
	}
	if cfg.Checks.CORSEndpoint == "" {
		cfg.Checks.CORSEndpoint = cfg.Checks.Endpoints[0]
	}
	if len(cfg.Checks.SecurityHeaders) == 0 {
		cfg.Checks.SecurityHeaders = DefaultSecurityHeaders()
	}
	if len(cfg.Checks.ContentMarkers) == 0 {
		cfg.Checks.ContentMarkers = DefaultContentMarkers()
	}

	var err error
	if cfg.Target.Timeout, err = durationOr(env.Timeout, raw.Target.Timeout, 10*time.Second, "target.timeout"); err != nil {
		return nil, err
	}
	if cfg.Checks.LatencyThreshold, err = durationOr(env.LatencyThreshold, raw.Checks.LatencyThreshold, 2*time.Second, "checks.latency_threshold"); err != nil {
		return nil, err
	}
	if cfg.Schedule.Interval, err = durationOr(0, raw.Schedule.Interval, 5*time.Minute, "schedule.interval"); err != nil {
		return nil, err
	}
	if cfg.Alerts.Webhook.Cooldown, err = durationOr(0, raw.Alerts.Webhook.Cooldown, 15*time.Minute, "alerts.webhook.cooldown"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := validateURL("target.api_base_url", c.Target.APIBaseURL); err != nil {
		return err
	}
	if err := validateURL("target.website_url", c.Target.WebsiteURL); err != nil {
		return err
	}
	if c.Target.Timeout.Duration <= 0 {
		return fmt.Errorf("target.timeout must be positive")
	}
	if c.Checks.LatencyThreshold.Duration <= 0 {
		return fmt.Errorf("checks.latency_threshold must be positive")
	}
	if c.Schedule.Interval.Duration <= 0 {
		return fmt.Errorf("schedule.interval must be positive")
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
		}
	}

	seen := make(map[string]bool, len(c.Checks.SecurityHeaders))
	for i, h := range c.Checks.SecurityHeaders {
		if h.Name == "" {
			return fmt.Errorf("checks.security_headers[%d]: name is required", i)
		}
		key := strings.ToLower(h.Name)
		if seen[key] {
			return fmt.Errorf("duplicate security header %q", h.Name)
		}
		seen[key] = true
		if h.Match == "" {
			c.Checks.SecurityHeaders[i].Match = MatchExact
		} else if h.Match != MatchExact && h.Match != MatchContains {
			return fmt.Errorf("security header %q: invalid match %q (must be exact or contains)", h.Name, h.Match)
		}
	}

	for i, m := range c.Checks.ContentMarkers {
		if m.Name == "" {
			return fmt.Errorf("checks.content_markers[%d]: name is required", i)
		}
		if len(m.Contains) == 0 {
			return fmt.Errorf("content marker %q: at least one substring is required", m.Name)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// WebsiteOrigin returns scheme://host[:port] of the website URL.
func (c *Config) WebsiteOrigin() string {
	u, err := url.Parse(c.Target.WebsiteURL)
	if err != nil {
		return strings.TrimRight(c.Target.WebsiteURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// EndpointURL joins the API base URL and an endpoint name.
func (c *Config) EndpointURL(endpoint string) string {
	return c.Target.APIBaseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s %q: must be an absolute http or https URL", field, raw)
	}
	return nil
}

func durationOr(override time.Duration, raw string, def time.Duration, field string) (Duration, error) {
	if override != 0 {
		return Duration{override}, nil
	}
	if raw == "" {
		return Duration{def}, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return Duration{}, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	return Duration{d}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
