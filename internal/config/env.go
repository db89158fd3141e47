package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of environment overrides, e.g. SMOKEPROBE_WEBSITE_URL.
const EnvPrefix = "smokeprobe"

type envOverrides struct {
	APIBaseURL       string        `envconfig:"API_BASE_URL"`
	WebsiteURL       string        `envconfig:"WEBSITE_URL"`
	Timeout          time.Duration `envconfig:"TIMEOUT"`
	LatencyThreshold time.Duration `envconfig:"LATENCY_THRESHOLD"`
	StoragePath      string        `envconfig:"STORAGE_PATH"`
	LogLevel         string        `envconfig:"LOG_LEVEL"`
}

func readEnvOverrides() (envOverrides, error) {
	var o envOverrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return o, fmt.Errorf("reading environment overrides: %w", err)
	}
	return o, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without replacing ones already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %q: %w", path, err)
	}
	return nil
}
