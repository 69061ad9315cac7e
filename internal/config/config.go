package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config holds the relay configuration. It is built once at startup and
// never mutated afterwards.
type Config struct {
	Addr               string   `env:"ADDR"             envDefault:":8080"`
	GitHubClientID     string   `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret Secret   `env:"GITHUB_CLIENT_SECRET"`
	GitHubHostname     string   `env:"GITHUB_HOSTNAME"  envDefault:"github.com"`
	AllowedDomains     []string `env:"ALLOWED_DOMAINS"  envSeparator:","`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.AllowedDomains = trimCSV(cfg.AllowedDomains)

	if cfg.GitHubHostname == "" {
		cfg.GitHubHostname = "github.com"
	}

	return cfg, nil
}

// HasCredentials reports whether both OAuth app credentials are configured.
// Their absence is surfaced per request as MISCONFIGURED_CLIENT rather than
// failing startup, so the relay can come up before secrets are provisioned.
func (c Config) HasCredentials() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// DevMode checks if we're running in development mode
// where security requirements can be relaxed for testing
func DevMode() bool {
	e := strings.ToLower(os.Getenv("SVELTIA_AUTH_ENV"))
	return e == "development" || e == "dev"
}

// trimCSV removes empty entries from a CSV-split slice.
func trimCSV(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
