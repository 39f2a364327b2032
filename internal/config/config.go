package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/crossfade/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Scrobbler ScrobblerConfig `yaml:"scrobbler"`
	Logging   logging.Config  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// RateLimitPerSecond is the per-client request rate. Zero disables
	// inbound rate limiting.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// UpstreamConfig locates the services crossfade talks to.
type UpstreamConfig struct {
	CatalogABaseURL  string        `yaml:"catalog_a_base_url"`
	CatalogBBaseURL  string        `yaml:"catalog_b_base_url"`
	ScrobblerBaseURL string        `yaml:"scrobbler_base_url"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ResolverConfig holds artist resolution policy.
type ResolverConfig struct {
	FallbackToSecondaryEnabled bool `yaml:"fallback_to_secondary_enabled"`
	SearchLimit                int  `yaml:"search_limit"`
}

// ScrobblerConfig controls the scrobbler passthrough.
type ScrobblerConfig struct {
	StripFields []string `yaml:"strip_fields"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
		},
		Upstream: UpstreamConfig{
			CatalogABaseURL:  "https://api.lidarr.audio/api/v0.4",
			CatalogBBaseURL:  "http://localhost:7272",
			ScrobblerBaseURL: "https://ws.audioscrobbler.com/2.0",
			Timeout:          10 * time.Second,
		},
		Resolver: ResolverConfig{
			FallbackToSecondaryEnabled: true,
			SearchLimit:                25,
		},
		Scrobbler: ScrobblerConfig{
			StripFields: []string{"mbid"},
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("CF_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CF_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CF_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("CF_RATE_LIMIT_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CF_RATE_LIMIT_PER_SECOND: %w", err)
		}
		c.Server.RateLimitPerSecond = rps
	}
	if v := os.Getenv("CF_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CF_RATE_LIMIT_BURST: %w", err)
		}
		c.Server.RateLimitBurst = burst
	}
	if v := os.Getenv("CF_CATALOG_A_BASE_URL"); v != "" {
		c.Upstream.CatalogABaseURL = v
	}
	if v := os.Getenv("CF_CATALOG_B_BASE_URL"); v != "" {
		c.Upstream.CatalogBBaseURL = v
	}
	if v := os.Getenv("CF_SCROBBLER_BASE_URL"); v != "" {
		c.Upstream.ScrobblerBaseURL = v
	}
	if v := os.Getenv("CF_UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CF_UPSTREAM_TIMEOUT: %w", err)
		}
		c.Upstream.Timeout = d
	}
	if v := os.Getenv("CF_FALLBACK_TO_SECONDARY_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CF_FALLBACK_TO_SECONDARY_ENABLED: %w", err)
		}
		c.Resolver.FallbackToSecondaryEnabled = enabled
	}
	if v := os.Getenv("CF_SEARCH_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CF_SEARCH_LIMIT: %w", err)
		}
		c.Resolver.SearchLimit = limit
	}
	if v, ok := os.LookupEnv("CF_SCROBBLER_STRIP_FIELDS"); ok {
		c.Scrobbler.StripFields = splitList(v)
	}
	if v := os.Getenv("CF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CF_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.RateLimitPerSecond < 0 {
		return fmt.Errorf("invalid rate_limit_per_second: %v", c.Server.RateLimitPerSecond)
	}
	if c.Server.RateLimitPerSecond > 0 && c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate_limit_burst: %d", c.Server.RateLimitBurst)
	}

	for name, raw := range map[string]string{
		"catalog_a_base_url": c.Upstream.CatalogABaseURL,
		"catalog_b_base_url": c.Upstream.CatalogBBaseURL,
		"scrobbler_base_url": c.Upstream.ScrobblerBaseURL,
	} {
		if err := validateBaseURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("invalid upstream timeout: %s", c.Upstream.Timeout)
	}

	if c.Resolver.SearchLimit < 1 || c.Resolver.SearchLimit > 100 {
		return fmt.Errorf("invalid search_limit: %d (must be 1-100)", c.Resolver.SearchLimit)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	c.Upstream.CatalogABaseURL = strings.TrimRight(c.Upstream.CatalogABaseURL, "/")
	c.Upstream.CatalogBBaseURL = strings.TrimRight(c.Upstream.CatalogBBaseURL, "/")
	c.Upstream.ScrobblerBaseURL = strings.TrimRight(c.Upstream.ScrobblerBaseURL, "/")
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", raw)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
