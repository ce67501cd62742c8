package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"datafeed/internal/failover"
	"datafeed/internal/feed"
	"datafeed/internal/logger"
	"datafeed/internal/provider"
)

// Config is the full application configuration, read once at startup.
// Only provider enabled flags are mutated afterwards, through the engine.
type Config struct {
	App       AppConfig              `yaml:"app"`
	Server    ServerConfig           `yaml:"server"`
	Logging   logger.Config          `yaml:"logging"`
	Failover  failover.Config        `yaml:"failover"`
	RateLimit RateLimitConfig        `yaml:"rate_limit"`
	CORS      CORSConfig             `yaml:"cors"`
	Providers []*provider.Descriptor `yaml:"providers"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RateLimitConfig throttles the inbound API, independent of the
// per-provider outbound limits inside the engine.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig configures cross-origin access for the dashboard.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and validates configuration from a YAML file, applying
// environment overrides on top.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{
		Failover: failover.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for startup-blocking mistakes.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider: %s", p.Name)
		}
		seen[p.Name] = true

		if p.RateLimitPerMin <= 0 {
			return fmt.Errorf("provider %s: rate_limit_per_minute must be positive", p.Name)
		}
		if p.Timeout <= 0 {
			return fmt.Errorf("provider %s: timeout must be positive", p.Name)
		}
		if len(p.DataTypes) == 0 {
			return fmt.Errorf("provider %s: at least one data type is required", p.Name)
		}
		for _, dt := range p.DataTypes {
			if _, err := feed.ParseDataType(string(dt)); err != nil {
				return fmt.Errorf("provider %s: %w", p.Name, err)
			}
		}
	}

	q := c.Failover.Quality
	if q.SuccessWeight < 0 || q.LatencyWeight < 0 {
		return fmt.Errorf("quality weights must not be negative")
	}
	if q.EMAAlpha < 0 || q.EMAAlpha > 1 {
		return fmt.Errorf("quality ema_alpha must be within [0, 1]")
	}

	return nil
}
