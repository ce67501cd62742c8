package provider

import (
	"context"
	"time"

	"datafeed/internal/feed"
)

// Provider is one upstream data source. Implementations are plain HTTP
// clients and must be safe for concurrent use.
type Provider interface {
	// Name returns the provider name used in configuration and logs.
	Name() string

	// Supports reports whether the provider can serve the given data type.
	Supports(dt feed.DataType) bool

	// Fetch performs one upstream call for the request. The caller bounds
	// the call with a context deadline; Fetch must respect cancellation.
	Fetch(ctx context.Context, req *feed.DataRequest) (interface{}, error)

	// Probe performs a lightweight health check against the upstream.
	Probe(ctx context.Context) error
}

// Descriptor is the static per-provider configuration. Loaded once at
// startup; only Enabled is mutated at runtime, and only through the registry.
type Descriptor struct {
	Name            string          `yaml:"name"`
	Enabled         bool            `yaml:"enabled"`
	Priority        int             `yaml:"priority"` // lower is preferred
	RateLimitPerMin int             `yaml:"rate_limit_per_minute"`
	Timeout         time.Duration   `yaml:"timeout"`
	DataTypes       []feed.DataType `yaml:"data_types"`
	APIKeyEnv       string          `yaml:"api_key_env"`
	BaseURL         string          `yaml:"base_url"`
}

// SupportsType reports whether the descriptor lists the given data type.
func (d *Descriptor) SupportsType(dt feed.DataType) bool {
	for _, t := range d.DataTypes {
		if t == dt {
			return true
		}
	}
	return false
}
