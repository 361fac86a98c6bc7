package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// MetricsConfig holds metrics collection and exposure settings
type MetricsConfig struct {
	// EnableHTTPMetrics records request counts and latencies per route
	EnableHTTPMetrics bool `env:"METRICS_ENABLE_HTTP" yaml:"enable_http_metrics" default:"true"`

	// Port is the dedicated /metrics listener, used when ExposeMetrics is
	// false. 0 turns the listener off.
	Port int `env:"METRICS_PORT" yaml:"port" default:"9090"`

	// ExposeMetrics mounts /metrics on the main HTTP router instead
	ExposeMetrics bool `env:"METRICS_EXPOSE" yaml:"expose_metrics" default:"false"`
}

// Validate checks the dedicated listener port
func (m MetricsConfig) Validate() error {
	var result error
	if !m.ExposeMetrics && (m.Port < 0 || m.Port > 65535) {
		result = multierror.Append(result, fmt.Errorf("metrics port must be between 0-65535, got %d", m.Port))
	}
	return result
}
