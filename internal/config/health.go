package config

import "time"

// HealthConfig holds health check configuration
type HealthConfig struct {
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"timeout" default:"5s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
	// CompletionAPIURL is probed for reachability by the readiness check when set.
	CompletionAPIURL string `env:"HEALTH_COMPLETION_API_URL" yaml:"completion_api_url"`
}
