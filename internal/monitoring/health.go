// Package monitoring assembles the relay's liveness and readiness checks.
package monitoring

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/memory_relay/pkg/health"
	"github.com/lewisedginton/memory_relay/pkg/health/checkers"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

var errShuttingDown = errors.New("shutting down")

// ConnectorHealthCheck represents a connector that can perform health checks
type ConnectorHealthCheck interface {
	Ready() error
}

// Config holds configuration for the health monitor
type Config struct {
	Logger logger.Logger
	// FactStore is pinged by the readiness probe when set.
	FactStore health.Pinger
	// CompletionAPIURL is probed for reachability when set.
	CompletionAPIURL  string
	TelegramConnector ConnectorHealthCheck // Optional
	Timeout           time.Duration        // Health check timeout
	FailureThreshold  int                  // Consecutive failures before reporting unhealthy
}

// HealthMonitor manages health checks and monitoring endpoints for the application
type HealthMonitor struct {
	checker      *health.Checker
	shuttingDown atomic.Bool
}

// NewHealthMonitor creates a new health monitor with configured checks
func NewHealthMonitor(cfg Config) *HealthMonitor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}

	opts := []health.Option{
		health.WithTimeout(timeout),
		health.WithFailureThreshold(failureThreshold),
	}
	if cfg.Logger != nil {
		opts = append(opts, health.WithLogger(cfg.Logger))
	}
	hm := &HealthMonitor{checker: health.New(opts...)}

	hm.checker.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error {
		return nil
	}))

	hm.checker.AddReadinessCheck(health.NewCheckFunc("shutdown", func(context.Context) error {
		if hm.shuttingDown.Load() {
			return errShuttingDown
		}
		return nil
	}))
	if cfg.FactStore != nil {
		hm.checker.AddReadinessCheck(health.NewPingCheck("fact_store", cfg.FactStore))
	}
	if cfg.CompletionAPIURL != "" {
		hm.checker.AddReadinessCheck(checkers.NewHTTPChecker(cfg.CompletionAPIURL, "completion_api"))
	}
	if cfg.TelegramConnector != nil {
		hm.checker.AddReadinessCheck(health.NewCheckFunc("telegram_connector", func(context.Context) error {
			return cfg.TelegramConnector.Ready()
		}))
	}

	return hm
}

// MarkShuttingDown fails readiness from now on so load balancers drain us.
func (hm *HealthMonitor) MarkShuttingDown() {
	hm.shuttingDown.Store(true)
}

// Checker exposes the underlying checker.
func (hm *HealthMonitor) Checker() *health.Checker {
	return hm.checker
}

// LivenessHandler serves GET /health/live.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return hm.checker.LivenessHandler()
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return hm.checker.ReadinessHandler()
}

// RegisterRoutes mounts the probe endpoints on r.
func (hm *HealthMonitor) RegisterRoutes(r chi.Router) {
	r.Get("/health/live", hm.LivenessHandler())
	r.Get("/health/ready", hm.ReadinessHandler())
}
