// Package health runs liveness and readiness probes and serves them over HTTP.
package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Check is a single named probe. A nil error means healthy.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// NewCheckFunc adapts a plain function into a Check.
func NewCheckFunc(name string, fn func(context.Context) error) Check {
	return checkFunc{name: name, fn: fn}
}

// Pinger is satisfied by stores and pools that expose a connectivity probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck wraps a Pinger as a Check.
func NewPingCheck(name string, p Pinger) Check {
	return NewCheckFunc(name, p.Ping)
}

// CheckResult is the outcome of one probe run.
type CheckResult struct {
	Name    string
	Healthy bool
	Error   string
	Latency time.Duration
}

// Status aggregates a probe set. Checks are sorted by name.
type Status struct {
	Healthy bool
	Checks  []CheckResult
}

// Checker holds the liveness and readiness probe sets.
type Checker struct {
	mu        sync.Mutex
	liveness  []Check
	readiness []Check
	failures  map[string]int

	timeout   time.Duration
	threshold int
	log       logger.Logger
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithTimeout bounds each individual check. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for health check operations.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// WithFailureThreshold is the number of consecutive failures before a check
// is reported unhealthy. Default 1.
func WithFailureThreshold(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// New creates a Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		failures:  make(map[string]int),
		timeout:   5 * time.Second,
		threshold: 1,
		log:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddLivenessCheck registers a probe that decides whether the process should be restarted.
func (c *Checker) AddLivenessCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveness = append(c.liveness, check)
}

// AddReadinessCheck registers a probe that decides whether traffic should be routed here.
func (c *Checker) AddReadinessCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readiness = append(c.readiness, check)
}

// Liveness runs the liveness set.
func (c *Checker) Liveness(ctx context.Context) (Status, error) {
	c.mu.Lock()
	checks := append([]Check(nil), c.liveness...)
	c.mu.Unlock()
	return c.run(ctx, checks)
}

// Readiness runs the readiness set.
func (c *Checker) Readiness(ctx context.Context) (Status, error) {
	c.mu.Lock()
	checks := append([]Check(nil), c.readiness...)
	c.mu.Unlock()
	return c.run(ctx, checks)
}

func (c *Checker) run(ctx context.Context, checks []Check) (Status, error) {
	results := make([]CheckResult, len(checks))

	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.runOne(ctx, check)
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := Status{Healthy: true, Checks: results}
	var failed []string
	for _, r := range results {
		if !r.Healthy {
			status.Healthy = false
			failed = append(failed, r.Name)
		}
	}
	if !status.Healthy {
		return status, fmt.Errorf("health checks failed: %s", strings.Join(failed, ", "))
	}
	return status, nil
}

func (c *Checker) runOne(parent context.Context, check Check) CheckResult {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.Check(ctx)
	res := CheckResult{Name: check.Name(), Healthy: true, Latency: time.Since(start)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.failures[res.Name] = 0
		return res
	}

	c.failures[res.Name]++
	n := c.failures[res.Name]
	fields := []logger.LogField{
		logger.StringField("check", res.Name),
		logger.ErrorField(err),
		logger.IntField("failures", n),
	}
	if n < c.threshold {
		c.log.Debug("Health check failed below threshold", fields...)
		return res
	}
	c.log.Warn("Health check failed", fields...)
	res.Healthy = false
	res.Error = err.Error()
	return res
}
