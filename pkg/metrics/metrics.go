// Package metrics exposes the relay's Prometheus collectors on a private registry.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

const namespace = "relay"

var latencyBuckets = []float64{0.1, 0.3, 0.5, 1, 2, 5, 10, 20, 30, 60}

// Metrics owns the registry and every collector the relay publishes.
type Metrics struct {
	reg *prometheus.Registry
	log logger.Logger

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	messages           *prometheus.CounterVec
	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	storeFailures      *prometheus.CounterVec
}

// New builds the collectors. HTTP request metrics are only registered when
// httpMetrics is set.
func New(httpMetrics bool, log logger.Logger) *Metrics {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: log,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound user messages by channel.",
		}, []string{"channel"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		completionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Completion service latency in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"provider"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_failures_total",
			Help:      "Memory store operations that failed, by operation.",
		}, []string{"op"}),
	}
	m.reg.MustRegister(m.messages, m.completions, m.completionDuration, m.storeFailures)

	if httpMetrics {
		m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"})
		m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"method"})
		m.reg.MustRegister(m.httpRequests, m.httpDuration)
	}
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// AddCustomMetric registers an extra collector, e.g. a GaugeFunc.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// MessageReceived counts one inbound message on channel.
func (m *Metrics) MessageReceived(channel string) {
	m.messages.WithLabelValues(channel).Inc()
}

// ObserveCompletion records one completion attempt.
func (m *Metrics) ObserveCompletion(provider, outcome string, d time.Duration) {
	m.completions.WithLabelValues(provider, outcome).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// StoreFailure counts a failed memory operation.
func (m *Metrics) StoreFailure(op string) {
	m.storeFailures.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// HTTPMiddleware counts requests and their latency. It is a pass-through
// when HTTP metrics are disabled.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	if m.httpRequests == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Listen serves /metrics on its own port until ctx is cancelled.
func (m *Metrics) Listen(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	m.log.Info("Metrics listener stopped")
	return nil
}
