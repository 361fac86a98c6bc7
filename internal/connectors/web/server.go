// Package web serves the relay's JSON API and the browser chat page.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/memory_relay/internal/monitoring"
	"github.com/lewisedginton/memory_relay/pkg/config"
	"github.com/lewisedginton/memory_relay/pkg/httpmiddleware"
	"github.com/lewisedginton/memory_relay/pkg/logger"
	"github.com/lewisedginton/memory_relay/pkg/metrics"
)

//go:embed static
var staticFiles embed.FS

// Responder is what the web front-end needs from the session orchestrator.
type Responder interface {
	Respond(ctx context.Context, userID, text string) string
	Memories(ctx context.Context, userID string) (map[string]string, error)
	Forget(ctx context.Context, userID string) error
	Usage() int64
	MemoryMode() string
}

// Config holds configuration for the web server.
type Config struct {
	HTTP   config.HTTPServerConfig
	Logger logger.Logger
	// Metrics instruments requests when set; with ExposeMetrics it is also
	// served on /metrics.
	Metrics       *metrics.Metrics
	ExposeMetrics bool
	// Health mounts /health/live and /health/ready when set.
	Health *monitoring.HealthMonitor
	// CORS overrides the default allow-all policy.
	CORS *httpmiddleware.CORSConfig
}

// Server is the HTTP front-end.
type Server struct {
	cfg       Config
	responder Responder
	log       logger.Logger
	router    chi.Router
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(cfg Config, responder Responder) (*Server, error) {
	if responder == nil {
		return nil, errors.New("responder is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	s := &Server{
		cfg:       cfg,
		responder: responder,
		log:       cfg.Logger.WithFields(logger.StringField("component", "web")),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	mw := httpmiddleware.DefaultConfig()
	mw.Logger = s.log
	mw.EnableLogging = true
	if s.cfg.HTTP.WriteTimeout > 0 {
		mw.Timeout = s.cfg.HTTP.WriteTimeout
	}
	if s.cfg.CORS != nil {
		mw.CORS = s.cfg.CORS
	}
	if s.cfg.Metrics != nil {
		mw.Extra = append(mw.Extra, s.cfg.Metrics.HTTPMiddleware)
	}
	httpmiddleware.ApplyToRouter(r, mw)

	r.Get("/", s.handleIndex)
	r.Post("/chat", s.handleChat)
	r.Get("/health", s.handleHealth)
	r.Get("/memory/{userID}", s.handleGetMemory)
	r.Delete("/memory/{userID}", s.handleForget)

	if s.cfg.Health != nil {
		s.cfg.Health.RegisterRoutes(r)
	}
	if s.cfg.Metrics != nil && s.cfg.ExposeMetrics {
		r.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until ctx is cancelled, then
// drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    s.cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.StringField("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout) //nolint:contextcheck // parent is already cancelled
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // parent is already cancelled
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
