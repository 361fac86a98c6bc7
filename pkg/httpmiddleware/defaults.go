// Package httpmiddleware assembles the chi middleware stack shared by the
// relay's HTTP listeners.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Config selects which middleware ApplyToRouter installs.
type Config struct {
	Logger   logger.Logger
	CORS     *CORSConfig
	Security *secure.Options
	Timeout  time.Duration
	// Extra runs innermost, after the built-in stack (e.g. metrics).
	Extra []func(http.Handler) http.Handler

	EnableCorrelationID bool
	EnableLogging       bool
	EnableRecovery      bool
	EnableCORS          bool
	EnableSecurity      bool
	EnableCompression   bool
	EnableRealIP        bool
	EnableTimeout       bool
}

// DefaultConfig enables everything except logging, which needs a Logger.
func DefaultConfig() Config {
	cors := DefaultCORSConfig()
	return Config{
		CORS:                &cors,
		Timeout:             60 * time.Second,
		EnableCorrelationID: true,
		EnableRecovery:      true,
		EnableCORS:          true,
		EnableSecurity:      true,
		EnableCompression:   true,
		EnableRealIP:        true,
		EnableTimeout:       true,
	}
}

// ApplyToRouter installs the configured middleware, outermost first:
// correlation id, security headers, real ip, logging, recovery, CORS,
// timeout, compression, then Extra.
func ApplyToRouter(router chi.Router, cfg Config) {
	if cfg.EnableCorrelationID {
		router.Use(CorrelationID)
	}
	if cfg.EnableSecurity {
		router.Use(Security(cfg.Security))
	}
	if cfg.EnableRealIP {
		router.Use(middleware.RealIP)
	}
	if cfg.EnableLogging && cfg.Logger != nil {
		router.Use(NewHTTPLogger(cfg.Logger).Middleware)
	}
	if cfg.EnableRecovery {
		router.Use(middleware.Recoverer)
	}
	if cfg.EnableCORS && cfg.CORS != nil {
		router.Use(CORS(*cfg.CORS))
	}
	if cfg.EnableTimeout && cfg.Timeout > 0 {
		router.Use(middleware.Timeout(cfg.Timeout))
	}
	if cfg.EnableCompression {
		router.Use(middleware.Compress(5))
	}
	for _, mw := range cfg.Extra {
		router.Use(mw)
	}
}

// WithLogger applies DefaultConfig with request logging switched on.
func WithLogger(router chi.Router, log logger.Logger) {
	cfg := DefaultConfig()
	cfg.Logger = log
	cfg.EnableLogging = true
	ApplyToRouter(router, cfg)
}
