package httpmiddleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

func newRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	ApplyToRouter(r, cfg)
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(logger.GetCorrelationIDFromContext(r.Context())))
	})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	return r
}

func TestCorrelationID(t *testing.T) {
	r := newRouter(Config{EnableCorrelationID: true})

	t.Run("mints id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))

		id := rec.Header().Get(logger.CorrelationIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("keeps valid client id", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		req.Header.Set(logger.CorrelationIDHeader, want)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, want, rec.Header().Get(logger.CorrelationIDHeader))
		assert.Equal(t, want, rec.Body.String())
	})
}

func TestRecovery(t *testing.T) {
	r := newRouter(Config{EnableRecovery: true})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(Config{EnableSecurity: true})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	cors := DefaultCORSConfig()
	r := newRouter(Config{EnableCORS: true, CORS: &cors})

	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(logger.Config{Level: logger.InfoLevel, Output: &buf})
	r := newRouter(Config{EnableCorrelationID: true, EnableLogging: true, Logger: log})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "HTTP request served", entry["msg"])
	assert.Equal(t, "/echo", entry["http_path"])
	assert.Equal(t, "200", entry["http_status"])
	assert.Equal(t, rec.Header().Get(logger.CorrelationIDHeader), entry[logger.CorrelationIDFieldKey])
}

func TestExtraRunsInnermost(t *testing.T) {
	var seen string
	extra := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.GetCorrelationIDFromContext(r.Context())
			next.ServeHTTP(w, r)
		})
	}
	r := newRouter(Config{EnableCorrelationID: true, Extra: []func(http.Handler) http.Handler{extra}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
	assert.NotEmpty(t, seen)
}
