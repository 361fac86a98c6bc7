package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// HTTPLogger logs one line per completed request.
type HTTPLogger struct {
	log logger.Logger
}

// NewHTTPLogger creates a new HTTP logger middleware
func NewHTTPLogger(log logger.Logger) *HTTPLogger {
	return &HTTPLogger{log: log}
}

func (h *HTTPLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []logger.LogField{
			logger.ClientIPField(r.RemoteAddr),
			logger.HTTPMethodField(r.Method),
			logger.HTTPPathField(r.URL.Path),
			logger.HTTPStatusField(status),
			logger.IntField("response_bytes", ww.BytesWritten()),
			logger.DurationField("duration", time.Since(start)),
		}
		log := h.RequestLogger(r)
		if status >= http.StatusInternalServerError {
			log.Warn("HTTP request failed", fields...)
			return
		}
		log.Info("HTTP request served", fields...)
	})
}

// RequestLogger returns the base logger tagged with the request's correlation id.
func (h *HTTPLogger) RequestLogger(r *http.Request) logger.Logger {
	return logger.FromContext(r.Context(), h.log)
}
