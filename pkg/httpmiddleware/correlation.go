package httpmiddleware

import (
	"net/http"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

const correlationHeader = logger.CorrelationIDHeader

// CorrelationID keeps a valid client supplied X-Correlation-ID or mints one,
// stores it in the request context and echoes it on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, id := logger.EnsureHTTPCorrelationID(r)
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r)
	})
}
