package health

import (
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Response is the JSON body served by the probe endpoints.
type Response struct {
	Status  string                 `json:"status"` // "healthy" | "unhealthy"
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus is one entry of Response.Checks.
type CheckStatus struct {
	Status  string `json:"status"` // "ok" | "error"
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// LivenessHandler serves 200 when every liveness check passes, 503 otherwise.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := c.Liveness(r.Context())
		c.write(w, status, err)
	}
}

// ReadinessHandler serves 200 when every readiness check passes, 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := c.Readiness(r.Context())
		c.write(w, status, err)
	}
}

func (c *Checker) write(w http.ResponseWriter, status Status, err error) {
	resp := Response{Status: "healthy", Checks: make(map[string]CheckStatus, len(status.Checks))}
	code := http.StatusOK
	if !status.Healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		if err != nil {
			resp.Message = err.Error()
		}
	}
	for _, r := range status.Checks {
		cs := CheckStatus{Status: "ok", Latency: r.Latency.String()}
		if !r.Healthy {
			cs.Status = "error"
			cs.Error = r.Error
		}
		resp.Checks[r.Name] = cs
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.log.Error("Failed to encode health response", logger.ErrorField(err))
	}
}
