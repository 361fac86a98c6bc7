package checkers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPChecker(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		requireOK bool
		wantErr   bool
	}{
		{"ok", http.StatusOK, false, false},
		{"client error tolerated", http.StatusNotFound, false, false},
		{"client error with RequireOK", http.StatusNotFound, true, true},
		{"server error", http.StatusServiceUnavailable, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewHTTPChecker(srv.URL, "relay")
			c.RequireOK = tt.requireOK
			err := c.Check(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPChecker_DefaultNameAndUnreachable(t *testing.T) {
	c := NewHTTPChecker("http://127.0.0.1:1/health", "")
	assert.Equal(t, "http://127.0.0.1:1/health", c.Name())
	assert.Error(t, c.Check(context.Background()))
}
