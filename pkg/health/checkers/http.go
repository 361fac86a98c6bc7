// Package checkers holds health.Check implementations for external dependencies.
package checkers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker probes an HTTP endpoint. Any status below 500 counts as healthy
// unless RequireOK is set, in which case only 2xx passes.
type HTTPChecker struct {
	url       string
	name      string
	client    *http.Client
	RequireOK bool
}

// NewHTTPChecker creates a checker for url. An empty name defaults to the URL.
func NewHTTPChecker(url, name string) *HTTPChecker {
	return NewHTTPCheckerWithClient(url, name, &http.Client{Timeout: 10 * time.Second})
}

// NewHTTPCheckerWithClient is NewHTTPChecker with a caller supplied client.
func NewHTTPCheckerWithClient(url, name string, client *http.Client) *HTTPChecker {
	if name == "" {
		name = url
	}
	return &HTTPChecker{url: url, name: name, client: client}
}

func (h *HTTPChecker) Name() string { return h.name }

// Check performs a GET against the configured URL.
func (h *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || (h.RequireOK && resp.StatusCode/100 != 2) {
		return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
	}
	return nil
}
