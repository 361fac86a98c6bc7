package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a completion failed.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindRejected  ErrorKind = "rejected"
	KindMalformed ErrorKind = "malformed"
)

// CompletionError is the only error type Gateway.Complete returns.
type CompletionError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Rejected marks err as a refusal by the service (bad request, auth, quota,
// safety block). Backends use it when they can tell.
func Rejected(provider string, err error) error {
	return &CompletionError{Kind: KindRejected, Provider: provider, Err: err}
}

// Malformed marks a response the backend could not interpret.
func Malformed(provider string, err error) error {
	return &CompletionError{Kind: KindMalformed, Provider: provider, Err: err}
}

// classify turns whatever a Model returned into a *CompletionError.
func classify(provider string, err error) *CompletionError {
	var ce *CompletionError
	if errors.As(err, &ce) {
		if ce.Provider == "" {
			ce.Provider = provider
		}
		return ce
	}
	kind := KindTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &CompletionError{Kind: kind, Provider: provider, Err: err}
}

// statusKind maps an HTTP status reported by an SDK error onto a kind.
// Server side failures and throttling are treated as transport problems.
func statusKind(status int) ErrorKind {
	switch {
	case status == 408:
		return KindTimeout
	case status == 429, status >= 500:
		return KindTransport
	case status >= 400:
		return KindRejected
	default:
		return KindTransport
	}
}
