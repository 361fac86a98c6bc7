// Package completion_gateway turns a composed prompt into reply text using a
// hosted language model, reporting every failure as a *CompletionError.
package completion_gateway //nolint:revive // var-naming

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

const (
	// DefaultPlaceholder is returned when the service succeeds with no text.
	DefaultPlaceholder = "(No response)"
	DefaultTimeout     = 30 * time.Second
)

// Outcome labels for Observer.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
)

// Reply is a successful completion.
type Reply struct {
	Text string
	// Empty is set when the service produced nothing and Text is the placeholder.
	Empty    bool
	Provider string
	Latency  time.Duration
}

// Observer receives one call per completion attempt. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCompletion(provider, outcome string, d time.Duration)
}

// Config holds configuration for the gateway.
type Config struct {
	Timeout     time.Duration
	Placeholder string
	Logger      logger.Logger
	Observer    Observer
}

// Gateway bounds each model call with a timeout and normalizes its result.
// It never retries.
type Gateway struct {
	model       Model
	timeout     time.Duration
	placeholder string
	log         logger.Logger
	observer    Observer
}

// New wraps model.
func New(model Model, cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	return &Gateway{
		model:       model,
		timeout:     cfg.Timeout,
		placeholder: cfg.Placeholder,
		log:         cfg.Logger.WithFields(logger.StringField("component", "completion_gateway")),
		observer:    cfg.Observer,
	}
}

// Provider names the backend in use.
func (g *Gateway) Provider() string { return g.model.Provider() }

// Complete sends prompt to the model. On error the returned error is always
// a *CompletionError.
func (g *Gateway) Complete(ctx context.Context, prompt string) (Reply, error) {
	provider := g.model.Provider()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.generate(ctx, prompt)
	latency := time.Since(start)

	log := logger.FromContext(ctx, g.log).WithFields(
		logger.StringField("provider", provider),
		logger.DurationField("latency", latency),
	)

	if err != nil {
		// some SDKs do not wrap the context error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		ce := classify(provider, err)
		g.observe(provider, string(ce.Kind), latency)
		log.Debug("Completion failed", logger.StringField("kind", string(ce.Kind)), logger.ErrorField(ce.Err))
		return Reply{}, ce
	}

	reply := Reply{Text: text, Provider: provider, Latency: latency}
	if strings.TrimSpace(text) == "" {
		reply.Text = g.placeholder
		reply.Empty = true
		g.observe(provider, OutcomeEmpty, latency)
		log.Warn("Completion returned no text, using placeholder")
		return reply, nil
	}

	g.observe(provider, OutcomeOK, latency)
	log.Debug("Completion succeeded", logger.IntField("reply_chars", len(text)))
	return reply, nil
}

// generate shields the caller from panics inside SDK code.
func (g *Gateway) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Malformed(g.model.Provider(), errors.New("model panicked while generating"))
			g.log.Error("Recovered panic in model", logger.Field("panic", r))
		}
	}()
	return g.model.Generate(ctx, prompt)
}

func (g *Gateway) observe(provider, outcome string, d time.Duration) {
	if g.observer != nil {
		g.observer.ObserveCompletion(provider, outcome, d)
	}
}
