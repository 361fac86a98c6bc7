// Package session_orchestrator is the single entry point front-ends use to
// turn a user's message into a reply. It owns the usage counter and the
// memory provider, and never lets an error escape Respond.
package session_orchestrator //nolint:revive // var-naming

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/lewisedginton/memory_relay/internal/completion_gateway"
	"github.com/lewisedginton/memory_relay/internal/prompt_composer"
	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// DefaultApology is returned whenever a reply could not be produced.
const DefaultApology = "Sorry, something went wrong while talking to the model."

var (
	// ErrEmptyMessage is the validation error for blank input.
	ErrEmptyMessage = errors.New("empty message")
	// ErrFactsUnavailable is returned by fact commands when the active
	// memory provider does not keep facts.
	ErrFactsUnavailable = errors.New("fact memory is not enabled")
)

// Completer is the slice of completion_gateway.Gateway the orchestrator uses.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, prompt string) (completion_gateway.Reply, error)
}

// FailureRecorder counts memory failures. *metrics.Metrics satisfies it.
type FailureRecorder interface {
	StoreFailure(op string)
}

// Config holds configuration for the orchestrator.
type Config struct {
	Persona  string
	Memory   MemoryProvider
	Gateway  Completer
	Apology  string
	Logger   logger.Logger
	Failures FailureRecorder
}

// Orchestrator coordinates memory, prompt composition and the completion call.
type Orchestrator struct {
	persona  string
	memory   MemoryProvider
	gateway  Completer
	apology  string
	log      logger.Logger
	failures FailureRecorder

	usage atomic.Int64
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Memory == nil {
		return nil, errors.New("memory provider is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("completion gateway is required")
	}
	if cfg.Apology == "" {
		cfg.Apology = DefaultApology
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	return &Orchestrator{
		persona:  cfg.Persona,
		memory:   cfg.Memory,
		gateway:  cfg.Gateway,
		apology:  cfg.Apology,
		log:      cfg.Logger.WithFields(logger.StringField("component", "session_orchestrator")),
		failures: cfg.Failures,
	}, nil
}

// ValidateMessage trims text and rejects it when nothing is left.
func ValidateMessage(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", ErrEmptyMessage
	}
	return t, nil
}

// Respond produces the reply for one user message. Blank text yields "".
// Any other input yields a non-empty reply: model output, the empty-response
// placeholder, or the apology.
func (o *Orchestrator) Respond(ctx context.Context, userID, text string) (reply string) {
	text, err := ValidateMessage(text)
	if err != nil {
		return ""
	}

	log := logger.FromContext(ctx, o.log).WithFields(
		logger.UserIDField(userID),
		logger.StringField("memory_mode", o.memory.Mode()),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered panic while responding", logger.Field("panic", r))
			reply = o.apology
		}
	}()

	o.usage.Add(1)

	memory, err := o.memory.Recall(ctx, userID)
	if err != nil {
		o.storeFailed(log, "recall", err)
		return o.apology
	}

	prompt := prompt_composer.Compose(o.persona, memory, text)
	log.Debug("Prompt composed", logger.IntField("prompt_chars", len(prompt)), logger.IntField("memory_lines", len(memory.Lines)))

	// no memory lock is held here; the store calls above and below lock internally
	result, err := o.gateway.Complete(ctx, prompt)
	if err != nil {
		fields := []logger.LogField{logger.ErrorField(err), logger.StringField("provider", o.gateway.Provider())}
		var ce *completion_gateway.CompletionError
		if errors.As(err, &ce) {
			fields = append(fields, logger.StringField("kind", string(ce.Kind)))
		}
		log.Error("Completion failed", fields...)

		if rerr := o.memory.Record(ctx, userID, text, o.apology, true); rerr != nil {
			o.storeFailed(log, "record", rerr)
		}
		return o.apology
	}

	if err := o.memory.Record(ctx, userID, text, result.Text, false); err != nil {
		o.storeFailed(log, "record", err)
		return o.apology
	}

	log.Info("Replied",
		logger.DurationField("latency", result.Latency),
		logger.BoolField("empty", result.Empty))
	return result.Text
}

func (o *Orchestrator) storeFailed(log logger.Logger, op string, err error) {
	log.Error("Memory operation failed", logger.StringField("op", op), logger.ErrorField(err))
	if o.failures != nil {
		o.failures.StoreFailure(op)
	}
}

// Remember stores a fact for the user. An empty key falls back to DefaultFactKey.
func (o *Orchestrator) Remember(ctx context.Context, userID, key, value string) error {
	keeper, ok := o.memory.(FactKeeper)
	if !ok {
		return ErrFactsUnavailable
	}
	value, err := ValidateMessage(value)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultFactKey
	}
	if err := keeper.Remember(ctx, userID, key, value); err != nil {
		o.storeFailed(o.log.WithFields(logger.UserIDField(userID)), "remember", err)
		return err
	}
	return nil
}

// Memories lists the user's stored facts.
func (o *Orchestrator) Memories(ctx context.Context, userID string) (map[string]string, error) {
	keeper, ok := o.memory.(FactKeeper)
	if !ok {
		return nil, ErrFactsUnavailable
	}
	facts, err := keeper.Facts(ctx, userID)
	if err != nil {
		o.storeFailed(o.log.WithFields(logger.UserIDField(userID)), "memories", err)
		return nil, err
	}
	return facts, nil
}

// Forget drops everything remembered about the user.
func (o *Orchestrator) Forget(ctx context.Context, userID string) error {
	if err := o.memory.Forget(ctx, userID); err != nil {
		o.storeFailed(o.log.WithFields(logger.UserIDField(userID)), "forget", err)
		return err
	}
	o.log.Info("Forgot user", logger.UserIDField(userID))
	return nil
}

// Usage is the number of completion attempts since start.
func (o *Orchestrator) Usage() int64 {
	return o.usage.Load()
}

// MemoryMode reports which memory provider is active.
func (o *Orchestrator) MemoryMode() string {
	return o.memory.Mode()
}
