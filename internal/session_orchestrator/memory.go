package session_orchestrator //nolint:revive // var-naming

import (
	"context"
	"fmt"
	"sort"

	"github.com/lewisedginton/memory_relay/internal/fact_store"
	"github.com/lewisedginton/memory_relay/internal/history_store"
	"github.com/lewisedginton/memory_relay/internal/prompt_composer"
)

// Memory modes.
const (
	ModeFacts   = "facts"
	ModeHistory = "history"
)

// MemoryProvider supplies per-user context to the prompt and records each
// completed exchange. Implementations must be safe for concurrent use.
type MemoryProvider interface {
	Mode() string
	Recall(ctx context.Context, userID string) (prompt_composer.Block, error)
	// Record is called after every completion attempt. failed is set when
	// reply is the apology rather than model output.
	Record(ctx context.Context, userID, userText, reply string, failed bool) error
	Forget(ctx context.Context, userID string) error
}

// FactKeeper is implemented by providers backed by explicit key/value facts.
type FactKeeper interface {
	Remember(ctx context.Context, userID, key, value string) error
	Facts(ctx context.Context, userID string) (map[string]string, error)
}

const (
	// LastMessageKey holds the user's latest utterance in facts mode.
	LastMessageKey = "last_message"
	// DefaultFactKey is used by /remember when no key is given.
	DefaultFactKey = "note"

	factsHeading   = "Known facts about the user:"
	historyHeading = "Recent conversation:"
)

// FactMemory renders durable facts into the prompt and stores the latest
// utterance under LastMessageKey. Failed exchanges leave no trace.
type FactMemory struct {
	store fact_store.Store
}

func NewFactMemory(store fact_store.Store) *FactMemory {
	return &FactMemory{store: store}
}

func (m *FactMemory) Mode() string { return ModeFacts }

func (m *FactMemory) Recall(ctx context.Context, userID string) (prompt_composer.Block, error) {
	facts, err := m.store.GetAll(ctx, userID)
	if err != nil {
		return prompt_composer.Block{}, err
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, facts[k]))
	}
	return prompt_composer.Block{Heading: factsHeading, Lines: lines}, nil
}

func (m *FactMemory) Record(ctx context.Context, userID, userText, _ string, failed bool) error {
	if failed {
		return nil
	}
	return m.store.Put(ctx, userID, LastMessageKey, userText)
}

func (m *FactMemory) Forget(ctx context.Context, userID string) error {
	return m.store.Clear(ctx, userID)
}

func (m *FactMemory) Remember(ctx context.Context, userID, key, value string) error {
	return m.store.Put(ctx, userID, key, value)
}

func (m *FactMemory) Facts(ctx context.Context, userID string) (map[string]string, error) {
	return m.store.GetAll(ctx, userID)
}

// HistoryMemory renders the last few turns into the prompt and appends both
// sides of each exchange.
type HistoryMemory struct {
	store          *history_store.Store
	renderTurns    int
	recordFailures bool
}

// NewHistoryMemory renders at most renderTurns turns. With recordFailures
// set, a failed exchange is still appended with the apology as the reply.
func NewHistoryMemory(store *history_store.Store, renderTurns int, recordFailures bool) *HistoryMemory {
	if renderTurns <= 0 {
		renderTurns = 5
	}
	return &HistoryMemory{store: store, renderTurns: renderTurns, recordFailures: recordFailures}
}

func (m *HistoryMemory) Mode() string { return ModeHistory }

func (m *HistoryMemory) Recall(_ context.Context, userID string) (prompt_composer.Block, error) {
	turns := m.store.Recent(userID, m.renderTurns)
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case history_store.RoleAssistant:
			lines = append(lines, "Assistant: "+t.Text)
		default:
			lines = append(lines, "User: "+t.Text)
		}
	}
	return prompt_composer.Block{Heading: historyHeading, Lines: lines}, nil
}

func (m *HistoryMemory) Record(_ context.Context, userID, userText, reply string, failed bool) error {
	if failed && !m.recordFailures {
		return nil
	}
	m.store.AppendExchange(userID, userText, reply)
	return nil
}

func (m *HistoryMemory) Forget(_ context.Context, userID string) error {
	m.store.Clear(userID)
	return nil
}
