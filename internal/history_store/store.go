// Package history_store keeps a short, in-process rolling transcript per user.
package history_store //nolint:revive // var-naming

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lewisedginton/memory_relay/pkg/logger"
)

// Role of a turn's author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}

const (
	DefaultMaxTurns = 10
	DefaultMaxUsers = 10000
)

// Config holds configuration for the history store.
type Config struct {
	// MaxTurns is how many turns are retained per user; older ones are dropped.
	MaxTurns int
	// MaxUsers bounds how many users are tracked; the least recently active is evicted.
	MaxUsers int
	Logger   logger.Logger
}

type userHistory struct {
	mu    sync.Mutex
	turns []Turn
}

// Store is safe for concurrent use. Each user has their own lock, so
// different users never contend.
type Store struct {
	maxTurns int
	users    *lru.Cache[string, *userHistory]
	// usersMux only guards get-or-create of a user's entry
	usersMux sync.Mutex
	log      logger.Logger
	now      func() time.Time
}

// New creates a Store. Zero limits fall back to the defaults.
func New(cfg Config) (*Store, error) {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = DefaultMaxUsers
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	log := cfg.Logger.WithFields(logger.StringField("component", "history_store"))

	users, err := lru.NewWithEvict(cfg.MaxUsers, func(userID string, _ *userHistory) {
		log.Debug("Evicted conversation history", logger.UserIDField(userID))
	})
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}

	return &Store{
		maxTurns: cfg.MaxTurns,
		users:    users,
		log:      log,
		now:      time.Now,
	}, nil
}

// getUser returns the user's history, creating it when create is set.
func (s *Store) getUser(userID string, create bool) *userHistory {
	if h, ok := s.users.Get(userID); ok {
		return h
	}
	if !create {
		return nil
	}

	s.usersMux.Lock()
	defer s.usersMux.Unlock()
	if h, ok := s.users.Get(userID); ok {
		return h
	}
	h := &userHistory{turns: make([]Turn, 0, s.maxTurns)}
	s.users.Add(userID, h)
	return h
}

// Append records a turn and trims the user's history to MaxTurns.
func (s *Store) Append(userID string, role Role, text string) {
	s.appendTurns(userID, Turn{Role: role, Text: text})
}

// AppendExchange records a user turn and the assistant's reply as one unit,
// so concurrent exchanges for the same user never interleave.
func (s *Store) AppendExchange(userID, userText, reply string) {
	s.appendTurns(userID,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: reply},
	)
}

func (s *Store) appendTurns(userID string, turns ...Turn) {
	h := s.getUser(userID, true)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := s.now()
	for _, t := range turns {
		t.At = now
		h.turns = append(h.turns, t)
	}
	if over := len(h.turns) - s.maxTurns; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(h.turns, h.turns[over:])
		clear(h.turns[n:])
		h.turns = h.turns[:n]
	}
}

// Recent returns up to limit of the user's latest turns, oldest first.
// A limit <= 0 returns everything retained. Unknown users yield nil.
func (s *Store) Recent(userID string, limit int) []Turn {
	h := s.getUser(userID, false)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := 0
	if limit > 0 && len(h.turns) > limit {
		start = len(h.turns) - limit
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Clear forgets the user's history.
func (s *Store) Clear(userID string) {
	s.users.Remove(userID)
}

// Users is the number of users currently tracked.
func (s *Store) Users() int {
	return s.users.Len()
}
