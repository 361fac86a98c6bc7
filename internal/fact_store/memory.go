package fact_store //nolint:revive // var-naming

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is a process-local Store. Used in tests and for the "memory" driver.
type MemoryStore struct {
	mu    sync.RWMutex
	facts map[string]map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{facts: make(map[string]map[string]string)}
}

func (s *MemoryStore) Put(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.facts[userID]
	if !ok {
		user = make(map[string]string)
		s.facts[userID] = user
	}
	user[key] = value
	return nil
}

func (s *MemoryStore) GetAll(_ context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.facts[userID]))
	maps.Copy(out, s.facts[userID])
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts, userID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
