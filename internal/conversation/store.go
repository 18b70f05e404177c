package conversation

import (
	"context"
	"sync"
)

// Store keeps at most one State per chat identity. Get returns nil when no
// flow is active.
type Store interface {
	Get(ctx context.Context, chatID int64) (*State, error)
	Put(ctx context.Context, state State) error
	Delete(ctx context.Context, chatID int64) error
}

// MemoryStore is the default process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[chatID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ChatID] = state
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
