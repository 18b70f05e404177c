package membership

import (
	"context"
	"sort"
	"sync"
)

type memoryKey struct {
	chatID  int64
	groupID uint64
}

type memoryRepository struct {
	mu    sync.RWMutex
	items map[memoryKey]Membership
}

// NewMemoryRepository creates an in-memory membership repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{items: make(map[memoryKey]Membership)}
}

func (r *memoryRepository) Upsert(_ context.Context, m Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memoryKey{chatID: m.ChatID, groupID: m.GroupID}
	if existing, ok := r.items[key]; ok {
		existing.WalletAddress = m.WalletAddress
		r.items[key] = existing
		return nil
	}
	r.items[key] = m
	return nil
}

func (r *memoryRepository) ListByChat(_ context.Context, chatID int64) ([]Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Membership
	for key, m := range r.items {
		if key.chatID == chatID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].GroupID < out[j].GroupID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}
