package identity

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	users    map[int64]User
	sessions map[int64][]AuthSession
}

// NewMemoryRepository builds an in-memory user store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:    make(map[int64]User),
		sessions: make(map[int64][]AuthSession),
	}
}

func (r *memoryRepository) EnsureUser(_ context.Context, chatID int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[chatID]; !exists {
		r.users[chatID] = User{ChatID: chatID, CreatedAt: now.UTC()}
	}
	return nil
}

func (r *memoryRepository) FindByChatID(_ context.Context, chatID int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[chatID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) LinkWallet(_ context.Context, chatID int64, wallet string, session AuthSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[chatID]
	if !ok {
		user = User{ChatID: chatID, CreatedAt: session.CreatedAt.UTC()}
	}
	user.WalletAddress = wallet
	r.users[chatID] = user
	r.sessions[chatID] = append(r.sessions[chatID], session)
	return nil
}

func (r *memoryRepository) AuthSessions(_ context.Context, chatID int64) ([]AuthSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]AuthSession(nil), r.sessions[chatID]...), nil
}
