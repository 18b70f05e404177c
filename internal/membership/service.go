package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/logging"
)

// ErrPersistence wraps membership store failures.
var ErrPersistence = errors.New("membership store failure")

// Service records which groups a chat identity asked to join.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a membership service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record upserts the (chat, group) pair with the current wallet snapshot.
// Nothing here checks that the join was mined.
func (s *Service) Record(ctx context.Context, chatID int64, groupID uint64, wallet string) (Membership, error) {
	addr, err := chain.NormalizeAddress(wallet)
	if err != nil {
		return Membership{}, err
	}
	m := Membership{
		ID:            uuid.NewString(),
		ChatID:        chatID,
		GroupID:       groupID,
		WalletAddress: addr,
		JoinedAt:      s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, m); err != nil {
		return Membership{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Info("membership recorded",
		slog.Int64("chat_id", chatID),
		slog.Uint64("group_id", groupID),
		slog.String("wallet", addr),
	)
	return m, nil
}

// GroupsOf lists a chat's memberships in join order.
func (s *Service) GroupsOf(ctx context.Context, chatID int64) ([]Membership, error) {
	items, err := s.repo.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return items, nil
}

// GroupIDs lists the group ids of a chat's memberships in join order.
func (s *Service) GroupIDs(ctx context.Context, chatID int64) ([]uint64, error) {
	items, err := s.GroupsOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.GroupID)
	}
	return ids, nil
}
