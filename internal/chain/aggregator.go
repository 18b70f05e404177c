package chain

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/rosca_bridge/internal/logging"
)

var (
	// ErrChainQuery wraps any failed contract read.
	ErrChainQuery = errors.New("chain query failed")
	// ErrAllFetchesFailed is returned by multi-group views when no group could be read.
	ErrAllFetchesFailed = errors.New("could not load any group from the chain")
)

const defaultFanOut = 8

// Aggregator composes contract reads into the views shown to chat users.
// Multi-group views degrade to the groups that could be read.
type Aggregator struct {
	reader Reader
	logger *slog.Logger
	fanOut int
}

// NewAggregator builds an aggregator over the given reader.
func NewAggregator(reader Reader, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Aggregator{reader: reader, logger: logger, fanOut: defaultFanOut}
}

// ListActiveGroups returns one page of active groups from the registry.
func (a *Aggregator) ListActiveGroups(ctx context.Context, offset, limit uint64) ([]GroupView, error) {
	groups, err := a.reader.ActiveGroups(ctx, offset, limit)
	if err != nil {
		return nil, errorf("getActiveGroups", err)
	}
	return groups, nil
}

// GetGroupMetadata looks up a single group in the registry.
func (a *Aggregator) GetGroupMetadata(ctx context.Context, groupID uint64) (GroupView, error) {
	group, err := a.reader.Group(ctx, groupID)
	if err != nil {
		return GroupView{}, errorf("getGroup", err)
	}
	return group, nil
}

// GetUserStatus reads a wallet's status in a group contract.
func (a *Aggregator) GetUserStatus(ctx context.Context, contract, wallet string) (StatusView, error) {
	contract, err := NormalizeAddress(contract)
	if err != nil {
		return StatusView{}, err
	}
	wallet, err = NormalizeAddress(wallet)
	if err != nil {
		return StatusView{}, err
	}
	status, err := a.reader.UserStatus(ctx, contract, wallet)
	if err != nil {
		return StatusView{}, errorf("getUserStatus", err)
	}
	return status, nil
}

// GetCycleInfo reads the current cycle of a group contract.
func (a *Aggregator) GetCycleInfo(ctx context.Context, contract string) (CycleView, error) {
	contract, err := NormalizeAddress(contract)
	if err != nil {
		return CycleView{}, err
	}
	cycle, err := a.reader.CycleInfo(ctx, contract)
	if err != nil {
		return CycleView{}, errorf("getCurrentCycleInfo", err)
	}
	return cycle, nil
}

// GetPayoutHistory reads the ordered payouts of a group contract.
func (a *Aggregator) GetPayoutHistory(ctx context.Context, contract string) ([]PayoutRecord, error) {
	contract, err := NormalizeAddress(contract)
	if err != nil {
		return nil, err
	}
	payouts, err := a.reader.PayoutHistory(ctx, contract)
	if err != nil {
		return nil, errorf("getPayoutHistory", err)
	}
	return payouts, nil
}

// GetParticipants reads the enrolled wallets of a group contract.
func (a *Aggregator) GetParticipants(ctx context.Context, contract string) ([]string, error) {
	contract, err := NormalizeAddress(contract)
	if err != nil {
		return nil, err
	}
	wallets, err := a.reader.Participants(ctx, contract)
	if err != nil {
		return nil, errorf("getParticipants", err)
	}
	return wallets, nil
}

// MyGroups loads metadata and the wallet's status for every group id.
// Groups that fail to load are omitted.
func (a *Aggregator) MyGroups(ctx context.Context, groupIDs []uint64, wallet string) ([]MemberGroup, error) {
	return fanOut(ctx, a, "my_groups", groupIDs, func(ctx context.Context, id uint64) (MemberGroup, error) {
		group, err := a.GetGroupMetadata(ctx, id)
		if err != nil {
			return MemberGroup{}, err
		}
		status, err := a.GetUserStatus(ctx, group.Contract, wallet)
		if err != nil {
			return MemberGroup{}, err
		}
		return MemberGroup{Group: group, Status: status}, nil
	})
}

// History loads the payout history of every group id. Groups that fail to
// load are omitted.
func (a *Aggregator) History(ctx context.Context, groupIDs []uint64) ([]GroupHistory, error) {
	return fanOut(ctx, a, "history", groupIDs, func(ctx context.Context, id uint64) (GroupHistory, error) {
		group, err := a.GetGroupMetadata(ctx, id)
		if err != nil {
			return GroupHistory{}, err
		}
		payouts, err := a.GetPayoutHistory(ctx, group.Contract)
		if err != nil {
			return GroupHistory{}, err
		}
		return GroupHistory{Group: group, Payouts: payouts}, nil
	})
}

// GroupStatus composes one group's metadata with the wallet's status, the
// current cycle and the participant list. Only the metadata read is required;
// the other parts are left empty when their read fails. An empty wallet skips
// the status read.
func (a *Aggregator) GroupStatus(ctx context.Context, groupID uint64, wallet string) (GroupStatusView, error) {
	group, err := a.GetGroupMetadata(ctx, groupID)
	if err != nil {
		return GroupStatusView{}, err
	}
	view := GroupStatusView{Group: group}
	logger := a.logger.With(slog.Uint64("group_id", groupID))

	var g errgroup.Group
	if wallet != "" {
		g.Go(func() error {
			status, err := a.GetUserStatus(ctx, group.Contract, wallet)
			if err != nil {
				logger.Warn("group status: user status unavailable", slog.Any("error", err))
				return nil
			}
			view.Status = &status
			return nil
		})
	}
	g.Go(func() error {
		cycle, err := a.GetCycleInfo(ctx, group.Contract)
		if err != nil {
			logger.Warn("group status: cycle info unavailable", slog.Any("error", err))
			return nil
		}
		view.Cycle = &cycle
		return nil
	})
	g.Go(func() error {
		participants, err := a.GetParticipants(ctx, group.Contract)
		if err != nil {
			logger.Warn("group status: participants unavailable", slog.Any("error", err))
			return nil
		}
		view.Participants = participants
		return nil
	})
	_ = g.Wait()

	return view, nil
}

// fanOut fetches every id independently with bounded concurrency and keeps
// the successful results in input order.
func fanOut[T any](ctx context.Context, a *Aggregator, view string, ids []uint64, fetch func(context.Context, uint64) (T, error)) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	results := make([]T, len(ids))
	ok := make([]bool, len(ids))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.fanOut)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			v, err := fetch(ctx, id)
			if err != nil {
				a.logger.Warn("group omitted from view",
					slog.String("view", view),
					slog.Uint64("group_id", id),
					slog.Any("error", err),
				)
				return nil
			}
			mu.Lock()
			results[i], ok[i] = v, true
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]T, 0, len(ids))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	if len(out) == 0 {
		return nil, ErrAllFetchesFailed
	}
	return out, nil
}
