package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/logging"
)

// Participant bounds accepted by createGroup.
const (
	MinParticipants = 2
	MaxParticipants = 50
)

var (
	// ErrInvalidRequest is returned when create-group fields are out of range.
	ErrInvalidRequest = errors.New("invalid transaction request")
	// ErrGroupFull is returned when a group has no free seats.
	ErrGroupFull = errors.New("group is full")
	// ErrGroupInactive is returned when the registry marks a group inactive.
	ErrGroupInactive = errors.New("group is not active")
	// ErrNotEnrolled is returned when contributing to a group the wallet is not part of.
	ErrNotEnrolled = errors.New("wallet is not a member of this group")
	// ErrAlreadyContributed is returned when the wallet already paid this cycle.
	ErrAlreadyContributed = errors.New("already contributed this cycle")
)

// WalletLookup resolves the linked wallet of a chat identity.
type WalletLookup interface {
	WalletOf(ctx context.Context, chatID int64) (string, error)
}

// Views is the part of the chain aggregator the builder checks preconditions with.
type Views interface {
	GetGroupMetadata(ctx context.Context, groupID uint64) (chain.GroupView, error)
	GetUserStatus(ctx context.Context, contract, wallet string) (chain.StatusView, error)
}

// Builder encodes create, join and contribute calls. It never signs or sends.
type Builder struct {
	wallets  WalletLookup
	views    Views
	registry string
	chainID  int64
	logger   *slog.Logger
}

// NewBuilder creates a payload builder for the given registry contract.
func NewBuilder(wallets WalletLookup, views Views, registry string, chainID int64, logger *slog.Logger) (*Builder, error) {
	addr, err := chain.NormalizeAddress(registry)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{wallets: wallets, views: views, registry: addr, chainID: chainID, logger: logger}, nil
}

// CreateGroup builds registry.createGroup(amount, duration, maxParticipants, name, description).
func (b *Builder) CreateGroup(ctx context.Context, chatID int64, req CreateGroupRequest) (Payload, error) {
	wallet, err := b.wallets.WalletOf(ctx, chatID)
	if err != nil {
		return Payload{}, err
	}
	if err := validateCreate(req); err != nil {
		return Payload{}, err
	}

	data, err := pack(chain.RegistryABI, "createGroup",
		req.ContributionWei,
		new(big.Int).SetUint64(req.DurationSeconds),
		new(big.Int).SetUint64(req.MaxParticipants),
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Description),
	)
	if err != nil {
		return Payload{}, err
	}
	return b.payload("createGroup", wallet, b.registry, data, nil, GasCreateGroup, chatID), nil
}

// JoinGroup builds registry.joinGroup(groupId) after checking the group has room.
func (b *Builder) JoinGroup(ctx context.Context, chatID int64, groupID uint64) (Payload, error) {
	wallet, err := b.wallets.WalletOf(ctx, chatID)
	if err != nil {
		return Payload{}, err
	}
	group, err := b.views.GetGroupMetadata(ctx, groupID)
	if err != nil {
		return Payload{}, err
	}
	if !group.Active {
		return Payload{}, ErrGroupInactive
	}
	if group.Full() {
		return Payload{}, ErrGroupFull
	}

	data, err := pack(chain.RegistryABI, "joinGroup", new(big.Int).SetUint64(groupID))
	if err != nil {
		return Payload{}, err
	}
	return b.payload("joinGroup", wallet, b.registry, data, nil, GasJoinGroup, chatID), nil
}

// Contribute builds group.contribute() carrying the group's contribution as value.
// The wallet must be enrolled and must not have paid this cycle yet.
func (b *Builder) Contribute(ctx context.Context, chatID int64, groupID uint64) (Payload, error) {
	wallet, err := b.wallets.WalletOf(ctx, chatID)
	if err != nil {
		return Payload{}, err
	}
	group, err := b.views.GetGroupMetadata(ctx, groupID)
	if err != nil {
		return Payload{}, err
	}
	status, err := b.views.GetUserStatus(ctx, group.Contract, wallet)
	if err != nil {
		return Payload{}, err
	}
	if !status.Enrolled {
		return Payload{}, ErrNotEnrolled
	}
	if status.ContributedThisCycle {
		return Payload{}, ErrAlreadyContributed
	}

	data, err := pack(chain.GroupABI, "contribute")
	if err != nil {
		return Payload{}, err
	}
	return b.payload("contribute", wallet, group.Contract, data, group.ContributionWei, GasContribute, chatID), nil
}

func (b *Builder) payload(method, from, to string, data []byte, value *big.Int, gas uint64, chatID int64) Payload {
	if value == nil {
		value = new(big.Int)
	}
	p := Payload{
		Method:      method,
		From:        from,
		To:          to,
		Data:        hexutil.Encode(data),
		Value:       chain.FromWei(value),
		ValueWei:    new(big.Int).Set(value),
		GasEstimate: gas,
		ChainID:     b.chainID,
	}
	b.logger.Info("payload built",
		slog.Int64("chat_id", chatID),
		slog.String("method", method),
		slog.String("to", to),
		slog.String("value_wei", p.ValueWei.String()),
	)
	return p
}

func validateCreate(req CreateGroupRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case req.ContributionWei == nil || req.ContributionWei.Sign() <= 0:
		return fmt.Errorf("%w: contribution must be positive", ErrInvalidRequest)
	case req.DurationSeconds == 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	case req.MaxParticipants < MinParticipants || req.MaxParticipants > MaxParticipants:
		return fmt.Errorf("%w: participants must be between %d and %d", ErrInvalidRequest, MinParticipants, MaxParticipants)
	}
	return nil
}

func pack(contract abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return data, nil
}
