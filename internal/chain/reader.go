package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Reader performs the raw contract reads behind the aggregator.
type Reader interface {
	ActiveGroups(ctx context.Context, offset, limit uint64) ([]GroupView, error)
	Group(ctx context.Context, groupID uint64) (GroupView, error)
	UserStatus(ctx context.Context, contract, wallet string) (StatusView, error)
	CycleInfo(ctx context.Context, contract string) (CycleView, error)
	PayoutHistory(ctx context.Context, contract string) ([]PayoutRecord, error)
	Participants(ctx context.Context, contract string) ([]string, error)
}

// groupTuple mirrors the registry's group struct as decoded by the abi package.
type groupTuple struct {
	Id                  *big.Int
	Name                string
	Description         string
	ContributionAmount  *big.Int
	CycleDuration       *big.Int
	CurrentParticipants *big.Int
	MaxParticipants     *big.Int
	Creator             common.Address
	GroupContract       common.Address
	CreatedAt           *big.Int
	IsActive            bool
}

type payoutTuple struct {
	Recipient common.Address
	Amount    *big.Int
	Timestamp *big.Int
}

// ContractReader reads the registry and group contracts over JSON-RPC.
type ContractReader struct {
	backend  bind.ContractCaller
	registry *bind.BoundContract
}

// NewContractReader binds the registry at the given address. Group contracts
// are bound per call since their addresses come from the registry.
func NewContractReader(backend bind.ContractCaller, registry common.Address) *ContractReader {
	return &ContractReader{
		backend:  backend,
		registry: bind.NewBoundContract(registry, RegistryABI, backend, nil, nil),
	}
}

// ActiveGroups reads one page of the registry's active group listing.
func (r *ContractReader) ActiveGroups(ctx context.Context, offset, limit uint64) ([]GroupView, error) {
	var out []interface{}
	err := r.registry.Call(callOpts(ctx), &out, "getActiveGroups", new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(out[0], new([]groupTuple)).(*[]groupTuple)
	groups := make([]GroupView, 0, len(tuples))
	for _, t := range tuples {
		groups = append(groups, t.view())
	}
	return groups, nil
}

// Group reads a single group's metadata from the registry.
func (r *ContractReader) Group(ctx context.Context, groupID uint64) (GroupView, error) {
	var out []interface{}
	if err := r.registry.Call(callOpts(ctx), &out, "getGroup", new(big.Int).SetUint64(groupID)); err != nil {
		return GroupView{}, err
	}
	t := *abi.ConvertType(out[0], new(groupTuple)).(*groupTuple)
	return t.view(), nil
}

// UserStatus reads a wallet's standing in a group contract.
func (r *ContractReader) UserStatus(ctx context.Context, contract, wallet string) (StatusView, error) {
	var out []interface{}
	if err := r.group(contract).Call(callOpts(ctx), &out, "getUserStatus", common.HexToAddress(wallet)); err != nil {
		return StatusView{}, err
	}
	return StatusView{
		Enrolled:             *abi.ConvertType(out[0], new(bool)).(*bool),
		ContributedThisCycle: *abi.ConvertType(out[1], new(bool)).(*bool),
		TotalContributions:   toUint64(*abi.ConvertType(out[2], new(*big.Int)).(**big.Int)),
		ReceivedPayout:       *abi.ConvertType(out[3], new(bool)).(*bool),
	}, nil
}

// CycleInfo reads the group's current cycle.
func (r *ContractReader) CycleInfo(ctx context.Context, contract string) (CycleView, error) {
	var out []interface{}
	if err := r.group(contract).Call(callOpts(ctx), &out, "getCurrentCycleInfo"); err != nil {
		return CycleView{}, err
	}
	recipient := *abi.ConvertType(out[3], new(common.Address)).(*common.Address)
	remaining := *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)

	view := CycleView{
		Number:            toUint64(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)),
		PoolWei:           *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		ContributionsMade: toUint64(*abi.ConvertType(out[2], new(*big.Int)).(**big.Int)),
		RemainingSeconds:  toSeconds(remaining),
	}
	if recipient != (common.Address{}) {
		view.Recipient = lowerHex(recipient)
	}
	return view, nil
}

// PayoutHistory reads the group's payouts in the order the contract stores them.
func (r *ContractReader) PayoutHistory(ctx context.Context, contract string) ([]PayoutRecord, error) {
	var out []interface{}
	if err := r.group(contract).Call(callOpts(ctx), &out, "getPayoutHistory"); err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(out[0], new([]payoutTuple)).(*[]payoutTuple)
	records := make([]PayoutRecord, 0, len(tuples))
	for _, t := range tuples {
		records = append(records, PayoutRecord{
			Recipient: lowerHex(t.Recipient),
			AmountWei: t.Amount,
			Timestamp: toTime(t.Timestamp),
		})
	}
	return records, nil
}

// Participants reads the enrolled wallets of a group.
func (r *ContractReader) Participants(ctx context.Context, contract string) ([]string, error) {
	var out []interface{}
	if err := r.group(contract).Call(callOpts(ctx), &out, "getParticipants"); err != nil {
		return nil, err
	}
	addrs := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	wallets := make([]string, 0, len(addrs))
	for _, a := range addrs {
		wallets = append(wallets, lowerHex(a))
	}
	return wallets, nil
}

func (r *ContractReader) group(contract string) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(contract), GroupABI, r.backend, nil, nil)
}

func (t groupTuple) view() GroupView {
	return GroupView{
		ID:                  toUint64(t.Id),
		Name:                t.Name,
		Description:         t.Description,
		ContributionWei:     t.ContributionAmount,
		CycleDuration:       toUint64(t.CycleDuration),
		CurrentParticipants: toUint64(t.CurrentParticipants),
		MaxParticipants:     toUint64(t.MaxParticipants),
		Creator:             lowerHex(t.Creator),
		Contract:            lowerHex(t.GroupContract),
		CreatedAt:           toTime(t.CreatedAt),
		Active:              t.IsActive,
	}
}

func callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

func toUint64(v *big.Int) uint64 {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

// toSeconds clamps an int256 duration to int64. Negative values read as 0.
func toSeconds(v *big.Int) int64 {
	switch {
	case v == nil || v.Sign() <= 0:
		return 0
	case !v.IsInt64():
		return math.MaxInt64
	default:
		return v.Int64()
	}
}

func toTime(v *big.Int) time.Time {
	if v == nil || v.Sign() <= 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

var _ Reader = (*ContractReader)(nil)

// errorf wraps an RPC failure as a chain query error.
func errorf(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrChainQuery, op, err)
}
