package txbuilder

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/identity"
)

const (
	registry  = "0x00000000000000000000000000000000000000A1"
	member    = "0x2222222222222222222222222222222222222222"
	groupAddr = "0x000000000000000000000000000000000000c001"
	linkedID  = int64(12345)
)

type walletStub map[int64]string

func (w walletStub) WalletOf(_ context.Context, chatID int64) (string, error) {
	addr, ok := w[chatID]
	if !ok {
		return "", identity.ErrNotLinked
	}
	return addr, nil
}

func newTestBuilder(t *testing.T) (*Builder, *chain.MemoryReader) {
	t.Helper()
	reader := chain.NewMemoryReader()
	reader.AddGroup(chain.GroupView{
		ID:                  1,
		Name:                "Savings Circle",
		ContributionWei:     big.NewInt(100_000_000_000_000_000),
		CycleDuration:       2592000,
		CurrentParticipants: 3,
		MaxParticipants:     10,
		Contract:            groupAddr,
		Active:              true,
	})
	reader.AddGroup(chain.GroupView{
		ID:                  2,
		Name:                "Full House",
		ContributionWei:     big.NewInt(1),
		CurrentParticipants: 5,
		MaxParticipants:     5,
		Contract:            "0x000000000000000000000000000000000000c002",
		Active:              true,
	})
	b, err := NewBuilder(walletStub{linkedID: member}, chain.NewAggregator(reader, nil), registry, 296, nil)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	return b, reader
}

func decodeArgs(t *testing.T, method string, p Payload) []interface{} {
	t.Helper()
	data, err := hexutil.Decode(p.Data)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	m := chain.RegistryABI.Methods[method]
	if string(data[:4]) != string(m.ID) {
		t.Fatalf("selector mismatch for %s", method)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack %s: %v", method, err)
	}
	return args
}

func TestCreateGroupEncodesFields(t *testing.T) {
	b, _ := newTestBuilder(t)
	amount := big.NewInt(100_000_000_000_000_000)

	p, err := b.CreateGroup(context.Background(), linkedID, CreateGroupRequest{
		Name:            "Savings Circle",
		Description:     "monthly pool",
		ContributionWei: amount,
		DurationSeconds: 2592000,
		MaxParticipants: 10,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if p.To != "0x00000000000000000000000000000000000000a1" {
		t.Fatalf("unexpected target %s", p.To)
	}
	if p.GasEstimate != GasCreateGroup || p.ChainID != 296 || p.ValueWei.Sign() != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}

	args := decodeArgs(t, "createGroup", p)
	if args[0].(*big.Int).Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %v", args[0])
	}
	if args[1].(*big.Int).Uint64() != 2592000 || args[2].(*big.Int).Uint64() != 10 {
		t.Fatalf("duration or participants mismatch: %v %v", args[1], args[2])
	}
	if args[3].(string) != "Savings Circle" || args[4].(string) != "monthly pool" {
		t.Fatalf("strings mismatch: %v %v", args[3], args[4])
	}
}

func TestCreateGroupValidation(t *testing.T) {
	b, _ := newTestBuilder(t)
	for _, n := range []uint64{MinParticipants - 1, MaxParticipants + 1} {
		req := CreateGroupRequest{Name: "x", ContributionWei: big.NewInt(1), DurationSeconds: 86400, MaxParticipants: n}
		if _, err := b.CreateGroup(context.Background(), linkedID, req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("participants %d: expected ErrInvalidRequest, got %v", n, err)
		}
	}
	for _, n := range []uint64{MinParticipants, MaxParticipants} {
		req := CreateGroupRequest{Name: "x", ContributionWei: big.NewInt(1), DurationSeconds: 86400, MaxParticipants: n}
		if _, err := b.CreateGroup(context.Background(), linkedID, req); err != nil {
			t.Fatalf("participants %d: expected success, got %v", n, err)
		}
	}
}

func TestRequiresLinkedWallet(t *testing.T) {
	b, _ := newTestBuilder(t)
	ctx := context.Background()
	if _, err := b.JoinGroup(ctx, 999, 1); !errors.Is(err, identity.ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked from join, got %v", err)
	}
	if _, err := b.Contribute(ctx, 999, 1); !errors.Is(err, identity.ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked from contribute, got %v", err)
	}
}

func TestJoinGroup(t *testing.T) {
	b, _ := newTestBuilder(t)

	p, err := b.JoinGroup(context.Background(), linkedID, 1)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	args := decodeArgs(t, "joinGroup", p)
	if args[0].(*big.Int).Uint64() != 1 {
		t.Fatalf("group id mismatch: %v", args[0])
	}
	if p.From != member {
		t.Fatalf("expected from %s, got %s", member, p.From)
	}

	if _, err := b.JoinGroup(context.Background(), linkedID, 2); !errors.Is(err, ErrGroupFull) {
		t.Fatalf("expected ErrGroupFull, got %v", err)
	}
}

func TestContributePreconditions(t *testing.T) {
	b, reader := newTestBuilder(t)
	ctx := context.Background()

	if _, err := b.Contribute(ctx, linkedID, 1); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}

	reader.SetStatus(groupAddr, member, chain.StatusView{Enrolled: true, ContributedThisCycle: true})
	if _, err := b.Contribute(ctx, linkedID, 1); !errors.Is(err, ErrAlreadyContributed) {
		t.Fatalf("expected ErrAlreadyContributed, got %v", err)
	}

	reader.SetStatus(groupAddr, member, chain.StatusView{Enrolled: true})
	p, err := b.Contribute(ctx, linkedID, 1)
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if p.To != groupAddr {
		t.Fatalf("expected group contract target, got %s", p.To)
	}
	if p.Value != "0.1" || p.GasEstimate != GasContribute {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Data != hexutil.Encode(chain.GroupABI.Methods["contribute"].ID) {
		t.Fatalf("unexpected calldata %s", p.Data)
	}
}

func TestContributeSurfacesChainErrors(t *testing.T) {
	b, reader := newTestBuilder(t)
	reader.FailContract(groupAddr, errors.New("rpc down"))
	if _, err := b.Contribute(context.Background(), linkedID, 1); !errors.Is(err, chain.ErrChainQuery) {
		t.Fatalf("expected ErrChainQuery, got %v", err)
	}
}
