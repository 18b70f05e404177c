package chain

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrUnknownGroup is returned by MemoryReader for ids or contracts it has not seen.
var ErrUnknownGroup = errors.New("unknown group")

// MemoryReader is an in-memory Reader for tests and local runs without a node.
type MemoryReader struct {
	mu           sync.RWMutex
	groups       []GroupView
	statuses     map[string]StatusView
	cycles       map[string]CycleView
	payouts      map[string][]PayoutRecord
	participants map[string][]string
	failGroups   map[uint64]error
	failContract map[string]error
}

// NewMemoryReader creates an empty in-memory chain.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{
		statuses:     make(map[string]StatusView),
		cycles:       make(map[string]CycleView),
		payouts:      make(map[string][]PayoutRecord),
		participants: make(map[string][]string),
		failGroups:   make(map[uint64]error),
		failContract: make(map[string]error),
	}
}

// AddGroup registers group metadata.
func (m *MemoryReader) AddGroup(g GroupView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.Contract = strings.ToLower(g.Contract)
	g.Creator = strings.ToLower(g.Creator)
	m.groups = append(m.groups, g)
}

// SetStatus seeds a wallet's status in a group contract.
func (m *MemoryReader) SetStatus(contract, wallet string, s StatusView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[statusKey(contract, wallet)] = s
}

// SetCycle seeds the current cycle of a group contract.
func (m *MemoryReader) SetCycle(contract string, c CycleView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[strings.ToLower(contract)] = c
}

// SetPayouts seeds the payout history of a group contract.
func (m *MemoryReader) SetPayouts(contract string, p []PayoutRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts[strings.ToLower(contract)] = p
}

// SetParticipants seeds the participants of a group contract.
func (m *MemoryReader) SetParticipants(contract string, wallets []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[strings.ToLower(contract)] = wallets
}

// FailGroup makes every registry lookup of id fail with err.
func (m *MemoryReader) FailGroup(id uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGroups[id] = err
}

// FailContract makes every read against contract fail with err.
func (m *MemoryReader) FailContract(contract string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failContract[strings.ToLower(contract)] = err
}

func (m *MemoryReader) ActiveGroups(_ context.Context, offset, limit uint64) ([]GroupView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []GroupView
	for _, g := range m.groups {
		if g.Active {
			active = append(active, g)
		}
	}
	if offset >= uint64(len(active)) {
		return []GroupView{}, nil
	}
	end := offset + limit
	if limit == 0 || end > uint64(len(active)) {
		end = uint64(len(active))
	}
	return append([]GroupView(nil), active[offset:end]...), nil
}

func (m *MemoryReader) Group(_ context.Context, groupID uint64) (GroupView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.failGroups[groupID]; ok {
		return GroupView{}, err
	}
	for _, g := range m.groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return GroupView{}, ErrUnknownGroup
}

func (m *MemoryReader) UserStatus(_ context.Context, contract, wallet string) (StatusView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.contractErr(contract); err != nil {
		return StatusView{}, err
	}
	return m.statuses[statusKey(contract, wallet)], nil
}

func (m *MemoryReader) CycleInfo(_ context.Context, contract string) (CycleView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.contractErr(contract); err != nil {
		return CycleView{}, err
	}
	c, ok := m.cycles[strings.ToLower(contract)]
	if !ok {
		return CycleView{}, ErrUnknownGroup
	}
	return c, nil
}

func (m *MemoryReader) PayoutHistory(_ context.Context, contract string) ([]PayoutRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.contractErr(contract); err != nil {
		return nil, err
	}
	return append([]PayoutRecord(nil), m.payouts[strings.ToLower(contract)]...), nil
}

func (m *MemoryReader) Participants(_ context.Context, contract string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.contractErr(contract); err != nil {
		return nil, err
	}
	return append([]string(nil), m.participants[strings.ToLower(contract)]...), nil
}

func (m *MemoryReader) contractErr(contract string) error {
	return m.failContract[strings.ToLower(contract)]
}

func statusKey(contract, wallet string) string {
	return strings.ToLower(contract) + "|" + strings.ToLower(wallet)
}

var _ Reader = (*MemoryReader)(nil)
