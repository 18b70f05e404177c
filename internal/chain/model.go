package chain

import (
	"math/big"
	"time"
)

// GroupView is the registry's description of one ROSCA group.
type GroupView struct {
	ID                  uint64
	Name                string
	Description         string
	ContributionWei     *big.Int
	CycleDuration       uint64
	CurrentParticipants uint64
	MaxParticipants     uint64
	Creator             string
	Contract            string
	CreatedAt           time.Time
	Active              bool
}

// Contribution returns the per-cycle contribution as a decimal string.
func (g GroupView) Contribution() string {
	return FromWei(g.ContributionWei)
}

// Full reports whether the group has no free seats left.
func (g GroupView) Full() bool {
	return g.MaxParticipants > 0 && g.CurrentParticipants >= g.MaxParticipants
}

// StatusView is one wallet's standing inside a group contract.
type StatusView struct {
	Enrolled             bool
	ContributedThisCycle bool
	TotalContributions   uint64
	ReceivedPayout       bool
}

// CycleView summarizes the group's current cycle. Recipient is empty while
// the payout recipient is not yet determined.
type CycleView struct {
	Number            uint64
	PoolWei           *big.Int
	ContributionsMade uint64
	Recipient         string
	RemainingSeconds  int64
}

// Remaining renders RemainingSeconds for display.
func (c CycleView) Remaining() string {
	return FormatRemaining(c.RemainingSeconds)
}

// PayoutRecord is one historical payout.
type PayoutRecord struct {
	Recipient string
	AmountWei *big.Int
	Timestamp time.Time
}

// MemberGroup pairs group metadata with the caller's status in it.
type MemberGroup struct {
	Group  GroupView
	Status StatusView
}

// GroupHistory is the payout history of one group.
type GroupHistory struct {
	Group   GroupView
	Payouts []PayoutRecord
}

// GroupStatusView composes metadata with optional status and cycle parts.
// Status and Cycle are nil when their read failed or was not requested.
type GroupStatusView struct {
	Group        GroupView
	Status       *StatusView
	Cycle        *CycleView
	Participants []string
}
