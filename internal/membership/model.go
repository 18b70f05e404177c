package membership

import "time"

// Membership is local bookkeeping of a join the user was asked to sign.
// It is written before the chain confirms anything and is not proof of
// on-chain membership.
type Membership struct {
	ID            string
	ChatID        int64
	GroupID       uint64
	WalletAddress string
	JoinedAt      time.Time
}
