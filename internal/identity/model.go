package identity

import "time"

// User links a chat identity to at most one wallet address.
type User struct {
	ChatID        int64
	WalletAddress string
	CreatedAt     time.Time
}

// Linked reports whether the user has a wallet on record.
func (u User) Linked() bool {
	return u.WalletAddress != ""
}

// AuthSession is the append-only audit record of a completed link.
type AuthSession struct {
	ID        string
	UserID    int64
	Message   string
	Signature string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// LinkRequest is the signed payload posted back by the wallet page.
type LinkRequest struct {
	ChatID    int64
	Account   string
	Signature string
	Message   string
}

// LinkResult describes a successful wallet link.
type LinkResult struct {
	ChatID    int64
	Wallet    string
	SessionID string
	ExpiresAt time.Time
	Notified  bool
}
