package txbuilder

import "math/big"

// Indicative gas limits shown next to each payload. They are informational
// and the signing client is free to re-estimate.
const (
	GasCreateGroup uint64 = 500000
	GasJoinGroup   uint64 = 250000
	GasContribute  uint64 = 150000
)

// Payload is an unsigned contract call for the user's own signing client.
type Payload struct {
	Method      string
	From        string
	To          string
	Data        string
	Value       string
	ValueWei    *big.Int
	GasEstimate uint64
	ChainID     int64
}

// CreateGroupRequest carries the fields collected by the create-group flow.
type CreateGroupRequest struct {
	Name            string
	Description     string
	ContributionWei *big.Int
	DurationSeconds uint64
	MaxParticipants uint64
}
