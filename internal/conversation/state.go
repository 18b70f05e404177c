package conversation

import "time"

// Flow names a multi-step conversation.
type Flow string

// Step names the field a flow is waiting for.
type Step string

const (
	FlowCreateGroup Flow = "create_group"

	StepName         Step = "name"
	StepDescription  Step = "description"
	StepAmount       Step = "amount"
	StepDuration     Step = "duration"
	StepParticipants Step = "participants"
	StepSubmit       Step = "submit"
)

// State is the in-progress flow of one chat. It is never written to the
// relational store.
type State struct {
	ChatID    int64     `json:"chatId"`
	Flow      Flow      `json:"flow"`
	Step      Step      `json:"step"`
	Fields    Fields    `json:"fields"`
	StartedAt time.Time `json:"startedAt"`
}

// Fields accumulates the validated answers of the create-group flow.
type Fields struct {
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	Amount          string `json:"amount,omitempty"`
	AmountWei       string `json:"amountWei,omitempty"`
	DurationDays    uint64 `json:"durationDays,omitempty"`
	DurationSeconds uint64 `json:"durationSeconds,omitempty"`
	MaxParticipants uint64 `json:"maxParticipants,omitempty"`
}
