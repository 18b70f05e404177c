package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/logging"
	"github.com/congo-pay/rosca_bridge/internal/txbuilder"
)

const secondsPerDay = 86400

var (
	// ErrValidation is returned when an answer is rejected. The flow stays on
	// the same step.
	ErrValidation = errors.New("invalid input")
	// ErrUnknownFlow is returned by Start for flows the engine does not run.
	ErrUnknownFlow = errors.New("unknown conversation flow")
)

// Composer builds the transaction a completed create-group flow submits.
type Composer interface {
	CreateGroup(ctx context.Context, chatID int64, req txbuilder.CreateGroupRequest) (txbuilder.Payload, error)
}

// Reply is what the chat user sees after a step. Payload is set only when a
// flow reached submit and the composer succeeded.
type Reply struct {
	Text    string
	Step    Step
	Done    bool
	Payload *txbuilder.Payload
	Request *txbuilder.CreateGroupRequest
}

// Engine runs one flow per chat identity over a Store.
type Engine struct {
	store    Store
	composer Composer
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates a conversation engine.
func NewEngine(store Store, composer Composer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{store: store, composer: composer, logger: logger, now: time.Now}
}

// Start begins flow for chatID, silently replacing any unfinished one.
func (e *Engine) Start(ctx context.Context, chatID int64, flow Flow) (Reply, error) {
	if flow != FlowCreateGroup {
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownFlow, flow)
	}
	prev, err := e.store.Get(ctx, chatID)
	if err != nil {
		return Reply{}, err
	}
	if prev != nil {
		logging.ForChat(e.logger, chatID).Debug("conversation superseded",
			slog.String("flow", string(prev.Flow)),
			slog.String("step", string(prev.Step)),
		)
	}
	state := State{ChatID: chatID, Flow: flow, Step: StepName, StartedAt: e.now().UTC()}
	if err := e.store.Put(ctx, state); err != nil {
		return Reply{}, err
	}
	return Reply{Text: prompt(StepName), Step: StepName}, nil
}

// Active reports whether chatID is in the middle of a flow.
func (e *Engine) Active(ctx context.Context, chatID int64) (bool, error) {
	state, err := e.store.Get(ctx, chatID)
	return state != nil, err
}

// Cancel drops any flow of chatID.
func (e *Engine) Cancel(ctx context.Context, chatID int64) error {
	return e.store.Delete(ctx, chatID)
}

// Handle feeds one plain-text message into the active flow. ok is false when
// the chat has no active flow and the text was ignored. A rejected answer
// returns the re-prompt together with an error wrapping ErrValidation.
func (e *Engine) Handle(ctx context.Context, chatID int64, text string) (reply Reply, ok bool, err error) {
	state, err := e.store.Get(ctx, chatID)
	if err != nil {
		return Reply{}, false, err
	}
	if state == nil {
		return Reply{}, false, nil
	}

	text = strings.TrimSpace(text)
	if err := apply(state, text); err != nil {
		return Reply{Text: fmt.Sprintf("❌ %s\n\n%s", errorText(err), prompt(state.Step)), Step: state.Step}, true, err
	}

	state.Step = next(state.Step)
	if state.Step != StepSubmit {
		if err := e.store.Put(ctx, *state); err != nil {
			return Reply{}, true, err
		}
		return Reply{Text: prompt(state.Step), Step: state.Step}, true, nil
	}

	reply, err = e.submit(ctx, *state)
	return reply, true, err
}

// submit hands the fields to the composer once. The state is removed
// whatever the composer returns.
func (e *Engine) submit(ctx context.Context, state State) (Reply, error) {
	if err := e.store.Delete(ctx, state.ChatID); err != nil {
		return Reply{}, err
	}

	amount, ok := new(big.Int).SetString(state.Fields.AmountWei, 10)
	if !ok {
		return Reply{Done: true, Step: StepSubmit}, fmt.Errorf("%w: stored amount %q", ErrValidation, state.Fields.AmountWei)
	}
	req := txbuilder.CreateGroupRequest{
		Name:            state.Fields.Name,
		Description:     state.Fields.Description,
		ContributionWei: amount,
		DurationSeconds: state.Fields.DurationSeconds,
		MaxParticipants: state.Fields.MaxParticipants,
	}
	reply := Reply{Done: true, Step: StepSubmit, Request: &req}

	payload, err := e.composer.CreateGroup(ctx, state.ChatID, req)
	if err != nil {
		logging.ForChat(e.logger, state.ChatID).Warn("create group payload failed", slog.String("error", err.Error()))
		return reply, err
	}
	reply.Payload = &payload
	reply.Text = fmt.Sprintf("✅ %q is ready: %s per %d days, up to %d members.",
		req.Name, state.Fields.Amount, state.Fields.DurationDays, req.MaxParticipants)
	return reply, nil
}

func apply(state *State, text string) error {
	f := &state.Fields
	switch state.Step {
	case StepName:
		if text == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		f.Name = text
	case StepDescription:
		if text == "" {
			return fmt.Errorf("%w: description cannot be empty", ErrValidation)
		}
		f.Description = text
	case StepAmount:
		wei, err := chain.ToWei(text)
		if err != nil || wei.Sign() <= 0 {
			return fmt.Errorf("%w: amount must be a positive number", ErrValidation)
		}
		f.Amount = chain.FromWei(wei)
		f.AmountWei = wei.String()
	case StepDuration:
		days, err := strconv.ParseUint(text, 10, 32)
		if err != nil || days == 0 {
			return fmt.Errorf("%w: duration must be a whole number of days", ErrValidation)
		}
		f.DurationDays = days
		f.DurationSeconds = days * secondsPerDay
	case StepParticipants:
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil || n < txbuilder.MinParticipants || n > txbuilder.MaxParticipants {
			return fmt.Errorf("%w: participants must be between %d and %d",
				ErrValidation, txbuilder.MinParticipants, txbuilder.MaxParticipants)
		}
		f.MaxParticipants = n
	default:
		return fmt.Errorf("%w: unexpected step %s", ErrValidation, state.Step)
	}
	return nil
}

func next(step Step) Step {
	switch step {
	case StepName:
		return StepDescription
	case StepDescription:
		return StepAmount
	case StepAmount:
		return StepDuration
	case StepDuration:
		return StepParticipants
	default:
		return StepSubmit
	}
}

func prompt(step Step) string {
	switch step {
	case StepName:
		return "📝 What should the group be called?"
	case StepDescription:
		return "📄 Give the group a short description."
	case StepAmount:
		return "💰 How much should each member contribute per cycle? (e.g. 0.1)"
	case StepDuration:
		return "⏱ How many days does one cycle last?"
	case StepParticipants:
		return fmt.Sprintf("👥 How many members at most? (%d-%d)", txbuilder.MinParticipants, txbuilder.MaxParticipants)
	default:
		return ""
	}
}

func errorText(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
