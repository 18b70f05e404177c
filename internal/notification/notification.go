package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/rosca_bridge/internal/logging"
)

const (
	// KindWalletLinked confirms a successful wallet link.
	KindWalletLinked = "wallet_linked"
	// KindGroupJoined follows a prepared join transaction.
	KindGroupJoined = "group_joined"
	// KindContribution follows a prepared contribution.
	KindContribution = "contribution"
)

// ErrDelivery marks a failed send. It is carried in an Outcome, never returned.
var ErrDelivery = errors.New("notification delivery failed")

// Message describes a notification payload addressed to a chat identity.
type Message struct {
	Kind   string
	ChatID int64
	Body   string
}

// Outcome reports what happened to one Notify call. Callers may ignore it.
type Outcome struct {
	ChatID    int64
	Kind      string
	Delivered bool
	Err       error
}

// Sender delivers text to a chat identity.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Dispatcher performs at-most-once, best-effort delivery. Failures are logged
// and reported in the Outcome; they are not retried and never propagate to
// the state change that triggered them.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

// NewDispatcher constructs a dispatcher over sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

// Notify sends message once and reports the outcome.
func (d *Dispatcher) Notify(ctx context.Context, message Message) Outcome {
	outcome := Outcome{ChatID: message.ChatID, Kind: message.Kind}
	if d == nil || d.sender == nil {
		outcome.Err = fmt.Errorf("%w: no sender configured", ErrDelivery)
		return outcome
	}

	if err := d.sender.Send(ctx, message.ChatID, message.Body); err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrDelivery, err)
		d.logger.Warn("notification not delivered",
			slog.String("kind", message.Kind),
			slog.Int64("chat_id", message.ChatID),
			slog.Any("error", err),
		)
		return outcome
	}

	outcome.Delivered = true
	return outcome
}

// LoggerSender writes every notification to the structured logger and then
// hands it to the wrapped sender, if any. Used in development.
type LoggerSender struct {
	next   Sender
	logger *slog.Logger
}

// NewLoggerSender wraps next with logging. A nil next only logs.
func NewLoggerSender(logger *slog.Logger, next Sender) *LoggerSender {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LoggerSender{next: next, logger: logger}
}

// Send logs the message and forwards it.
func (s *LoggerSender) Send(ctx context.Context, chatID int64, text string) error {
	s.logger.Info("notification", slog.Int64("chat_id", chatID), slog.String("body", text))
	if s.next == nil {
		return nil
	}
	return s.next.Send(ctx, chatID, text)
}
