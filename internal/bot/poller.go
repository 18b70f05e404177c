package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/congo-pay/rosca_bridge/internal/logging"
	"github.com/congo-pay/rosca_bridge/internal/worker"
)

const pollTimeoutSeconds = 30

// UpdateSource is the long-polling side of the Telegram client.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dispatcher runs one decoded action.
type Dispatcher interface {
	Dispatch(ctx context.Context, chatID int64, action Action) error
}

// Poller feeds Telegram updates into the worker pool keyed by chat id, so a
// chat's events are handled in order and a slow chain read for one chat does
// not hold up the others.
type Poller struct {
	source UpdateSource
	router Dispatcher
	pool   *worker.Pool
	logger *slog.Logger
}

// NewPoller creates a poller.
func NewPoller(source UpdateSource, router Dispatcher, pool *worker.Pool, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{source: source, router: router, pool: pool, logger: logger}
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := p.source.GetUpdatesChan(cfg)
	defer p.source.StopReceivingUpdates()

	p.logger.Info("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.handle(update)
		}
	}
}

func (p *Poller) handle(update tgbotapi.Update) {
	in, ok := decodeUpdate(update)
	if !ok {
		return
	}
	if in.err != nil {
		logging.ForChat(p.logger, in.chatID).Warn("ignoring update", slog.Any("error", in.err))
		p.answer(in.callbackID)
		return
	}

	err := p.pool.Submit(in.chatID, func(ctx context.Context) {
		p.answer(in.callbackID)
		if err := p.router.Dispatch(ctx, in.chatID, in.action); err != nil {
			logging.ForChat(p.logger, in.chatID).Error("reply not sent", slog.Any("error", err))
		}
	})
	if err != nil {
		logging.ForChat(p.logger, in.chatID).Warn("update dropped", slog.Any("error", err))
	}
}

// answer stops the button's loading spinner.
func (p *Poller) answer(callbackID string) {
	if callbackID == "" {
		return
	}
	if _, err := p.source.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		p.logger.Debug("callback answer failed", slog.Any("error", err))
	}
}

type inbound struct {
	chatID     int64
	callbackID string
	action     Action
	err        error
}

func decodeUpdate(update tgbotapi.Update) (inbound, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		in := inbound{callbackID: q.ID}
		switch {
		case q.Message != nil && q.Message.Chat != nil:
			in.chatID = q.Message.Chat.ID
		case q.From != nil:
			in.chatID = q.From.ID
		default:
			return inbound{}, false
		}
		in.action, in.err = ParseCallback(q.Data)
		return in, true
	case update.Message != nil && update.Message.Chat != nil:
		return inbound{chatID: update.Message.Chat.ID, action: ParseCommand(update.Message.Text)}, true
	default:
		return inbound{}, false
	}
}
