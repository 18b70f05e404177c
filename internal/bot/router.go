package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/conversation"
	"github.com/congo-pay/rosca_bridge/internal/identity"
	"github.com/congo-pay/rosca_bridge/internal/logging"
	"github.com/congo-pay/rosca_bridge/internal/membership"
	"github.com/congo-pay/rosca_bridge/internal/notification"
	"github.com/congo-pay/rosca_bridge/internal/txbuilder"
)

const browsePageSize = 10

// Messenger sends chat replies.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Identity is the part of the identity linker the chat surface needs.
type Identity interface {
	EnsureUser(ctx context.Context, chatID int64) error
	WalletOf(ctx context.Context, chatID int64) (string, error)
	RedirectURL(chatID int64) string
}

// Views are the chain reads shown in chat.
type Views interface {
	ListActiveGroups(ctx context.Context, offset, limit uint64) ([]chain.GroupView, error)
	GroupStatus(ctx context.Context, groupID uint64, wallet string) (chain.GroupStatusView, error)
	MyGroups(ctx context.Context, groupIDs []uint64, wallet string) ([]chain.MemberGroup, error)
	History(ctx context.Context, groupIDs []uint64) ([]chain.GroupHistory, error)
}

// Composer builds join and contribute payloads.
type Composer interface {
	JoinGroup(ctx context.Context, chatID int64, groupID uint64) (txbuilder.Payload, error)
	Contribute(ctx context.Context, chatID int64, groupID uint64) (txbuilder.Payload, error)
}

// Memberships records and lists local group memberships.
type Memberships interface {
	Record(ctx context.Context, chatID int64, groupID uint64, wallet string) (membership.Membership, error)
	GroupIDs(ctx context.Context, chatID int64) ([]uint64, error)
}

// Notifier delivers best-effort notifications.
type Notifier interface {
	Notify(ctx context.Context, message notification.Message) notification.Outcome
}

// Deps bundles the Router's collaborators.
type Deps struct {
	Messenger     Messenger
	Identity      Identity
	Views         Views
	Composer      Composer
	Memberships   Memberships
	Conversations *conversation.Engine
	Notifier      Notifier
	Logger        *slog.Logger
}

// Router executes decoded actions for one chat at a time.
type Router struct {
	Deps
}

type reply struct {
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
}

// NewRouter builds a router over deps.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Router{Deps: deps}
}

// Dispatch runs action for chatID and sends the reply. Failures are turned
// into a user-facing message; the returned error only reports a failed send.
func (r *Router) Dispatch(ctx context.Context, chatID int64, action Action) error {
	out, err := r.handle(ctx, chatID, action)
	if err != nil {
		logging.ForChat(r.Logger, chatID).Warn("action failed",
			slog.String("action", fmt.Sprintf("%T", action)),
			slog.Any("error", err),
		)
		out = r.errorReply(chatID, err)
	}
	if out.text == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, out.text)
	if out.markup != nil {
		msg.ReplyMarkup = *out.markup
	}
	_, err = r.Messenger.Send(msg)
	return err
}

func (r *Router) handle(ctx context.Context, chatID int64, action Action) (reply, error) {
	switch a := action.(type) {
	case StartAction:
		return r.start(ctx, chatID)
	case HelpAction:
		menu := mainMenu()
		return reply{text: helpText, markup: &menu}, nil
	case BrowseAction:
		return r.browse(ctx)
	case CreateGroupAction:
		return r.createGroup(ctx, chatID)
	case MyGroupsAction:
		return r.myGroups(ctx, chatID)
	case ContributeMenuAction:
		return r.contributeMenu(ctx, chatID)
	case StatusAction:
		return r.statusMenu(ctx, chatID)
	case HistoryAction:
		return r.history(ctx, chatID)
	case CancelAction:
		if err := r.Conversations.Cancel(ctx, chatID); err != nil {
			return reply{}, err
		}
		return reply{text: "Cancelled."}, nil
	case JoinGroupAction:
		return r.join(ctx, chatID, a.GroupID)
	case GroupDetailsAction:
		return r.details(ctx, chatID, a.GroupID)
	case ContributeAction:
		return r.contribute(ctx, chatID, a.GroupID)
	case GroupStatusAction:
		return r.groupStatus(ctx, chatID, a.GroupID)
	case TextAction:
		return r.text(ctx, chatID, a.Body)
	case UnknownCommandAction:
		return reply{text: fmt.Sprintf("Unknown command %s. Try /help.", a.Command)}, nil
	default:
		return reply{}, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (r *Router) start(ctx context.Context, chatID int64) (reply, error) {
	if err := r.Identity.EnsureUser(ctx, chatID); err != nil {
		return reply{}, err
	}
	wallet, err := r.wallet(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	if wallet == "" {
		kb := linkKeyboard(r.Identity.RedirectURL(chatID))
		return reply{text: welcomeText(""), markup: &kb}, nil
	}
	menu := mainMenu()
	return reply{text: welcomeText(wallet), markup: &menu}, nil
}

func (r *Router) browse(ctx context.Context) (reply, error) {
	groups, err := r.Views.ListActiveGroups(ctx, 0, browsePageSize)
	if err != nil {
		return reply{}, err
	}
	text, markup := browseView(groups)
	return reply{text: text, markup: markup}, nil
}

func (r *Router) createGroup(ctx context.Context, chatID int64) (reply, error) {
	if _, err := r.Identity.WalletOf(ctx, chatID); err != nil {
		return reply{}, err
	}
	step, err := r.Conversations.Start(ctx, chatID, conversation.FlowCreateGroup)
	if err != nil {
		return reply{}, err
	}
	return reply{text: "➕ New group (send /cancel to stop)\n\n" + step.Text}, nil
}

func (r *Router) memberGroups(ctx context.Context, chatID int64) ([]chain.MemberGroup, error) {
	wallet, err := r.Identity.WalletOf(ctx, chatID)
	if err != nil {
		return nil, err
	}
	ids, err := r.Memberships.GroupIDs(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return r.Views.MyGroups(ctx, ids, wallet)
}

func (r *Router) myGroups(ctx context.Context, chatID int64) (reply, error) {
	groups, err := r.memberGroups(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	return reply{text: myGroupsView(groups)}, nil
}

func (r *Router) contributeMenu(ctx context.Context, chatID int64) (reply, error) {
	groups, err := r.memberGroups(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	text, markup := contributeMenu(groups)
	return reply{text: text, markup: markup}, nil
}

func (r *Router) statusMenu(ctx context.Context, chatID int64) (reply, error) {
	groups, err := r.memberGroups(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	views := make([]chain.GroupView, 0, len(groups))
	for _, mg := range groups {
		views = append(views, mg.Group)
	}
	text, markup := statusMenu(views)
	return reply{text: text, markup: markup}, nil
}

func (r *Router) history(ctx context.Context, chatID int64) (reply, error) {
	ids, err := r.Memberships.GroupIDs(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	if len(ids) == 0 {
		return reply{text: "You have not joined any group yet. Use /browse."}, nil
	}
	items, err := r.Views.History(ctx, ids)
	if err != nil {
		return reply{}, err
	}
	return reply{text: historyView(items)}, nil
}

// join builds the join payload and records the membership before the user
// has signed anything. The record is not reconciled with the chain later.
// The payload is the reply; the notification is only a side note.
func (r *Router) join(ctx context.Context, chatID int64, groupID uint64) (reply, error) {
	payload, err := r.Composer.JoinGroup(ctx, chatID, groupID)
	if err != nil {
		return reply{}, err
	}
	if _, err := r.Memberships.Record(ctx, chatID, groupID, payload.From); err != nil {
		return reply{}, err
	}
	r.Notifier.Notify(ctx, notification.Message{
		Kind:   notification.KindGroupJoined,
		ChatID: chatID,
		Body:   fmt.Sprintf("Group #%d saved to /mygroups. It counts once the join transaction is mined.", groupID),
	})
	return reply{text: payloadText(fmt.Sprintf("✅ Join request for group #%d prepared.", groupID), payload)}, nil
}

func (r *Router) contribute(ctx context.Context, chatID int64, groupID uint64) (reply, error) {
	payload, err := r.Composer.Contribute(ctx, chatID, groupID)
	if err != nil {
		return reply{}, err
	}
	r.Notifier.Notify(ctx, notification.Message{
		Kind:   notification.KindContribution,
		ChatID: chatID,
		Body:   fmt.Sprintf("Check /status after sending to confirm your contribution to group #%d.", groupID),
	})
	return reply{text: payloadText(fmt.Sprintf("💸 Contribution of %s for group #%d prepared.", payload.Value, groupID), payload)}, nil
}

func (r *Router) details(ctx context.Context, chatID int64, groupID uint64) (reply, error) {
	wallet, err := r.wallet(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	view, err := r.Views.GroupStatus(ctx, groupID, wallet)
	if err != nil {
		return reply{}, err
	}
	out := reply{text: groupStatusView(view)}
	if !view.Group.Full() && (view.Status == nil || !view.Status.Enrolled) {
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Join", joinData(groupID)),
		))
		out.markup = &kb
	}
	return out, nil
}

func (r *Router) groupStatus(ctx context.Context, chatID int64, groupID uint64) (reply, error) {
	wallet, err := r.Identity.WalletOf(ctx, chatID)
	if err != nil {
		return reply{}, err
	}
	view, err := r.Views.GroupStatus(ctx, groupID, wallet)
	if err != nil {
		return reply{}, err
	}
	return reply{text: groupStatusView(view)}, nil
}

func (r *Router) text(ctx context.Context, chatID int64, body string) (reply, error) {
	step, ok, err := r.Conversations.Handle(ctx, chatID, body)
	if !ok && err == nil {
		return reply{}, nil
	}
	if errors.Is(err, conversation.ErrValidation) && !step.Done {
		return reply{text: step.Text}, nil
	}
	if err != nil {
		return reply{}, err
	}
	if step.Payload != nil {
		return reply{text: payloadText(step.Text, *step.Payload)}, nil
	}
	return reply{text: step.Text}, nil
}

// wallet returns the linked wallet or "" when none is linked.
func (r *Router) wallet(ctx context.Context, chatID int64) (string, error) {
	wallet, err := r.Identity.WalletOf(ctx, chatID)
	if errors.Is(err, identity.ErrNotLinked) {
		return "", nil
	}
	return wallet, err
}

func (r *Router) errorReply(chatID int64, err error) reply {
	switch {
	case errors.Is(err, identity.ErrNotLinked):
		kb := linkKeyboard(r.Identity.RedirectURL(chatID))
		return reply{text: notLinkedText(), markup: &kb}
	case errors.Is(err, txbuilder.ErrGroupFull):
		return reply{text: "😕 This group is full."}
	case errors.Is(err, txbuilder.ErrGroupInactive):
		return reply{text: "This group is no longer active."}
	case errors.Is(err, txbuilder.ErrNotEnrolled):
		return reply{text: "You are not a member of this group on chain yet. Joins count once your transaction is mined."}
	case errors.Is(err, txbuilder.ErrAlreadyContributed):
		return reply{text: "✅ You already contributed this cycle."}
	case errors.Is(err, txbuilder.ErrInvalidRequest):
		return reply{text: "❌ The group settings were rejected. Start again with /create."}
	case errors.Is(err, chain.ErrAllFetchesFailed), errors.Is(err, chain.ErrChainQuery):
		return reply{text: "⚠️ Could not read the blockchain right now. Please try again."}
	default:
		return reply{text: "⚠️ Something went wrong. Please try again."}
	}
}
