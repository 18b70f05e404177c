package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/rosca_bridge/internal/chain"
	"github.com/congo-pay/rosca_bridge/internal/logging"
	"github.com/congo-pay/rosca_bridge/internal/notification"
)

// SessionTTL is the fixed validity window written on every audit session.
const SessionTTL = 10 * time.Minute

var (
	// ErrBadRequest is returned when a link request misses a field.
	ErrBadRequest = errors.New("chatId, account, signature and message are required")
	// ErrInvalidSignature is returned when the signature cannot be parsed or recovered.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrSignatureMismatch is returned when the signer is not the claimed account.
	ErrSignatureMismatch = errors.New("signature does not match account")
	// ErrChallengeMismatch is returned when the signed text is not this chat's challenge.
	ErrChallengeMismatch = errors.New("signed message does not match the link challenge")
	// ErrNotLinked is returned when an action needs a wallet the user has not linked.
	ErrNotLinked = errors.New("wallet not linked")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("identity store failure")
)

var mobileAgent = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|mobile|blackberry|opera mini|iemobile`)

// Notifier receives best-effort confirmations.
type Notifier interface {
	Notify(ctx context.Context, message notification.Message) notification.Outcome
}

// Options configures link targets.
type Options struct {
	PublicBaseURL string
	DeepLinkBase  string
}

// Service runs the wallet-linking challenge/response protocol.
type Service struct {
	repo     Repository
	notifier Notifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, notifier Notifier, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Service{repo: repo, notifier: notifier, opts: opts, logger: logger, now: time.Now}
}

// PageURL is the wallet-signing page for a chat identity.
func (s *Service) PageURL(chatID int64) string {
	return fmt.Sprintf("%s/auth/%d", s.opts.PublicBaseURL, chatID)
}

// RedirectURL is the platform-aware entry point handed out in chat.
func (s *Service) RedirectURL(chatID int64) string {
	return fmt.Sprintf("%s/auth-redirect/%d", s.opts.PublicBaseURL, chatID)
}

// BuildChallengeTarget picks the wallet deep link for mobile agents and the
// plain page otherwise. Both end at the page that requests ChallengeMessage.
func (s *Service) BuildChallengeTarget(chatID int64, userAgent string) string {
	page := s.PageURL(chatID)
	if !mobileAgent.MatchString(userAgent) || s.opts.DeepLinkBase == "" {
		return page
	}
	u, err := url.Parse(page)
	if err != nil {
		return page
	}
	return s.opts.DeepLinkBase + u.Host + u.RequestURI()
}

// EnsureUser records a chat identity without a wallet. Existing rows are untouched.
func (s *Service) EnsureUser(ctx context.Context, chatID int64) error {
	if err := s.repo.EnsureUser(ctx, chatID, s.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// WalletOf returns the linked wallet of a chat identity.
func (s *Service) WalletOf(ctx context.Context, chatID int64) (string, error) {
	user, err := s.repo.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrNotLinked
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !user.Linked() {
		return "", ErrNotLinked
	}
	return user.WalletAddress, nil
}

// VerifyLink checks a personal_sign signature over the chat's challenge and,
// when the signer matches the claimed account, stores the wallet and appends
// an audit session. Nothing is written on failure. The confirmation message
// is best effort and does not affect the result.
func (s *Service) VerifyLink(ctx context.Context, req LinkRequest) (LinkResult, error) {
	req.Account = strings.TrimSpace(req.Account)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.ChatID == 0 || req.Account == "" || req.Signature == "" || req.Message == "" {
		return LinkResult{}, ErrBadRequest
	}

	account, err := chain.NormalizeAddress(req.Account)
	if err != nil {
		return LinkResult{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if req.Message != ChallengeMessage(req.ChatID) {
		return LinkResult{}, ErrChallengeMismatch
	}

	recovered, err := RecoverAddress(req.Message, req.Signature)
	if err != nil {
		return LinkResult{}, err
	}
	if !chain.SameAddress(recovered, account) {
		return LinkResult{}, ErrSignatureMismatch
	}

	now := s.now().UTC()
	session := AuthSession{
		ID:        uuid.NewString(),
		UserID:    req.ChatID,
		Message:   req.Message,
		Signature: req.Signature,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.repo.LinkWallet(ctx, req.ChatID, account, session); err != nil {
		return LinkResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Info("wallet linked",
		slog.Int64("chat_id", req.ChatID),
		slog.String("wallet", account),
		slog.String("session_id", session.ID),
	)

	result := LinkResult{ChatID: req.ChatID, Wallet: account, SessionID: session.ID, ExpiresAt: session.ExpiresAt}
	if s.notifier != nil {
		outcome := s.notifier.Notify(ctx, notification.Message{
			Kind:   notification.KindWalletLinked,
			ChatID: req.ChatID,
			Body:   fmt.Sprintf("✅ Wallet %s linked. Use /browse to find a group.", account),
		})
		result.Notified = outcome.Delivered
	}
	return result, nil
}

// IsAuthError reports whether err is a client-side link failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrChallengeMismatch)
}
