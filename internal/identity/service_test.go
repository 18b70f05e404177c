package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/congo-pay/rosca_bridge/internal/notification"
)

type testNotifier struct {
	messages []notification.Message
	fail     bool
}

func (n *testNotifier) Notify(_ context.Context, msg notification.Message) notification.Outcome {
	n.messages = append(n.messages, msg)
	if n.fail {
		return notification.Outcome{ChatID: msg.ChatID, Err: notification.ErrDelivery}
	}
	return notification.Outcome{ChatID: msg.ChatID, Delivered: true}
}

func newTestService(notifier Notifier) (*Service, Repository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, notifier, Options{
		PublicBaseURL: "https://rosca.example/",
		DeepLinkBase:  "https://metamask.app.link/dapp/",
	}, nil)
	return svc, repo
}

func TestVerifyLinkStoresLowercaseWallet(t *testing.T) {
	notifier := &testNotifier{}
	svc, repo := newTestService(notifier)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	key, addr := newKey(t)
	msg := "Link this wallet to Telegram ID: 12345"
	res, err := svc.VerifyLink(ctx, LinkRequest{
		ChatID:    12345,
		Account:   strings.ToUpper(addr[:2]) + strings.ToUpper(addr[2:]),
		Signature: signPersonal(t, key, msg),
		Message:   msg,
	})
	if err != nil {
		t.Fatalf("verify link: %v", err)
	}
	if res.Wallet != strings.ToLower(addr) {
		t.Fatalf("expected lowercase wallet, got %s", res.Wallet)
	}
	if !res.Notified || len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindWalletLinked {
		t.Fatalf("expected one wallet-linked notification")
	}

	wallet, err := svc.WalletOf(ctx, 12345)
	if err != nil {
		t.Fatalf("wallet of: %v", err)
	}
	if wallet != strings.ToLower(addr) {
		t.Fatalf("expected %s, got %s", strings.ToLower(addr), wallet)
	}

	sessions, _ := repo.AuthSessions(ctx, 12345)
	if len(sessions) != 1 {
		t.Fatalf("expected one audit session, got %d", len(sessions))
	}
	if got := sessions[0].ExpiresAt.Sub(sessions[0].CreatedAt); got != 10*time.Minute {
		t.Fatalf("expected 10 minute expiry window, got %s", got)
	}
	if sessions[0].Message != msg {
		t.Fatalf("expected exact signed message in audit record")
	}
}

func TestVerifyLinkLastWriterWins(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()
	msg := ChallengeMessage(77)

	keyA, addrA := newKey(t)
	keyB, addrB := newKey(t)

	if _, err := svc.VerifyLink(ctx, LinkRequest{ChatID: 77, Account: addrA, Signature: signPersonal(t, keyA, msg), Message: msg}); err != nil {
		t.Fatalf("link A: %v", err)
	}
	if _, err := svc.VerifyLink(ctx, LinkRequest{ChatID: 77, Account: addrB, Signature: signPersonal(t, keyB, msg), Message: msg}); err != nil {
		t.Fatalf("link B: %v", err)
	}

	wallet, err := svc.WalletOf(ctx, 77)
	if err != nil {
		t.Fatalf("wallet of: %v", err)
	}
	if wallet != strings.ToLower(addrB) {
		t.Fatalf("expected wallet B, got %s", wallet)
	}
	sessions, _ := repo.AuthSessions(ctx, 77)
	if len(sessions) != 2 {
		t.Fatalf("expected append-only audit trail of 2, got %d", len(sessions))
	}
}

func TestVerifyLinkRejectsWithoutMutation(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()
	msg := ChallengeMessage(5)
	key, addr := newKey(t)
	_, otherAddr := newKey(t)
	sig := signPersonal(t, key, msg)

	tampered, _ := hexutil.Decode(sig)
	tampered[10] ^= 0xff

	cases := []struct {
		name string
		req  LinkRequest
		want error
	}{
		{"missing signature", LinkRequest{ChatID: 5, Account: addr, Message: msg}, ErrBadRequest},
		{"missing chat", LinkRequest{Account: addr, Signature: sig, Message: msg}, ErrBadRequest},
		{"bad account", LinkRequest{ChatID: 5, Account: "0x12", Signature: sig, Message: msg}, ErrBadRequest},
		{"unparseable signature", LinkRequest{ChatID: 5, Account: addr, Signature: "0xdeadbeef", Message: msg}, ErrInvalidSignature},
		{"wrong signer", LinkRequest{ChatID: 5, Account: otherAddr, Signature: sig, Message: msg}, ErrSignatureMismatch},
		{"tampered signature", LinkRequest{ChatID: 5, Account: addr, Signature: hexutil.Encode(tampered), Message: msg}, nil},
		{"other chat challenge", LinkRequest{ChatID: 5, Account: addr, Signature: sig, Message: ChallengeMessage(6)}, ErrChallengeMismatch},
	}
	for _, tc := range cases {
		_, err := svc.VerifyLink(ctx, tc.req)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsAuthError(err) {
			t.Fatalf("%s: expected auth error, got %v", tc.name, err)
		}
	}

	if _, err := repo.FindByChatID(ctx, 5); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected no user row after failed links, got %v", err)
	}
	if _, err := svc.WalletOf(ctx, 5); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestVerifyLinkSucceedsWhenNotificationFails(t *testing.T) {
	svc, _ := newTestService(&testNotifier{fail: true})
	key, addr := newKey(t)
	msg := ChallengeMessage(9)

	res, err := svc.VerifyLink(context.Background(), LinkRequest{ChatID: 9, Account: addr, Signature: signPersonal(t, key, msg), Message: msg})
	if err != nil {
		t.Fatalf("expected success despite delivery failure, got %v", err)
	}
	if res.Notified {
		t.Fatalf("expected Notified=false")
	}
	if _, err := svc.WalletOf(context.Background(), 9); err != nil {
		t.Fatalf("link must not be rolled back: %v", err)
	}
}

func TestEnsureUserKeepsWallet(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	key, addr := newKey(t)
	msg := ChallengeMessage(3)
	if _, err := svc.VerifyLink(ctx, LinkRequest{ChatID: 3, Account: addr, Signature: signPersonal(t, key, msg), Message: msg}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.EnsureUser(ctx, 3); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if _, err := svc.WalletOf(ctx, 3); err != nil {
		t.Fatalf("wallet lost after EnsureUser: %v", err)
	}
}

func TestBuildChallengeTarget(t *testing.T) {
	svc, _ := newTestService(nil)

	desktop := svc.BuildChallengeTarget(42, "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	if desktop != "https://rosca.example/auth/42" {
		t.Fatalf("unexpected desktop target %s", desktop)
	}
	mobile := svc.BuildChallengeTarget(42, "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	if mobile != "https://metamask.app.link/dapp/rosca.example/auth/42" {
		t.Fatalf("unexpected mobile target %s", mobile)
	}
}
