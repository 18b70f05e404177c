package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(t *testing.T) (*fiber.App, *Service, Repository) {
	t.Helper()
	svc, repo := newTestService(nil)
	h := NewHandler(svc)
	app := fiber.New()
	app.Get("/auth/:chatId", h.Page)
	app.Get("/auth-redirect/:chatId", h.Redirect)
	app.Post("/auth/callback", h.Callback)
	return app, svc, repo
}

func postCallback(t *testing.T, app *fiber.App, body map[string]string) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(fiber.MethodPost, "/auth/callback", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestPageDoesNotMutate(t *testing.T) {
	app, _, repo := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/12345", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "Link this wallet to Telegram ID: 12345") {
			t.Fatalf("page does not carry the challenge message")
		}
	}

	if _, err := repo.FindByChatID(context.Background(), 12345); err == nil {
		t.Fatalf("GET /auth must not create a user")
	}
}

func TestRedirectByUserAgent(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/auth-redirect/12345", nil)
	req.Header.Set(fiber.HeaderUserAgent, "Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get(fiber.HeaderLocation); !strings.HasPrefix(loc, "https://metamask.app.link/dapp/") {
		t.Fatalf("expected deep link, got %s", loc)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/auth-redirect/12345", nil)
	req.Header.Set(fiber.HeaderUserAgent, "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if loc := resp.Header.Get(fiber.HeaderLocation); loc != "https://rosca.example/auth/12345" {
		t.Fatalf("expected page link, got %s", loc)
	}
}

func TestCallbackLinksWallet(t *testing.T) {
	app, svc, _ := newTestApp(t)
	key, addr := newKey(t)
	msg := "Link this wallet to Telegram ID: 12345"

	resp := postCallback(t, app, map[string]string{
		"chatId":    "12345",
		"account":   strings.ToLower(addr),
		"signature": signPersonal(t, key, msg),
		"message":   msg,
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	wallet, err := svc.WalletOf(context.Background(), 12345)
	if err != nil {
		t.Fatalf("wallet of: %v", err)
	}
	if wallet != strings.ToLower(addr) {
		t.Fatalf("expected %s, got %s", strings.ToLower(addr), wallet)
	}
}

func TestCallbackRejections(t *testing.T) {
	app, svc, _ := newTestApp(t)
	key, _ := newKey(t)
	_, other := newKey(t)
	msg := ChallengeMessage(12345)

	missing := postCallback(t, app, map[string]string{"chatId": "12345", "message": msg})
	if missing.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", missing.StatusCode)
	}

	mismatch := postCallback(t, app, map[string]string{
		"chatId":    "12345",
		"account":   other,
		"signature": signPersonal(t, key, msg),
		"message":   msg,
	})
	if mismatch.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatch, got %d", mismatch.StatusCode)
	}

	if _, err := svc.WalletOf(context.Background(), 12345); err == nil {
		t.Fatalf("rejected callbacks must not link a wallet")
	}
}

func TestCallbackRejectsMalformedBody(t *testing.T) {
	app, _, _ := newTestApp(t)

	for _, body := range []string{`{"chatId":`, `{"chatId":"twelve"}`} {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/callback", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}
