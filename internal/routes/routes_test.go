package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/rosca_bridge/internal/config"
	"github.com/congo-pay/rosca_bridge/internal/identity"
	"github.com/congo-pay/rosca_bridge/internal/logging"
)

type chainStub struct {
	id  int64
	err error
}

func (s chainStub) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(s.id), s.err
}

func newApp(t *testing.T, chain ChainPinger) *fiber.App {
	t.Helper()
	cfg := config.Config{AppEnv: "development", ChainID: 296, PublicBaseURL: "https://rosca.example"}
	svc := identity.NewService(identity.NewMemoryRepository(), nil, identity.Options{PublicBaseURL: cfg.PublicBaseURL}, nil)
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Chain: chain, Identity: svc, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func TestSetupRequiresStoresOutsideDev(t *testing.T) {
	svc := identity.NewService(identity.NewMemoryRepository(), nil, identity.Options{}, nil)
	err := Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "production"}, Identity: svc, Logger: logging.Discard()})
	if err == nil {
		t.Fatalf("expected error without postgres in production")
	}
}

func TestHealthReportsChain(t *testing.T) {
	app := newApp(t, chainStub{id: 296})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	var body struct {
		Status map[string]string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status["chain"] != "ok" || body.Status["postgres"] != "disabled" {
		t.Fatalf("unexpected checks %v", body.Status)
	}

	app = newApp(t, chainStub{err: errors.New("dial tcp: refused")})
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.StatusCode)
	}
}

func TestAuthRoutesWired(t *testing.T) {
	app := newApp(t, nil)
	for path, want := range map[string]int{
		"/auth/12345":          fiber.StatusOK,
		"/auth-redirect/12345": fiber.StatusFound,
		"/auth/not-a-number":   fiber.StatusBadRequest,
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test %s: %v", path, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d got %d", path, want, resp.StatusCode)
		}
	}
}

func newCachedApp(t *testing.T) *fiber.App {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	cfg := config.Config{
		AppEnv:            "development",
		PublicBaseURL:     "https://rosca.example",
		IdempotencyTTL:    time.Minute,
		CallbackRateLimit: 100,
	}
	svc := identity.NewService(identity.NewMemoryRepository(), nil, identity.Options{PublicBaseURL: cfg.PublicBaseURL}, nil)
	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Cache: cache, Identity: svc, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func postLink(t *testing.T, app *fiber.App, body map[string]any) int {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(fiber.MethodPost, "/auth/callback", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestCallbackReplayRequiresIdenticalClaim(t *testing.T) {
	app := newCachedApp(t)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	message := identity.ChallengeMessage(12345)
	sig, err := crypto.Sign(identity.PersonalMessageHash(message), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	valid := map[string]any{
		"chatId":    12345,
		"account":   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		"signature": hexutil.Encode(sig),
		"message":   message,
	}

	if status := postLink(t, app, valid); status != fiber.StatusOK {
		t.Fatalf("expected 200 for a valid link, got %d", status)
	}
	if status := postLink(t, app, valid); status != fiber.StatusOK {
		t.Fatalf("expected replayed 200, got %d", status)
	}

	otherAccount := map[string]any{}
	for k, v := range valid {
		otherAccount[k] = v
	}
	otherAccount["account"] = "0x2222222222222222222222222222222222222222"
	if status := postLink(t, app, otherAccount); status != fiber.StatusBadRequest {
		t.Fatalf("reused signature with another account: expected 400, got %d", status)
	}

	otherMessage := map[string]any{}
	for k, v := range valid {
		otherMessage[k] = v
	}
	otherMessage["message"] = identity.ChallengeMessage(99999)
	if status := postLink(t, app, otherMessage); status != fiber.StatusBadRequest {
		t.Fatalf("reused signature with another message: expected 400, got %d", status)
	}
}
