package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestCallbackRateLimitPerChat(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/auth/callback", CallbackRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(body string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/callback", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if code := send(`{"chatId":"12345"}`); code != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i+1, code)
		}
	}
	if code := send(`{"chatId":12345}`); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", code)
	}
	if code := send(`{"chatId":777}`); code != fiber.StatusOK {
		t.Fatalf("other chat should not be limited, got %d", code)
	}
}

func TestCallbackRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/", CallbackRateLimit(nil, 1), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(`{"chatId":1}`)))
		if err != nil || resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected pass-through, got %v %v", resp, err)
		}
	}
}
