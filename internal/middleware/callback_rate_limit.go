package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CallbackRateLimit caps wallet-link callbacks per chat id (or client IP
// when the body has none) per minute. It is a no-op without Redis and fails
// open on cache errors.
func CallbackRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := callbackSubject(c)
		key := "rl:callback:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many link attempts, try again later")
		}
		return c.Next()
	}
}

func callbackSubject(c *fiber.Ctx) string {
	var req struct {
		ChatID json.RawMessage `json:"chatId"`
	}
	if err := json.Unmarshal(c.Body(), &req); err == nil {
		id := strings.Trim(strings.TrimSpace(string(req.ChatID)), `"`)
		if id != "" && id != "null" {
			return fmt.Sprintf("chat:%s", id)
		}
	}
	return "ip:" + c.IP()
}
