package routes

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/rosca_bridge/internal/config"
	"github.com/congo-pay/rosca_bridge/internal/identity"
	"github.com/congo-pay/rosca_bridge/internal/middleware"
)

// ChainPinger is the chain client call used by the health check.
type ChainPinger interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Chain    ChainPinger
	Identity *identity.Service
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Identity == nil {
		return fmt.Errorf("identity service is required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var guards []fiber.Handler
	if d.Cache != nil {
		guards = append(guards,
			middleware.CallbackRateLimit(d.Cache, d.Cfg.CallbackRateLimit),
			middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		)
	}
	RegisterAuthRoutes(app, identity.NewHandler(d.Identity), guards...)

	return nil
}
