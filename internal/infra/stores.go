package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	pgApplicationName = "rosca_bridge"
	pgMaxConnIdle     = 5 * time.Minute
	redisReadTimeout  = 2 * time.Second
)

// Stores holds the optional backing services. A nil field means the
// in-memory implementation is used instead, which config only allows in
// development.
type Stores struct {
	DB    *pgxpool.Pool
	Cache *redis.Client

	logger *slog.Logger
}

// OpenStores connects to every store that has a URL configured.
func OpenStores(ctx context.Context, databaseURL, redisURL string, logger *slog.Logger) (*Stores, error) {
	s := &Stores{logger: logger}

	if databaseURL != "" {
		db, err := openPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		s.DB = db
	} else {
		logger.Warn("DATABASE_URL not set, users and memberships are kept in memory")
	}

	if redisURL != "" {
		cache, err := openRedis(ctx, redisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Cache = cache
	} else {
		logger.Warn("REDIS_URL not set, callback replay and rate limiting are disabled")
	}

	return s, nil
}

// Close releases every open connection.
func (s *Stores) Close() {
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			s.logger.Warn("close redis", "error", err)
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

// openPostgres builds the pool and creates the bridge tables if missing.
func openPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.MaxConnIdleTime = pgMaxConnIdle
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = pgApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisReadTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
