package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	chat_id        BIGINT PRIMARY KEY,
	wallet_address TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id         UUID PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users (chat_id),
	message    TEXT NOT NULL,
	signature  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	CHECK (expires_at > created_at)
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions (user_id);

CREATE TABLE IF NOT EXISTS membership (
	id             UUID PRIMARY KEY,
	chat_id        BIGINT NOT NULL,
	group_id       BIGINT NOT NULL,
	wallet_address TEXT NOT NULL,
	joined_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (chat_id, group_id)
);
`

// EnsureSchema creates the users, auth_sessions and membership tables when
// they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
