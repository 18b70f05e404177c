package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when no user row exists for a chat identity.
var ErrUserNotFound = errors.New("user not found")

// Repository persists users and their link audit trail.
type Repository interface {
	EnsureUser(ctx context.Context, chatID int64, now time.Time) error
	FindByChatID(ctx context.Context, chatID int64) (User, error)
	// LinkWallet upserts the user's wallet and appends the audit session atomically.
	LinkWallet(ctx context.Context, chatID int64, wallet string, session AuthSession) error
	AuthSessions(ctx context.Context, chatID int64) ([]AuthSession, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureUser inserts a user without a wallet unless one already exists.
func (r *PostgresRepository) EnsureUser(ctx context.Context, chatID int64, now time.Time) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (chat_id, created_at) VALUES ($1, $2)
        ON CONFLICT (chat_id) DO NOTHING`, chatID, now.UTC())
	return err
}

// FindByChatID fetches a user by chat identity.
func (r *PostgresRepository) FindByChatID(ctx context.Context, chatID int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT chat_id, COALESCE(wallet_address, ''), created_at FROM users WHERE chat_id = $1`, chatID)
	var user User
	if err := row.Scan(&user.ChatID, &user.WalletAddress, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// LinkWallet overwrites the stored wallet (last writer wins) and records the
// audit session in the same transaction.
func (r *PostgresRepository) LinkWallet(ctx context.Context, chatID int64, wallet string, session AuthSession) error {
	sessionID, err := uuid.Parse(session.ID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO users (chat_id, wallet_address, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (chat_id) DO UPDATE SET wallet_address = EXCLUDED.wallet_address`,
		chatID, wallet, session.CreatedAt.UTC()); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO auth_sessions (id, user_id, message, signature, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, chatID, session.Message, session.Signature, session.CreatedAt.UTC(), session.ExpiresAt.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AuthSessions lists the audit trail of a chat identity, oldest first.
func (r *PostgresRepository) AuthSessions(ctx context.Context, chatID int64) ([]AuthSession, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, message, signature, created_at, expires_at
        FROM auth_sessions WHERE user_id = $1 ORDER BY created_at`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []AuthSession
	for rows.Next() {
		var (
			id uuid.UUID
			s  AuthSession
		)
		if err := rows.Scan(&id, &s.UserID, &s.Message, &s.Signature, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, err
		}
		s.ID = id.String()
		s.CreatedAt = s.CreatedAt.UTC()
		s.ExpiresAt = s.ExpiresAt.UTC()
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
