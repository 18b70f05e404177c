package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists memberships keyed by (chat id, group id).
type Repository interface {
	Upsert(ctx context.Context, m Membership) error
	ListByChat(ctx context.Context, chatID int64) ([]Membership, error)
}

// PostgresRepository stores memberships in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts a membership or refreshes the wallet snapshot of an existing one.
// The original join timestamp is kept.
func (r *PostgresRepository) Upsert(ctx context.Context, m Membership) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO membership (id, chat_id, group_id, wallet_address, joined_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (chat_id, group_id) DO UPDATE SET wallet_address = EXCLUDED.wallet_address`,
		id, m.ChatID, int64(m.GroupID), m.WalletAddress, m.JoinedAt.UTC())
	return err
}

// ListByChat returns a chat's memberships ordered by join time.
func (r *PostgresRepository) ListByChat(ctx context.Context, chatID int64) ([]Membership, error) {
	rows, err := r.db.Query(ctx, `SELECT id, chat_id, group_id, wallet_address, joined_at
        FROM membership WHERE chat_id = $1 ORDER BY joined_at, group_id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Membership
	for rows.Next() {
		var (
			m        Membership
			id       uuid.UUID
			groupID  int64
			joinedAt time.Time
		)
		if err := rows.Scan(&id, &m.ChatID, &groupID, &m.WalletAddress, &joinedAt); err != nil {
			return nil, err
		}
		m.ID = id.String()
		m.GroupID = uint64(groupID)
		m.JoinedAt = joinedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
