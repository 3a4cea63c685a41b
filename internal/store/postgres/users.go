package postgres

import (
	"context"
	"database/sql"
	"errors"

	"castplane/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (s *Store) CreateUser(ctx context.Context, user *store.User, tokenHash string) error {
	query := `
		INSERT INTO users (id, name, api_key_hash, plans, rate_limit, rate_limit_burst, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	plans := user.Plans
	if plans == nil {
		plans = []string{}
	}

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		tokenHash,
		pq.Array(plans),
		user.RateLimit,
		user.RateLimitBurst,
		user.CreatedAt,
	)
	return err
}

func (s *Store) GetUserByTokenHash(ctx context.Context, hash string) (*store.User, error) {
	query := "SELECT id, name, plans, rate_limit, rate_limit_burst, created_at FROM users WHERE api_key_hash = $1"

	var u store.User

	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&u.ID,
		&u.Name,
		pq.Array(&u.Plans),
		&u.RateLimit,
		&u.RateLimitBurst,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (s *Store) SetUserPlans(ctx context.Context, id uuid.UUID, plans []string) error {
	if plans == nil {
		plans = []string{}
	}

	result, err := s.db.ExecContext(ctx, "UPDATE users SET plans = $1 WHERE id = $2", pq.Array(plans), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
