package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// UserRepository implements domain.UserRepository
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create upserts by user id so re-registering replaces the stored credentials.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, phone, api_id, api_hash, session_string, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			phone = EXCLUDED.phone,
			api_id = EXCLUDED.api_id,
			api_hash = EXCLUDED.api_hash,
			session_string = EXCLUDED.session_string
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Phone,
		user.APIID,
		user.APIHashEncrypted,
		user.SessionEncrypted,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the user is not registered.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT user_id, phone, api_id, api_hash, session_string, created_at
		FROM users
		WHERE user_id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Phone,
		&u.APIID,
		&u.APIHashEncrypted,
		&u.SessionEncrypted,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT user_id, phone, api_id, api_hash, session_string, created_at
		FROM users
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.Phone,
			&u.APIID,
			&u.APIHashEncrypted,
			&u.SessionEncrypted,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
