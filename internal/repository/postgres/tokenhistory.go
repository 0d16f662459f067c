package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenHistoryRepository implements domain.TokenHistoryRepository with one
// row per (user, token) pair.
type TokenHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTokenHistoryRepository creates a new token history repository
func NewTokenHistoryRepository(pool *pgxpool.Pool) *TokenHistoryRepository {
	return &TokenHistoryRepository{pool: pool}
}

// AddToken is a union append; re-adding a traded token is a no-op.
func (r *TokenHistoryRepository) AddToken(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO token_history (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("failed to add token: %w", err)
	}
	return nil
}

func (r *TokenHistoryRepository) ListTokens(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT token FROM token_history WHERE user_id = $1 ORDER BY token`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
