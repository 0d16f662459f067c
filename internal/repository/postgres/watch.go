package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// WatchRepository implements domain.WatchRepository
type WatchRepository struct {
	pool *pgxpool.Pool
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(pool *pgxpool.Pool) *WatchRepository {
	return &WatchRepository{pool: pool}
}

const watchColumns = `user_id, group_id, group_name, username, is_channel, is_forum, topic_id, topic_name, webhook_url, created_at`

func (r *WatchRepository) Upsert(ctx context.Context, entry *domain.WatchEntry) error {
	query := `
		INSERT INTO watches (` + watchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, group_id, topic_id) DO UPDATE SET
			group_name = EXCLUDED.group_name,
			username = EXCLUDED.username,
			is_channel = EXCLUDED.is_channel,
			is_forum = EXCLUDED.is_forum,
			topic_name = EXCLUDED.topic_name,
			webhook_url = EXCLUDED.webhook_url
	`
	_, err := r.pool.Exec(ctx, query,
		entry.UserID,
		entry.GroupID,
		entry.GroupName,
		entry.Username,
		entry.IsChannel,
		entry.IsForum,
		entry.TopicID,
		entry.TopicName,
		entry.Webhook,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert watch entry: %w", err)
	}
	return nil
}

// Get returns nil, nil when no entry exists for the triple.
func (r *WatchRepository) Get(ctx context.Context, userID string, groupID, topicID int64) (*domain.WatchEntry, error) {
	query := `
		SELECT ` + watchColumns + `
		FROM watches
		WHERE user_id = $1 AND group_id = $2 AND topic_id = $3
	`
	entry, err := scanWatch(r.pool.QueryRow(ctx, query, userID, groupID, topicID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch entry: %w", err)
	}
	return entry, nil
}

func (r *WatchRepository) ListByUser(ctx context.Context, userID string) ([]domain.WatchEntry, error) {
	query := `
		SELECT ` + watchColumns + `
		FROM watches
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch entries: %w", err)
	}
	return collectWatches(rows)
}

func (r *WatchRepository) ListAll(ctx context.Context) ([]domain.WatchEntry, error) {
	query := `
		SELECT ` + watchColumns + `
		FROM watches
		ORDER BY user_id, created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch entries: %w", err)
	}
	return collectWatches(rows)
}

func (r *WatchRepository) Delete(ctx context.Context, userID string, groupID, topicID int64) error {
	query := `DELETE FROM watches WHERE user_id = $1 AND group_id = $2 AND topic_id = $3`
	if _, err := r.pool.Exec(ctx, query, userID, groupID, topicID); err != nil {
		return fmt.Errorf("failed to delete watch entry: %w", err)
	}
	return nil
}

func scanWatch(row pgx.Row) (*domain.WatchEntry, error) {
	var e domain.WatchEntry
	err := row.Scan(
		&e.UserID,
		&e.GroupID,
		&e.GroupName,
		&e.Username,
		&e.IsChannel,
		&e.IsForum,
		&e.TopicID,
		&e.TopicName,
		&e.Webhook,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectWatches(rows pgx.Rows) ([]domain.WatchEntry, error) {
	defer rows.Close()

	var entries []domain.WatchEntry
	for rows.Next() {
		entry, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
