package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// AuditRepository implements domain.AuditRepository. Inserts only; audit rows
// are never updated or deleted.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	input, err := json.Marshal(entry.Input)
	if err != nil {
		return fmt.Errorf("failed to encode audit input: %w", err)
	}
	output, err := json.Marshal(entry.Output)
	if err != nil {
		return fmt.Errorf("failed to encode audit output: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, ts, action, input, output, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.Action,
		input,
		output,
		entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuditLogEntry, error) {
	query := `
		SELECT id, ts, action, input, output, user_id
		FROM audit_log
		WHERE user_id = $1
		ORDER BY ts
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var (
			e             domain.AuditLogEntry
			input, output []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &input, &output, &e.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(input) > 0 {
			var v any
			if err := json.Unmarshal(input, &v); err == nil {
				e.Input = v
			}
		}
		if len(output) > 0 {
			var v any
			if err := json.Unmarshal(output, &v); err == nil {
				e.Output = v
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
