package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is one append-only record of a pipeline or watcher action.
// Entries are never mutated or deleted.
type AuditLogEntry struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Action    string    `json:"action" bson:"action"`
	Input     any       `json:"input" bson:"input"`
	Output    any       `json:"output" bson:"output"`
	UserID    string    `json:"user_id" bson:"user_id"`
}

// AuditRepository defines the interface for the append-only action trail
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
	ListByUser(ctx context.Context, userID string) ([]AuditLogEntry, error)
}

// TokenHistoryRepository tracks the set of token symbols a user has ever
// traded. AddToken is a union append; duplicates are ignored.
type TokenHistoryRepository interface {
	AddToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]string, error)
}
