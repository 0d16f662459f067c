package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// AuditRepository implements domain.AuditRepository. Inserts only; nothing in
// the codebase updates or deletes audit documents.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection("audit_log")}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuditLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.AuditLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}
