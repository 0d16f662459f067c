package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// WatchRepository implements domain.WatchRepository
type WatchRepository struct {
	coll *mongo.Collection
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(db *mongo.Database) *WatchRepository {
	return &WatchRepository{coll: db.Collection("watches")}
}

func watchFilter(userID string, groupID, topicID int64) bson.M {
	return bson.M{
		"user_id":  userID,
		"group_id": groupID,
		"topic_id": topicID,
	}
}

func (r *WatchRepository) Upsert(ctx context.Context, entry *domain.WatchEntry) error {
	filter := watchFilter(entry.UserID, entry.GroupID, entry.TopicID)
	update := bson.M{"$set": entry}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert watch entry: %w", err)
	}
	return nil
}

// Get returns nil, nil when no entry exists for the triple.
func (r *WatchRepository) Get(ctx context.Context, userID string, groupID, topicID int64) (*domain.WatchEntry, error) {
	var entry domain.WatchEntry
	err := r.coll.FindOne(ctx, watchFilter(userID, groupID, topicID)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch entry: %w", err)
	}
	return &entry, nil
}

func (r *WatchRepository) ListByUser(ctx context.Context, userID string) ([]domain.WatchEntry, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *WatchRepository) ListAll(ctx context.Context) ([]domain.WatchEntry, error) {
	return r.list(ctx, bson.M{})
}

func (r *WatchRepository) list(ctx context.Context, filter bson.M) ([]domain.WatchEntry, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.WatchEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode watch entries: %w", err)
	}
	return entries, nil
}

func (r *WatchRepository) Delete(ctx context.Context, userID string, groupID, topicID int64) error {
	_, err := r.coll.DeleteOne(ctx, watchFilter(userID, groupID, topicID))
	if err != nil {
		return fmt.Errorf("failed to delete watch entry: %w", err)
	}
	return nil
}
