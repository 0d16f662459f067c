package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TokenHistoryRepository implements domain.TokenHistoryRepository with one
// document per user holding the set of traded token symbols.
type TokenHistoryRepository struct {
	coll *mongo.Collection
}

// NewTokenHistoryRepository creates a new token history repository
func NewTokenHistoryRepository(db *mongo.Database) *TokenHistoryRepository {
	return &TokenHistoryRepository{coll: db.Collection("token_history")}
}

// AddToken unions the symbol into the user's set; adding a token the user
// already traded is a no-op.
func (r *TokenHistoryRepository) AddToken(ctx context.Context, userID, token string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$addToSet": bson.M{"tokens": token}}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add token: %w", err)
	}
	return nil
}

func (r *TokenHistoryRepository) ListTokens(ctx context.Context, userID string) ([]string, error) {
	var doc struct {
		Tokens []string `bson:"tokens"`
	}
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return doc.Tokens, nil
}
