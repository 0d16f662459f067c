package domain

import (
	"context"
	"fmt"
	"time"
)

// NoTopic is the sentinel topic ID for a watch that covers the whole group.
const NoTopic int64 = 0

// WatchEntry represents one (user, group, topic) subscription. Entries are
// unique per that triple; re-adding the same triple updates it in place.
type WatchEntry struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	GroupID   int64     `json:"group_id" bson:"group_id"`
	GroupName string    `json:"group_name" bson:"group_name"`
	Username  string    `json:"username,omitempty" bson:"username,omitempty"`
	IsChannel bool      `json:"is_channel" bson:"is_channel"`
	IsForum   bool      `json:"is_forum" bson:"is_forum"`
	TopicID   int64     `json:"topic_id,omitempty" bson:"topic_id,omitempty"`
	TopicName string    `json:"topic_name,omitempty" bson:"topic_name,omitempty"`
	Webhook   string    `json:"webhook_url,omitempty" bson:"webhook_url,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Key returns the watcher registry key for this entry.
func (w *WatchEntry) Key() string {
	return WatcherKey(w.UserID, w.GroupID, w.TopicID)
}

// WatcherKey builds the `userID:groupID:topicID` registry key. topicID is the
// NoTopic sentinel for whole-group watchers.
func WatcherKey(userID string, groupID, topicID int64) string {
	return fmt.Sprintf("%s:%d:%d", userID, groupID, topicID)
}

// WatchCreate represents the watch-group request payload
type WatchCreate struct {
	GroupName string `json:"group_name" validate:"required,max=255"`
	TopicName string `json:"topic_name,omitempty" validate:"omitempty,max=255"`
	Webhook   string `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// WatchDelete represents the unwatch request payload
type WatchDelete struct {
	GroupID int64 `json:"group_id" validate:"required"`
	TopicID int64 `json:"topic_id,omitempty"`
}

// WatchRepository defines the interface for watch entry storage.
// Upsert is keyed by (user, group, topic).
type WatchRepository interface {
	Upsert(ctx context.Context, entry *WatchEntry) error
	Get(ctx context.Context, userID string, groupID, topicID int64) (*WatchEntry, error)
	ListByUser(ctx context.Context, userID string) ([]WatchEntry, error)
	ListAll(ctx context.Context) ([]WatchEntry, error)
	Delete(ctx context.Context, userID string, groupID, topicID int64) error
}
