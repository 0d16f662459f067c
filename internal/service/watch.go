package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/session"
	"github.com/srishtiii28/alphascan/internal/transport"
	"github.com/srishtiii28/alphascan/internal/watcher"
)

// WatchService resolves group names against the user's own dialogs and
// manages watch registrations end to end: store entry plus live watcher.
type WatchService struct {
	sessions   *session.Manager
	watches    domain.WatchRepository
	supervisor *watcher.Supervisor
}

// NewWatchService creates a new watch service
func NewWatchService(sessions *session.Manager, watches domain.WatchRepository, supervisor *watcher.Supervisor) *WatchService {
	return &WatchService{
		sessions:   sessions,
		watches:    watches,
		supervisor: supervisor,
	}
}

// Add resolves the group (and topic, when named), persists the watch entry
// and starts its watcher. Re-adding an existing (group, topic) pair replaces
// the previous registration.
func (s *WatchService) Add(ctx context.Context, userID string, input domain.WatchCreate) (*domain.WatchEntry, error) {
	sess, err := s.sessions.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	group, err := sess.ResolveGroup(ctx, input.GroupName)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, domain.ErrGroupNotFound
	}

	entry := &domain.WatchEntry{
		UserID:    userID,
		GroupID:   group.ID,
		GroupName: group.Title,
		Username:  group.Username,
		IsChannel: group.IsChannel,
		IsForum:   group.IsForum,
		TopicID:   domain.NoTopic,
		Webhook:   input.Webhook,
		CreatedAt: time.Now().UTC(),
	}

	if input.TopicName != "" {
		topic, err := s.resolveTopic(ctx, sess, group, input.TopicName)
		if err != nil {
			return nil, err
		}
		entry.TopicID = topic.ID
		entry.TopicName = topic.Title
	}

	if err := s.watches.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store watch entry: %w", err)
	}

	if err := s.supervisor.Start(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *WatchService) resolveTopic(ctx context.Context, sess transport.Session, group *transport.Group, topicName string) (*transport.Topic, error) {
	if !group.IsForum {
		return nil, fmt.Errorf("%w: %q has no topics", domain.ErrTopicNotFound, group.Title)
	}

	topics, err := sess.ListForumTopics(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	for _, t := range topics {
		if strings.EqualFold(t.Title, topicName) {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %q", domain.ErrTopicNotFound, topicName, group.Title)
}

// Remove stops the watcher and deletes the stored entry.
func (s *WatchService) Remove(ctx context.Context, userID string, input domain.WatchDelete) error {
	return s.supervisor.Stop(ctx, userID, input.GroupID, input.TopicID)
}

// List returns the user's stored watch entries.
func (s *WatchService) List(ctx context.Context, userID string) ([]domain.WatchEntry, error) {
	return s.watches.ListByUser(ctx, userID)
}

// Groups lists the user's dialogs, for picking what to watch.
func (s *WatchService) Groups(ctx context.Context, userID string) ([]transport.Group, error) {
	sess, err := s.sessions.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.ListGroups(ctx)
}

// Topics lists the forum topics of one group.
func (s *WatchService) Topics(ctx context.Context, userID string, groupID int64) ([]transport.Topic, error) {
	sess, err := s.sessions.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.ListForumTopics(ctx, groupID)
}
