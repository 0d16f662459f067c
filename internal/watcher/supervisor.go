// Package watcher runs the per-watch goroutines that stream group messages
// into the aggregator, and the supervisor that owns their lifecycle.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/transport"
)

// SessionSource hands out live sessions keyed by user. The session manager
// implements it; tests substitute a fake.
type SessionSource interface {
	Acquire(ctx context.Context, userID string) (transport.Session, error)
	Shutdown()
}

// running is one live watcher registered under its `user:group:topic` key.
type running struct {
	entry  domain.WatchEntry
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the watcher registry. All starts, stops and crash cleanup
// go through it; nothing else touches the registry map.
type Supervisor struct {
	sessions SessionSource
	watches  domain.WatchRepository
	agg      *aggregator.Aggregator

	// replaceGrace bounds the wait for an old watcher to exit when the same
	// key is re-registered.
	replaceGrace time.Duration
	// shutdownGrace bounds the wait for all watchers on shutdown.
	shutdownGrace time.Duration

	mu       sync.Mutex
	registry map[string]*running

	baseCtx context.Context
	stop    context.CancelFunc
}

// New creates a supervisor. Watchers started later are children of the
// supervisor's own context, so Shutdown cancels them all at once.
func New(sessions SessionSource, watches domain.WatchRepository, agg *aggregator.Aggregator, replaceGrace, shutdownGrace time.Duration) *Supervisor {
	if replaceGrace <= 0 {
		replaceGrace = 1500 * time.Millisecond
	}
	if shutdownGrace <= 0 {
		shutdownGrace = 2 * time.Second
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Supervisor{
		sessions:      sessions,
		watches:       watches,
		agg:           agg,
		replaceGrace:  replaceGrace,
		shutdownGrace: shutdownGrace,
		registry:      make(map[string]*running),
		baseCtx:       baseCtx,
		stop:          stop,
	}
}

// Start registers and launches a watcher for the entry. If a watcher already
// holds the same key it is cancelled first and given a bounded grace period
// to exit; the new watcher starts regardless of whether the old one made it.
func (s *Supervisor) Start(ctx context.Context, entry domain.WatchEntry) error {
	key := entry.Key()

	s.mu.Lock()
	old := s.registry[key]
	delete(s.registry, key)
	s.mu.Unlock()

	if old != nil {
		old.cancel()
		select {
		case <-old.done:
		case <-time.After(s.replaceGrace):
			log.Warn().Str("key", key).Msg("replaced watcher did not exit within grace period")
		}
	}

	sess, err := s.sessions.Acquire(ctx, entry.UserID)
	if err != nil {
		return fmt.Errorf("failed to acquire session for %s: %w", entry.UserID, err)
	}

	sub, err := sess.Subscribe(ctx, entry.GroupID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to group %d: %w", entry.GroupID, err)
	}

	watchCtx, cancel := context.WithCancel(s.baseCtx)
	r := &running{
		entry:  entry,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.registry[key] = r
	s.mu.Unlock()

	go s.supervise(watchCtx, r, sub)

	log.Info().
		Str("key", key).
		Str("group", entry.GroupName).
		Str("topic", entry.TopicName).
		Msg("watcher started")
	return nil
}

// supervise runs the watch loop and removes the registry entry when it ends,
// however it ends. A watcher that dies any way other than cancellation is a
// crash and is logged as such.
func (s *Supervisor) supervise(ctx context.Context, r *running, sub transport.Subscription) {
	defer close(r.done)

	err := s.watch(ctx, r.entry, sub)

	key := r.entry.Key()
	s.mu.Lock()
	// Only remove if we still own the slot; Start may have replaced us.
	if s.registry[key] == r {
		delete(s.registry, key)
	}
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Str("key", key).Msg("watcher crashed")
		return
	}
	log.Info().Str("key", key).Msg("watcher stopped")
}

// watch consumes the subscription until the context ends or the stream
// closes. Messages that pass the topic filter become aggregator events.
func (s *Supervisor) watch(ctx context.Context, entry domain.WatchEntry, sub transport.Subscription) error {
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("key", entry.Key()).Msg("failed to close subscription")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Events():
			if !ok {
				return domain.ErrTransportDisconnect
			}
			if !matchesTopic(entry, msg) {
				continue
			}
			s.agg.Ingest(domain.MessageEvent{
				GroupName:  entry.GroupName,
				TopicName:  entry.TopicName,
				SenderName: msg.SenderName,
				Text:       msg.Text,
				UserID:     entry.UserID,
			})
		}
	}
}

// matchesTopic applies the forum-topic filter. A topic-scoped watcher accepts
// only messages whose reply marker names its topic thread; messages with no
// topic marker belong to the group at large and are left to whole-group
// watchers.
func matchesTopic(entry domain.WatchEntry, msg transport.Message) bool {
	if entry.TopicID == domain.NoTopic {
		return true
	}
	return msg.ReplyTo != nil && msg.ReplyTo.ForumTopic && msg.ReplyTo.TopicID == entry.TopicID
}

// Stop cancels the watcher for the key and deletes its stored watch entry.
// Stopping a key with no live watcher still deletes the entry.
func (s *Supervisor) Stop(ctx context.Context, userID string, groupID, topicID int64) error {
	key := domain.WatcherKey(userID, groupID, topicID)

	s.mu.Lock()
	r := s.registry[key]
	delete(s.registry, key)
	s.mu.Unlock()

	if r != nil {
		r.cancel()
	}

	if err := s.watches.Delete(ctx, userID, groupID, topicID); err != nil {
		return fmt.Errorf("failed to delete watch entry %s: %w", key, err)
	}
	log.Info().Str("key", key).Msg("watcher unregistered")
	return nil
}

// Running returns the keys of all live watchers, for the status endpoint.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.registry))
	for k := range s.registry {
		keys = append(keys, k)
	}
	return keys
}

// Rehydrate restarts watchers for every stored watch entry, grouped by user
// so one user's session is opened once and reused. A user or entry that fails
// never blocks the rest.
func (s *Supervisor) Rehydrate(ctx context.Context) error {
	entries, err := s.watches.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list watch entries: %w", err)
	}

	byUser := make(map[string][]domain.WatchEntry)
	for _, e := range entries {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	var restored, failed int
	for userID, userEntries := range byUser {
		if _, err := s.sessions.Acquire(ctx, userID); err != nil {
			log.Error().Err(err).Str("user_id", userID).Int("entries", len(userEntries)).
				Msg("skipping user during rehydration")
			failed += len(userEntries)
			continue
		}
		for _, entry := range userEntries {
			if err := s.Start(ctx, entry); err != nil {
				log.Error().Err(err).Str("key", entry.Key()).Msg("failed to restore watcher")
				failed++
				continue
			}
			restored++
		}
	}

	log.Info().Int("restored", restored).Int("failed", failed).Msg("watcher rehydration complete")
	return nil
}

// RehydrateUser restarts watchers for one user's stored entries, reusing the
// user's session across them. Called after a fresh sign-in so persisted
// watches come back without a process restart.
func (s *Supervisor) RehydrateUser(ctx context.Context, userID string) error {
	entries, err := s.watches.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list watch entries for %s: %w", userID, err)
	}

	for _, entry := range entries {
		if err := s.Start(ctx, entry); err != nil {
			log.Error().Err(err).Str("key", entry.Key()).Msg("failed to restore watcher")
		}
	}
	return nil
}

// Shutdown cancels every watcher, waits up to the shutdown grace period for
// them to finish, then tears down all sessions regardless.
func (s *Supervisor) Shutdown() {
	s.stop()

	s.mu.Lock()
	watchers := make([]*running, 0, len(s.registry))
	for _, r := range s.registry {
		watchers = append(watchers, r)
	}
	s.registry = make(map[string]*running)
	s.mu.Unlock()

	deadline := time.After(s.shutdownGrace)
	for _, r := range watchers {
		select {
		case <-r.done:
		case <-deadline:
			log.Warn().Msg("shutdown grace period elapsed with watchers still running")
			s.sessions.Shutdown()
			return
		}
	}

	s.sessions.Shutdown()
	log.Info().Msg("all watchers stopped")
}
