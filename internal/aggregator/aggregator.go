// Package aggregator owns the per-conversation sliding windows. Watchers push
// events in; when a window fills, the whole batch is handed to the pipeline
// sink and a fresh window is seeded with the tail of the old one.
package aggregator

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/srishtiii28/alphascan/internal/domain"
)

const (
	// WindowCap is the fixed number of events that closes a window.
	WindowCap = 10
	// OverlapCount is how many trailing events seed the replacement window.
	OverlapCount = 3
)

// Sink consumes a closed window. Implementations run asynchronously; a slow
// or failing sink must never block ingestion.
type Sink interface {
	HandleBatch(batch []domain.MessageEvent, userID string)
}

// Aggregator maintains one window per conversation key.
type Aggregator struct {
	sink Sink

	mu      sync.Mutex
	windows map[string][]domain.MessageEvent
}

// New creates an aggregator feeding the given sink
func New(sink Sink) *Aggregator {
	return &Aggregator{
		sink:    sink,
		windows: make(map[string][]domain.MessageEvent),
	}
}

// Ingest appends the event to its conversation window, creating the window if
// absent. When the window reaches capacity it is closed: the full ordered
// batch goes to the sink on its own goroutine and the window is replaced by
// one seeded with the last OverlapCount events, re-flagged as overlap.
func (a *Aggregator) Ingest(event domain.MessageEvent) {
	key := event.ConversationKey()

	a.mu.Lock()
	window := append(a.windows[key], event)

	if len(window) < WindowCap {
		a.windows[key] = window
		a.mu.Unlock()
		return
	}

	batch := window
	replacement := make([]domain.MessageEvent, OverlapCount)
	copy(replacement, batch[len(batch)-OverlapCount:])
	for i := range replacement {
		replacement[i].Overlap = true
	}
	a.windows[key] = replacement
	a.mu.Unlock()

	log.Info().
		Str("conversation", key).
		Str("user_id", event.UserID).
		Int("batch_size", len(batch)).
		Msg("window closed, dispatching batch")

	go a.sink.HandleBatch(batch, event.UserID)
}

// Snapshot returns a deep copy of the live windows, keyed by conversation.
// Used by the HTTP queue endpoint; callers may mutate the result freely.
func (a *Aggregator) Snapshot() map[string][]domain.MessageEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string][]domain.MessageEvent, len(a.windows))
	for key, window := range a.windows {
		events := make([]domain.MessageEvent, len(window))
		copy(events, window)
		out[key] = events
	}
	return out
}
