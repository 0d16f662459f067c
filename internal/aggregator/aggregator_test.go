package aggregator_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects dispatched batches
type recordingSink struct {
	mu      sync.Mutex
	batches [][]domain.MessageEvent
	users   []string
	done    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{}, 16)}
}

func (s *recordingSink) HandleBatch(batch []domain.MessageEvent, userID string) {
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.users = append(s.users, userID)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *recordingSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch dispatch")
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func event(group, topic, text string) domain.MessageEvent {
	return domain.MessageEvent{
		GroupName:  group,
		TopicName:  topic,
		SenderName: "sender",
		Text:       text,
		UserID:     "u1",
	}
}

func TestIngest_ClosesWindowAtExactlyTen(t *testing.T) {
	sink := newRecordingSink()
	agg := aggregator.New(sink)

	for i := 0; i < 9; i++ {
		agg.Ingest(event("g1", "", fmt.Sprintf("msg-%d", i)))
	}
	assert.Equal(t, 0, sink.count(), "no batch before the tenth message")

	agg.Ingest(event("g1", "", "msg-9"))
	sink.wait(t)

	require.Equal(t, 1, sink.count())
	assert.Len(t, sink.batches[0], 10)
	assert.Equal(t, "u1", sink.users[0])

	// Order preserved
	for i, e := range sink.batches[0] {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), e.Text)
	}
}

func TestIngest_ReplacementWindowSeededWithOverlap(t *testing.T) {
	sink := newRecordingSink()
	agg := aggregator.New(sink)

	for i := 0; i < 10; i++ {
		agg.Ingest(event("g1", "", fmt.Sprintf("msg-%d", i)))
	}
	sink.wait(t)

	windows := agg.Snapshot()
	require.Contains(t, windows, "g1")
	replacement := windows["g1"]

	require.Len(t, replacement, 3)
	for i, e := range replacement {
		assert.True(t, e.Overlap, "carried event %d must be flagged overlap", i)
		assert.Equal(t, fmt.Sprintf("msg-%d", 7+i), e.Text)
	}

	// The dispatched batch keeps its original overlap flags
	for _, e := range sink.batches[0] {
		assert.False(t, e.Overlap)
	}
}

func TestIngest_SecondCloseCountsOverlapTowardCapacity(t *testing.T) {
	sink := newRecordingSink()
	agg := aggregator.New(sink)

	for i := 0; i < 10; i++ {
		agg.Ingest(event("g1", "", fmt.Sprintf("a-%d", i)))
	}
	sink.wait(t)

	// 3 carried over, so 7 more close the second window
	for i := 0; i < 7; i++ {
		agg.Ingest(event("g1", "", fmt.Sprintf("b-%d", i)))
	}
	sink.wait(t)

	require.Equal(t, 2, sink.count())
	second := sink.batches[1]
	require.Len(t, second, 10)
	assert.True(t, second[0].Overlap)
	assert.True(t, second[2].Overlap)
	assert.False(t, second[3].Overlap)
	assert.Equal(t, "a-7", second[0].Text)
	assert.Equal(t, "b-6", second[9].Text)
}

func TestIngest_TopicScopedConversationsAreIndependent(t *testing.T) {
	sink := newRecordingSink()
	agg := aggregator.New(sink)

	for i := 0; i < 9; i++ {
		agg.Ingest(event("g1", "alpha", "x"))
		agg.Ingest(event("g1", "", "y"))
	}
	assert.Equal(t, 0, sink.count())

	agg.Ingest(event("g1", "alpha", "closer"))
	sink.wait(t)
	require.Equal(t, 1, sink.count())

	windows := agg.Snapshot()
	assert.Len(t, windows["g1:alpha"], 3)
	assert.Len(t, windows["g1"], 9)
}
