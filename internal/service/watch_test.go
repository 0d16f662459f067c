package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/security"
	"github.com/srishtiii28/alphascan/internal/service"
	"github.com/srishtiii28/alphascan/internal/session"
	"github.com/srishtiii28/alphascan/internal/transport/memory"
	"github.com/srishtiii28/alphascan/internal/watcher"
)

type memWatchRepo struct {
	mu      sync.Mutex
	entries map[string]domain.WatchEntry
}

func newMemWatchRepo() *memWatchRepo {
	return &memWatchRepo{entries: make(map[string]domain.WatchEntry)}
}

func (r *memWatchRepo) Upsert(_ context.Context, entry *domain.WatchEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Key()] = *entry
	return nil
}

func (r *memWatchRepo) Get(_ context.Context, userID string, groupID, topicID int64) (*domain.WatchEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[domain.WatcherKey(userID, groupID, topicID)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *memWatchRepo) ListByUser(_ context.Context, userID string) ([]domain.WatchEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WatchEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memWatchRepo) ListAll(_ context.Context) ([]domain.WatchEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WatchEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memWatchRepo) Delete(_ context.Context, userID string, groupID, topicID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, domain.WatcherKey(userID, groupID, topicID))
	return nil
}

type discardSink struct{}

func (discardSink) HandleBatch([]domain.MessageEvent, string) {}

// watchFixture wires a watch service against the in-process transport with
// one registered user.
func watchFixture(t *testing.T) (*service.WatchService, *memory.Client, *memWatchRepo, *watcher.Supervisor) {
	t.Helper()

	enc, err := security.NewEncryptorFromSecret("watch-test-secret")
	require.NoError(t, err)
	apiHash, err := enc.EncryptString("hash")
	require.NoError(t, err)
	sess, err := enc.EncryptString("session")
	require.NoError(t, err)

	users := newMemUserRepo()
	require.NoError(t, users.Create(context.Background(), &domain.User{
		ID:               "u1",
		Phone:            "+15550100",
		APIID:            1,
		APIHashEncrypted: apiHash,
		SessionEncrypted: sess,
	}))

	client := memory.NewClient(12345, "test-api-hash")
	sessions := session.NewManager(client, users, enc)
	repo := newMemWatchRepo()
	sup := watcher.New(sessions, repo, aggregator.New(discardSink{}), 100*time.Millisecond, time.Second)
	t.Cleanup(sup.Shutdown)

	return service.NewWatchService(sessions, repo, sup), client, repo, sup
}

func TestAdd_ResolvesGroupAndStartsWatcher(t *testing.T) {
	svc, client, repo, sup := watchFixture(t)
	group := client.AddGroup("Degen Calls", false)

	entry, err := svc.Add(context.Background(), "u1", domain.WatchCreate{GroupName: "degen calls"})
	require.NoError(t, err)

	assert.Equal(t, group.ID, entry.GroupID)
	assert.Equal(t, "Degen Calls", entry.GroupName)
	assert.Equal(t, domain.NoTopic, entry.TopicID)

	stored, err := repo.Get(context.Background(), "u1", group.ID, domain.NoTopic)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Contains(t, sup.Running(), entry.Key())
}

func TestAdd_ResolvesForumTopicByName(t *testing.T) {
	svc, client, _, _ := watchFixture(t)
	group := client.AddGroup("Alpha Hub", true, "general", "alpha-calls")

	entry, err := svc.Add(context.Background(), "u1", domain.WatchCreate{
		GroupName: "Alpha Hub",
		TopicName: "Alpha-Calls",
	})
	require.NoError(t, err)

	assert.Equal(t, group.ID, entry.GroupID)
	assert.Equal(t, int64(2), entry.TopicID)
	assert.Equal(t, "alpha-calls", entry.TopicName)
}

func TestAdd_UnknownGroupFails(t *testing.T) {
	svc, _, _, _ := watchFixture(t)

	_, err := svc.Add(context.Background(), "u1", domain.WatchCreate{GroupName: "nope"})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestAdd_TopicOnPlainGroupFails(t *testing.T) {
	svc, client, _, _ := watchFixture(t)
	client.AddGroup("Plain Group", false)

	_, err := svc.Add(context.Background(), "u1", domain.WatchCreate{
		GroupName: "Plain Group",
		TopicName: "whatever",
	})
	assert.ErrorIs(t, err, domain.ErrTopicNotFound)
}

func TestAdd_UnregisteredUserFails(t *testing.T) {
	svc, client, _, _ := watchFixture(t)
	client.AddGroup("Degen Calls", false)

	_, err := svc.Add(context.Background(), "stranger", domain.WatchCreate{GroupName: "Degen Calls"})
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

func TestRemove_StopsWatcherAndDeletesEntry(t *testing.T) {
	svc, client, repo, sup := watchFixture(t)
	group := client.AddGroup("Degen Calls", false)

	entry, err := svc.Add(context.Background(), "u1", domain.WatchCreate{GroupName: "Degen Calls"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "u1", domain.WatchDelete{
		GroupID: group.ID,
		TopicID: domain.NoTopic,
	}))

	assert.NotContains(t, sup.Running(), entry.Key())
	stored, err := repo.Get(context.Background(), "u1", group.ID, domain.NoTopic)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
