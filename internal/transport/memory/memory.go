// Package memory is an in-process chat transport used for local development
// and tests. Groups and messages exist only inside this process.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/transport"
)

// Client implements transport.Client against an in-process message bus. It
// hands out the app-level api_id/api_hash pair on login the way the real
// binding would.
type Client struct {
	mu      sync.Mutex
	bus     *bus
	nextID  int64
	apiID   int
	apiHash string
}

// NewClient creates a memory transport with an empty group directory.
func NewClient(apiID int, apiHash string) *Client {
	return &Client{
		bus:     newBus(),
		nextID:  1000,
		apiID:   apiID,
		apiHash: apiHash,
	}
}

// AddGroup registers a group in the directory so sessions can resolve it.
func (c *Client) AddGroup(title string, isForum bool, topics ...string) *transport.Group {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	g := &transport.Group{
		ID:      c.nextID,
		Title:   title,
		IsForum: isForum,
		Members: 1,
	}
	c.bus.addGroup(g, topics)
	return g
}

// Publish delivers a message to every subscription of the group.
func (c *Client) Publish(groupID int64, msg transport.Message) {
	msg.GroupID = groupID
	c.bus.publish(groupID, msg)
}

func (c *Client) Connect(_ context.Context, creds transport.Credentials) (transport.Session, error) {
	// Any non-empty session string counts as an authorized login.
	return &session{
		bus:        c.bus,
		authorized: creds.SessionString != "",
		connected:  true,
	}, nil
}

func (c *Client) StartLogin(_ context.Context, phone string) (*transport.PendingLogin, error) {
	return &transport.PendingLogin{
		Phone:    phone,
		CodeHash: randomHex(8),
	}, nil
}

func (c *Client) CompleteLogin(_ context.Context, pending *transport.PendingLogin, code string) (transport.Credentials, error) {
	if code == "" {
		return transport.Credentials{}, domain.ErrSessionExpired
	}
	return transport.Credentials{
		APIID:         c.apiID,
		APIHash:       c.apiHash,
		SessionString: randomHex(32),
		Phone:         pending.Phone,
	}, nil
}

type session struct {
	bus        *bus
	mu         sync.Mutex
	authorized bool
	connected  bool
}

func (s *session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *session) Authorized(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized, nil
}

func (s *session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *session) ResolveGroup(_ context.Context, name string) (*transport.Group, error) {
	g := s.bus.findGroup(name)
	if g == nil {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func (s *session) ListGroups(context.Context) ([]transport.Group, error) {
	return s.bus.listGroups(), nil
}

func (s *session) ListForumTopics(_ context.Context, groupID int64) ([]transport.Topic, error) {
	return s.bus.listTopics(groupID), nil
}

func (s *session) Subscribe(_ context.Context, groupID int64) (transport.Subscription, error) {
	return s.bus.subscribe(groupID), nil
}

// bus is the shared directory and fan-out of the memory transport.
type bus struct {
	mu     sync.Mutex
	groups map[int64]*transport.Group
	topics map[int64][]transport.Topic
	subs   map[int64][]*subscription
}

func newBus() *bus {
	return &bus{
		groups: make(map[int64]*transport.Group),
		topics: make(map[int64][]transport.Topic),
		subs:   make(map[int64][]*subscription),
	}
}

func (b *bus) addGroup(g *transport.Group, topicTitles []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.groups[g.ID] = g
	for i, title := range topicTitles {
		b.topics[g.ID] = append(b.topics[g.ID], transport.Topic{
			ID:    int64(i + 1),
			Title: title,
		})
	}
}

func (b *bus) findGroup(name string) *transport.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, g := range b.groups {
		if strings.EqualFold(g.Title, name) || strings.EqualFold(g.Username, name) {
			copied := *g
			return &copied
		}
	}
	return nil
}

func (b *bus) listGroups() []transport.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]transport.Group, 0, len(b.groups))
	for _, g := range b.groups {
		out = append(out, *g)
	}
	return out
}

func (b *bus) listTopics(groupID int64) []transport.Topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transport.Topic(nil), b.topics[groupID]...)
}

func (b *bus) subscribe(groupID int64) *subscription {
	sub := &subscription{
		bus:     b,
		groupID: groupID,
		events:  make(chan transport.Message, 64),
	}
	b.mu.Lock()
	b.subs[groupID] = append(b.subs[groupID], sub)
	b.mu.Unlock()
	return sub
}

func (b *bus) publish(groupID int64, msg transport.Message) {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.subs[groupID]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(msg)
	}
}

func (b *bus) unsubscribe(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[target.groupID]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.groupID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type subscription struct {
	bus     *bus
	groupID int64
	events  chan transport.Message

	mu     sync.Mutex
	closed bool
}

func (s *subscription) Events() <-chan transport.Message {
	return s.events
}

func (s *subscription) deliver(msg transport.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- msg:
	default:
		// Slow consumer: drop rather than block the publisher.
	}
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.bus.unsubscribe(s)
		close(s.events)
	}
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
