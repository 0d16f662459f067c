// Package transport defines the chat-protocol boundary. The process that hosts
// the core never talks MTProto directly; it goes through these interfaces, and
// the concrete binding is injected in main.
package transport

import (
	"context"
	"time"
)

// Credentials is everything needed to open an authorized session for a user.
// The store keeps APIHash and SessionString encrypted; this struct is the
// decrypted working copy and must never be persisted as-is.
type Credentials struct {
	APIID         int
	APIHash       string
	SessionString string
	Phone         string
}

// Group describes a resolved dialog (group, supergroup or channel).
type Group struct {
	ID        int64
	Title     string
	Username  string
	IsChannel bool
	IsForum   bool
	Members   int
}

// Topic describes one forum topic inside a group.
type Topic struct {
	ID    int64
	Title string
}

// ReplyRef carries the reply-to marker of an inbound message. ForumTopic is
// set when the reply marker points at a forum topic thread.
type ReplyRef struct {
	ForumTopic bool
	TopicID    int64
}

// Message is one inbound message delivered on a subscription.
type Message struct {
	GroupID    int64
	SenderName string
	Text       string
	ReplyTo    *ReplyRef
	SentAt     time.Time
}

// Subscription is a push-based stream of messages for one group. Events is
// closed when the subscription ends; Close releases the underlying
// server-side subscription and must be called exactly once.
type Subscription interface {
	Events() <-chan Message
	Close() error
}

// Session is one connected client bound to a user's credentials.
type Session interface {
	Connected() bool
	Authorized(ctx context.Context) (bool, error)
	Disconnect() error

	ResolveGroup(ctx context.Context, name string) (*Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	ListForumTopics(ctx context.Context, groupID int64) ([]Topic, error)
	Subscribe(ctx context.Context, groupID int64) (Subscription, error)
}

// PendingLogin holds the server-side state between sending an OTP and
// verifying it. It is kept in a short-lived in-memory cache only.
type PendingLogin struct {
	Phone        string
	CodeHash     string
	Handle       any
}

// Client opens sessions and drives the OTP login flow.
type Client interface {
	Connect(ctx context.Context, creds Credentials) (Session, error)
	StartLogin(ctx context.Context, phone string) (*PendingLogin, error)
	CompleteLogin(ctx context.Context, pending *PendingLogin, code string) (Credentials, error)
}
