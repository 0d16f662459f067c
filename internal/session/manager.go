// Package session owns the per-user transport session cache. It is the only
// component allowed to create, reuse or tear down sessions; everything else
// goes through Acquire.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/security"
	"github.com/srishtiii28/alphascan/internal/transport"
)

// Manager caches one connected, authorized session per user.
type Manager struct {
	client transport.Client
	users  domain.UserRepository
	enc    *security.Encryptor

	mu       sync.Mutex
	sessions map[string]transport.Session
}

// NewManager creates a session manager
func NewManager(client transport.Client, users domain.UserRepository, enc *security.Encryptor) *Manager {
	return &Manager{
		client:   client,
		users:    users,
		enc:      enc,
		sessions: make(map[string]transport.Session),
	}
}

// Acquire returns a connected, authorized session for the user, reusing the
// cached one when still usable. Returns domain.ErrCredentialsMissing for an
// unregistered user and domain.ErrSessionExpired when stored credentials no
// longer authorize.
func (m *Manager) Acquire(ctx context.Context, userID string) (transport.Session, error) {
	m.mu.Lock()
	cached, ok := m.sessions[userID]
	m.mu.Unlock()

	if ok && cached.Connected() {
		authorized, err := cached.Authorized(ctx)
		if err == nil && authorized {
			return cached, nil
		}
		// Stale session: drop it and fall through to a fresh connect
		log.Warn().Str("user_id", userID).Msg("cached session no longer usable, reconnecting")
		m.drop(userID, cached)
	} else if ok {
		m.drop(userID, cached)
	}

	return m.connect(ctx, userID)
}

func (m *Manager) connect(ctx context.Context, userID string) (transport.Session, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, domain.ErrCredentialsMissing
	}

	apiHash, err := m.enc.DecryptString(user.APIHashEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt api hash: %w", err)
	}
	sessionString, err := m.enc.DecryptString(user.SessionEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	sess, err := m.client.Connect(ctx, transport.Credentials{
		APIID:         user.APIID,
		APIHash:       apiHash,
		SessionString: sessionString,
		Phone:         user.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	authorized, err := sess.Authorized(ctx)
	if err != nil || !authorized {
		if dErr := sess.Disconnect(); dErr != nil {
			log.Error().Err(dErr).Str("user_id", userID).Msg("failed to disconnect unauthorized session")
		}
		if err != nil {
			return nil, fmt.Errorf("authorization check failed: %w", err)
		}
		return nil, domain.ErrSessionExpired
	}

	m.mu.Lock()
	m.sessions[userID] = sess
	m.mu.Unlock()

	return sess, nil
}

// drop removes a session from the cache and disconnects it if it is still the
// cached one. Safe to call with a session that has already been replaced.
func (m *Manager) drop(userID string, sess transport.Session) {
	m.mu.Lock()
	if m.sessions[userID] == sess {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if sess.Connected() {
		if err := sess.Disconnect(); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to disconnect stale session")
		}
	}
}

// Invalidate drops the cached session for a user, if any. The next Acquire
// will establish a fresh one.
func (m *Manager) Invalidate(userID string) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		if err := sess.Disconnect(); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to disconnect invalidated session")
		}
	}
}

// Shutdown disconnects every cached session. Disconnect failures are logged
// and skipped; teardown proceeds regardless so no connection leaks past
// process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]transport.Session)
	m.mu.Unlock()

	for userID, sess := range sessions {
		if err := sess.Disconnect(); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to disconnect session during shutdown")
			continue
		}
		log.Debug().Str("user_id", userID).Msg("session disconnected")
	}
}
