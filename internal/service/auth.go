// Package service holds the application services between the HTTP handlers
// and the core. Handlers validate and decode; services decide.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/security"
	"github.com/srishtiii28/alphascan/internal/transport"
	"github.com/srishtiii28/alphascan/internal/watcher"
)

const (
	// pendingLoginTTL bounds how long an OTP stays redeemable.
	pendingLoginTTL = 5 * time.Minute
)

var (
	// ErrNoPendingLogin means Verify was called without a live Register.
	ErrNoPendingLogin = errors.New("no pending login for user, request a new code")
)

// AuthService drives the two-step OTP login flow and issues API tokens.
type AuthService struct {
	users    domain.UserRepository
	client   transport.Client
	enc      *security.Encryptor
	jwt      *security.JWTManager
	watchers *watcher.Supervisor
	pending  *gocache.Cache
}

// NewAuthService creates a new auth service
func NewAuthService(
	users domain.UserRepository,
	client transport.Client,
	enc *security.Encryptor,
	jwt *security.JWTManager,
	watchers *watcher.Supervisor,
) *AuthService {
	return &AuthService{
		users:    users,
		client:   client,
		enc:      enc,
		jwt:      jwt,
		watchers: watchers,
		pending:  gocache.New(pendingLoginTTL, 2*pendingLoginTTL),
	}
}

// Register starts the OTP flow: an authorization code is sent to the phone
// and the login state is parked in memory until Verify redeems it.
func (s *AuthService) Register(ctx context.Context, input domain.UserCreate) error {
	pending, err := s.client.StartLogin(ctx, input.Phone)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	s.pending.Set(input.UserID, pending, pendingLoginTTL)
	log.Info().Str("user_id", input.UserID).Msg("otp sent, awaiting verification")
	return nil
}

// Verify redeems the OTP, persists the user with encrypted credentials and
// returns an API token. The pending state is consumed either way a redeem
// attempt ends: a wrong code means starting over.
func (s *AuthService) Verify(ctx context.Context, input domain.UserVerify) (string, error) {
	v, ok := s.pending.Get(input.UserID)
	if !ok {
		return "", ErrNoPendingLogin
	}
	s.pending.Delete(input.UserID)

	pending := v.(*transport.PendingLogin)
	creds, err := s.client.CompleteLogin(ctx, pending, input.OTPCode)
	if err != nil {
		return "", fmt.Errorf("failed to verify code: %w", err)
	}

	apiHash, err := s.enc.EncryptString(creds.APIHash)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt api hash: %w", err)
	}
	sessionString, err := s.enc.EncryptString(creds.SessionString)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt session: %w", err)
	}

	user := &domain.User{
		ID:               input.UserID,
		Phone:            creds.Phone,
		APIID:            creds.APIID,
		APIHashEncrypted: apiHash,
		SessionEncrypted: sessionString,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Phone)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	// Any watches persisted from an earlier session come back now; a restore
	// failure must not sink an otherwise successful login.
	if err := s.watchers.RehydrateUser(ctx, user.ID); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to restore watchers after login")
	}

	log.Info().Str("user_id", user.ID).Msg("user verified and registered")
	return token, nil
}
