package pipeline_test

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/market"
)

// scriptedProvider replays canned completions in order. Pipeline runs are
// sequential within a candidate, so a FIFO script is enough.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedProvider) Name() string         { return "scripted" }
func (s *scriptedProvider) DefaultModel() string { return "scripted-model" }
func (s *scriptedProvider) IsConfigured() bool   { return true }

func (s *scriptedProvider) Complete(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.responses) {
		return "", errors.New("script exhausted")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) BaseBalance(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockLedger) TokenBalance(ctx context.Context, userID, token string) (float64, error) {
	args := m.Called(ctx, userID, token)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockLedger) Buy(ctx context.Context, userID, token string, amountInBase float64) (*ledger.Receipt, error) {
	args := m.Called(ctx, userID, token, amountInBase)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

func (m *MockLedger) Sell(ctx context.Context, userID, token string, amountInToken float64) (*ledger.Receipt, error) {
	args := m.Called(ctx, userID, token, amountInToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) GetSeries(ctx context.Context, token string, sentiment domain.Sentiment) (*market.Series, error) {
	args := m.Called(ctx, token, sentiment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Series), args.Error(1)
}

type MockTokenHistory struct {
	mock.Mock
}

func (m *MockTokenHistory) AddToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockTokenHistory) ListTokens(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// recordingAudit captures appended entries so tests can assert on the action
// trail a run leaves behind.
type recordingAudit struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
	failure error
}

func (r *recordingAudit) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	if r.failure != nil {
		return r.failure
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *recordingAudit) ListByUser(_ context.Context, userID string) ([]domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

func (r *recordingAudit) hasAction(action string) bool {
	for _, a := range r.actions() {
		if a == action {
			return true
		}
	}
	return false
}
