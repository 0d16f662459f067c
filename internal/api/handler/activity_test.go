package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srishtiii28/alphascan/internal/api/handler"
	"github.com/srishtiii28/alphascan/internal/api/middleware"
	"github.com/srishtiii28/alphascan/internal/ledger"
)

type memTokenHistory struct {
	mu     sync.Mutex
	tokens map[string][]string
}

func newMemTokenHistory() *memTokenHistory {
	return &memTokenHistory{tokens: make(map[string][]string)}
}

func (r *memTokenHistory) AddToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens[userID] {
		if t == token {
			return nil
		}
	}
	r.tokens[userID] = append(r.tokens[userID], token)
	return nil
}

func (r *memTokenHistory) ListTokens(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.tokens[userID]...), nil
}

func authedRequest(method, target, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestTokens_ReturnsTradedTokensWithLiveBalances(t *testing.T) {
	tokens := newMemTokenHistory()
	require.NoError(t, tokens.AddToken(context.Background(), "u1", "ABC"))
	require.NoError(t, tokens.AddToken(context.Background(), "u1", "DEF"))

	paper := ledger.NewPaperLedger()
	paper.Fund("u1", 100)
	_, err := paper.Buy(context.Background(), "u1", "ABC", 60)
	require.NoError(t, err)

	h := handler.NewActivityHandler(nil, nil, nil, tokens, paper)

	rec := httptest.NewRecorder()
	h.Tokens(rec, authedRequest(http.MethodGet, "/api/v1/tokens", "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool                   `json:"success"`
		Data    []handler.TokenHolding `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)

	require.Len(t, body.Data, 2)
	assert.Equal(t, "ABC", body.Data[0].Token)
	assert.InDelta(t, 60.0, body.Data[0].Balance, 1e-9)
	assert.Equal(t, "DEF", body.Data[1].Token)
	assert.Zero(t, body.Data[1].Balance)
}

func TestTokens_WithoutUserContextIsUnauthorized(t *testing.T) {
	h := handler.NewActivityHandler(nil, nil, nil, newMemTokenHistory(), ledger.NewPaperLedger())

	rec := httptest.NewRecorder()
	h.Tokens(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
