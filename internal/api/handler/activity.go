package handler

import (
	"net/http"

	"github.com/srishtiii28/alphascan/internal/aggregator"
	"github.com/srishtiii28/alphascan/internal/api/middleware"
	"github.com/srishtiii28/alphascan/internal/api/response"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/watcher"
)

// ActivityHandler exposes the observable state of a running instance: open
// message windows, the audit trail and the traded-token history.
type ActivityHandler struct {
	agg        *aggregator.Aggregator
	supervisor *watcher.Supervisor
	audit      domain.AuditRepository
	tokens     domain.TokenHistoryRepository
	ledger     ledger.Service
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(
	agg *aggregator.Aggregator,
	supervisor *watcher.Supervisor,
	audit domain.AuditRepository,
	tokens domain.TokenHistoryRepository,
	ledgerSvc ledger.Service,
) *ActivityHandler {
	return &ActivityHandler{
		agg:        agg,
		supervisor: supervisor,
		audit:      audit,
		tokens:     tokens,
		ledger:     ledgerSvc,
	}
}

// Queue returns the open, not yet dispatched message windows
func (h *ActivityHandler) Queue(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"windows":  h.agg.Snapshot(),
		"watchers": h.supervisor.Running(),
	})
}

// Logs returns the caller's audit trail in chronological order
func (h *ActivityHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	entries, err := h.audit.ListByUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}

	response.OK(w, entries)
}

// TokenHolding pairs a traded token with its current wallet balance.
type TokenHolding struct {
	Token   string  `json:"token"`
	Balance float64 `json:"balance"`
}

// Tokens returns every token symbol the caller has traded along with the
// live balance still held in each.
func (h *ActivityHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tokens, err := h.tokens.ListTokens(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}

	holdings := make([]TokenHolding, 0, len(tokens))
	for _, token := range tokens {
		balance, err := h.ledger.TokenBalance(r.Context(), userID, token)
		if err != nil {
			response.InternalError(w, err.Error())
			return
		}
		holdings = append(holdings, TokenHolding{Token: token, Balance: balance})
	}

	response.OK(w, holdings)
}
