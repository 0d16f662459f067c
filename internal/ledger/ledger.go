// Package ledger defines the balance and trade-execution boundary. The
// on-chain binding (wallet lookup, gas handling, approvals) lives outside this
// process; the pipeline only sees these calls.
package ledger

import "context"

// Receipt summarizes an executed trade.
type Receipt struct {
	TxHash  string  `json:"transaction_hash"`
	Token   string  `json:"token_ticker"`
	Amount  float64 `json:"amount"`
	GasUsed uint64  `json:"gas_used"`
}

// Service exposes balances and trade execution for one user's wallet.
// Amounts are denominated in whole units of the base currency or token.
//
// Buy and Sell are never retried by callers: a failed trade is a fatal,
// audited outcome for the candidate that triggered it.
type Service interface {
	BaseBalance(ctx context.Context, userID string) (float64, error)
	TokenBalance(ctx context.Context, userID, token string) (float64, error)
	Buy(ctx context.Context, userID, token string, amountInBase float64) (*Receipt, error)
	Sell(ctx context.Context, userID, token string, amountInToken float64) (*Receipt, error)
}
