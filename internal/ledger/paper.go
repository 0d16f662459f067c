package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// PaperLedger is an in-memory Service used for development and dry runs. It
// tracks balances per user and settles trades one-to-one, no price impact.
type PaperLedger struct {
	mu       sync.Mutex
	base     map[string]float64
	holdings map[string]map[string]float64
}

// NewPaperLedger creates a paper ledger with no funded accounts.
func NewPaperLedger() *PaperLedger {
	return &PaperLedger{
		base:     make(map[string]float64),
		holdings: make(map[string]map[string]float64),
	}
}

// Fund credits a user's base balance.
func (l *PaperLedger) Fund(userID string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base[userID] += amount
}

func (l *PaperLedger) BaseBalance(_ context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.base[userID], nil
}

func (l *PaperLedger) TokenBalance(_ context.Context, userID, token string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdings[userID][token], nil
}

func (l *PaperLedger) Buy(_ context.Context, userID, token string, amountInBase float64) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.base[userID] < amountInBase {
		return nil, fmt.Errorf("%w: have %.4f, need %.4f", domain.ErrInsufficientBalance, l.base[userID], amountInBase)
	}

	l.base[userID] -= amountInBase
	if l.holdings[userID] == nil {
		l.holdings[userID] = make(map[string]float64)
	}
	l.holdings[userID][token] += amountInBase

	return &Receipt{
		TxHash: txHash(),
		Token:  token,
		Amount: amountInBase,
	}, nil
}

func (l *PaperLedger) Sell(_ context.Context, userID, token string, amountInToken float64) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := l.holdings[userID][token]
	if held < amountInToken {
		return nil, fmt.Errorf("%w: have %.4f %s, need %.4f", domain.ErrInsufficientBalance, held, token, amountInToken)
	}

	l.holdings[userID][token] -= amountInToken
	l.base[userID] += amountInToken

	return &Receipt{
		TxHash: txHash(),
		Token:  token,
		Amount: amountInToken,
	}, nil
}

func txHash() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}
