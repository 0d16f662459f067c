// Package pipeline implements the four-stage decision pipeline that turns a
// closed message window into audited trade decisions: signal extraction,
// balance pre-check, sentiment validation, trust scoring, then execution.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/llm"
	"github.com/srishtiii28/alphascan/internal/market"
)

// batchTimeout bounds one full pipeline run for a closed window.
const batchTimeout = 5 * time.Minute

// Config carries the tunable decision thresholds.
type Config struct {
	// BuyFraction is the share of the base balance spent on a buy.
	BuyFraction float64
	// MinPnL is the minimum absolute PnL-potential score to execute.
	MinPnL float64
	// BaseCurrency names the base currency in audit entries.
	BaseCurrency string
}

// Pipeline processes closed windows. Each batch runs on its own goroutine;
// a failed candidate never affects its siblings or other batches.
type Pipeline struct {
	llm    *llm.Client
	ledger ledger.Service
	market market.Provider
	audit  domain.AuditRepository
	tokens domain.TokenHistoryRepository
	cfg    Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a decision pipeline
func New(
	llmClient *llm.Client,
	ledgerSvc ledger.Service,
	marketProvider market.Provider,
	auditRepo domain.AuditRepository,
	tokenRepo domain.TokenHistoryRepository,
	cfg Config,
) *Pipeline {
	if cfg.BuyFraction <= 0 || cfg.BuyFraction > 1 {
		cfg.BuyFraction = 0.6
	}
	if cfg.MinPnL <= 0 {
		cfg.MinPnL = 10
	}
	return &Pipeline{
		llm:    llmClient,
		ledger: ledgerSvc,
		market: marketProvider,
		audit:  auditRepo,
		tokens: tokenRepo,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HandleBatch implements aggregator.Sink. It is fire-and-forget: errors end
// the run silently and are visible only in the audit log.
func (p *Pipeline) HandleBatch(batch []domain.MessageEvent, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	if err := p.Run(ctx, userID, batch); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("pipeline run failed")
	}
}

// Run executes the full pipeline for one closed window.
func (p *Pipeline) Run(ctx context.Context, userID string, batch []domain.MessageEvent) error {
	candidates, err := p.extract(ctx, userID, batch)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		p.logAction(ctx, userID, "Analyse Texts", candidates, "No token alphas detected")
		return nil
	}

	for _, cand := range candidates {
		if err := p.runCandidate(ctx, userID, cand); err != nil {
			// Candidate outcomes are fully recorded in the audit log;
			// siblings keep going.
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("token", cand.Token).
				Msg("candidate did not reach execution")
		}
	}
	return nil
}

// extract is stage 1: structured signal extraction from the window.
func (p *Pipeline) extract(ctx context.Context, userID string, batch []domain.MessageEvent) ([]domain.AlphaCandidate, error) {
	out, err := p.llm.Complete(ctx, llm.BuildAlphaPrompt(batch))
	if err != nil {
		p.logAction(ctx, userID, "Get Alpha from Group Texts", batch, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	candidates, err := llm.ParseCandidates(out)
	if err != nil {
		p.logAction(ctx, userID, "Get Alpha from Group Texts", batch, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	p.logAction(ctx, userID, "Get Alpha from Group Texts", batch, candidates)
	return candidates, nil
}

func (p *Pipeline) runCandidate(ctx context.Context, userID string, cand domain.AlphaCandidate) error {
	p.logAction(ctx, userID, "Analyse Each Alpha", cand, "Analyzing alpha")

	if err := p.checkBalance(ctx, userID, cand); err != nil {
		return err
	}
	if err := p.validate(ctx, userID, cand); err != nil {
		return err
	}
	if err := p.scoreTrust(ctx, userID, cand); err != nil {
		return err
	}
	return p.execute(ctx, userID, cand)
}

// checkBalance is stage 2: a positive signal needs base currency to buy with,
// a negative one needs a held balance of the token to sell.
func (p *Pipeline) checkBalance(ctx context.Context, userID string, cand domain.AlphaCandidate) error {
	switch cand.Sentiment {
	case domain.SentimentPositive:
		p.logAction(ctx, userID,
			fmt.Sprintf("Check %s Balance [Alpha is positive so we need to buy using %s]", p.cfg.BaseCurrency, p.cfg.BaseCurrency),
			cand, "Checking base balance")

		balance, err := p.ledger.BaseBalance(ctx, userID)
		if err != nil {
			p.logAction(ctx, userID, "Check "+p.cfg.BaseCurrency+" Balance", cand, err.Error())
			return fmt.Errorf("base balance query failed: %w", err)
		}
		if balance <= 0 {
			p.logAction(ctx, userID, "Check "+p.cfg.BaseCurrency+" Balance", cand, p.cfg.BaseCurrency+" balance is zero")
			return fmt.Errorf("%w: no %s to buy %s", domain.ErrInsufficientBalance, p.cfg.BaseCurrency, cand.Token)
		}
		p.logAction(ctx, userID, "Check "+p.cfg.BaseCurrency+" Balance", cand, map[string]any{
			"balance":  balance,
			"validity": true,
		})

	case domain.SentimentNegative:
		p.logAction(ctx, userID,
			"Check Token Balance [Alpha is negative so we need to sell the token]",
			cand, "Checking token balance")

		balance, err := p.ledger.TokenBalance(ctx, userID, cand.Token)
		if err != nil {
			p.logAction(ctx, userID, "Check Token Balance", cand, err.Error())
			return fmt.Errorf("token balance query failed: %w", err)
		}
		if balance <= 0 {
			p.logAction(ctx, userID, "Check Token Balance", cand, "Token balance is zero")
			return fmt.Errorf("%w: no %s held to sell", domain.ErrInsufficientBalance, cand.Token)
		}
		p.logAction(ctx, userID, "Check Token Balance", cand, map[string]any{
			"balance":  balance,
			"validity": true,
		})
	}
	return nil
}

// validate is stage 3: generate synthetic opinion posts about the token, then
// re-derive sentiment from them; it must match the extracted sentiment.
func (p *Pipeline) validate(ctx context.Context, userID string, cand domain.AlphaCandidate) error {
	posts, err := p.generatePosts(ctx, cand)
	if err != nil {
		p.logAction(ctx, userID, "Get Tweets", cand, err.Error())
		return fmt.Errorf("%w: post generation failed: %v", domain.ErrValidationMismatch, err)
	}
	p.logAction(ctx, userID, "Get Tweets", cand, posts)

	out, err := p.llm.Complete(ctx, llm.BuildSentimentPrompt(posts, cand.Token))
	if err != nil {
		p.logAction(ctx, userID, "Analyse Tweets", cand, err.Error())
		return fmt.Errorf("%w: sentiment analysis failed: %v", domain.ErrValidationMismatch, err)
	}
	derived, err := llm.ParseSentiment(out)
	if err != nil {
		p.logAction(ctx, userID, "Analyse Tweets", cand, err.Error())
		return fmt.Errorf("%w: %v", domain.ErrValidationMismatch, err)
	}
	p.logAction(ctx, userID, "Analyse Tweets", map[string]any{
		"token":  cand.Token,
		"tweets": posts,
	}, derived)

	if derived != cand.Sentiment {
		p.logAction(ctx, userID, "Validation Layer Declined", cand, map[string]any{
			"reason":             "Sentiment does not match",
			"sentiment":          derived,
			"expected_sentiment": cand.Sentiment,
		})
		return fmt.Errorf("%w: extracted %s, derived %s", domain.ErrValidationMismatch, cand.Sentiment, derived)
	}

	p.logAction(ctx, userID, "Validation Layer Passed", map[string]any{
		"token":              cand.Token,
		"sentiment":          derived,
		"expected_sentiment": cand.Sentiment,
	}, "Sentiment matches")
	return nil
}

func (p *Pipeline) generatePosts(ctx context.Context, cand domain.AlphaCandidate) ([]string, error) {
	// Bias the generated opinion the way organic chatter would correlate
	// with a genuine signal.
	goodProb := 0.2
	if cand.Sentiment == domain.SentimentPositive {
		goodProb = 0.8
	}
	bias := "bad"
	p.mu.Lock()
	if p.rng.Float64() < goodProb {
		bias = "good"
	}
	p.mu.Unlock()

	out, err := p.llm.Complete(ctx, llm.BuildPostsPrompt(cand.Token, bias))
	if err != nil {
		return nil, err
	}
	return llm.ParsePosts(out)
}

// scoreTrust is stage 4: the price trend must agree with the sentiment and
// the PnL-potential magnitude must clear the conviction threshold.
func (p *Pipeline) scoreTrust(ctx context.Context, userID string, cand domain.AlphaCandidate) error {
	series, err := p.market.GetSeries(ctx, cand.Token, cand.Sentiment)
	if err != nil {
		p.logAction(ctx, userID, "Get Historical Data", cand, err.Error())
		return fmt.Errorf("%w: series fetch failed: %v", domain.ErrTrustRejected, err)
	}
	p.logAction(ctx, userID, "Get Historical Data", cand, series)

	trends := market.DetectTrends(series)
	p.logAction(ctx, userID, "Detect Trends", cand, trends)

	// Agreement is required for the price series specifically.
	if string(trends.Prices) != string(cand.Sentiment) {
		p.logAction(ctx, userID, "Sentiment and Trends do not match", map[string]any{
			"token":     cand.Token,
			"sentiment": cand.Sentiment,
			"trends":    trends,
		}, "Sentiment and Trends do not match")
		return fmt.Errorf("%w: price trend %s vs sentiment %s", domain.ErrTrustRejected, trends.Prices, cand.Sentiment)
	}

	pnl := market.PnLPotential(series)
	p.logAction(ctx, userID, "Get PNL Potential", map[string]any{
		"token":           cand.Token,
		"historical_data": series,
	}, pnl)

	if pnl < p.cfg.MinPnL && pnl > -p.cfg.MinPnL {
		p.logAction(ctx, userID, "Trust Layer Declined", map[string]any{
			"token":     cand.Token,
			"sentiment": cand.Sentiment,
		}, map[string]any{
			"reason":        "Absolute PNL Potential is too low",
			"trust":         false,
			"pnl_potential": pnl,
		})
		return fmt.Errorf("%w: pnl potential %.2f below threshold", domain.ErrTrustRejected, pnl)
	}

	p.logAction(ctx, userID, "Trust Layer Approved", map[string]any{
		"token":     cand.Token,
		"sentiment": cand.Sentiment,
	}, map[string]any{
		"trust_validity": true,
		"pnl_potential":  pnl,
	})
	return nil
}

// execute is the final stage: record the token, then buy with a fraction of
// the base balance or liquidate the held token balance.
func (p *Pipeline) execute(ctx context.Context, userID string, cand domain.AlphaCandidate) error {
	if err := p.tokens.AddToken(ctx, userID, cand.Token); err != nil {
		// History is best-effort; the trade itself still proceeds.
		log.Error().Err(err).Str("user_id", userID).Str("token", cand.Token).Msg("failed to record token history")
	}

	switch cand.Sentiment {
	case domain.SentimentPositive:
		balance, err := p.ledger.BaseBalance(ctx, userID)
		if err != nil {
			p.logAction(ctx, userID, "Buy Token "+cand.Token, cand, err.Error())
			return fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		if balance <= 0 {
			p.logAction(ctx, userID, "Check "+p.cfg.BaseCurrency+" Balance", cand, "Insufficient balance for purchase")
			return fmt.Errorf("%w: balance drained before execution", domain.ErrInsufficientBalance)
		}

		receipt, err := p.ledger.Buy(ctx, userID, cand.Token, balance*p.cfg.BuyFraction)
		if err != nil {
			p.logAction(ctx, userID, "Buy Token "+cand.Token, cand, err.Error())
			return fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		p.logAction(ctx, userID, "Buy Token "+cand.Token, cand, receipt)

	case domain.SentimentNegative:
		balance, err := p.ledger.TokenBalance(ctx, userID, cand.Token)
		if err != nil {
			p.logAction(ctx, userID, "Sell Token "+cand.Token, cand, err.Error())
			return fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		if balance <= 0 {
			p.logAction(ctx, userID, "Check Token Balance", cand, "No token balance available for sale")
			return fmt.Errorf("%w: token balance drained before execution", domain.ErrInsufficientBalance)
		}

		receipt, err := p.ledger.Sell(ctx, userID, cand.Token, balance)
		if err != nil {
			p.logAction(ctx, userID, "Sell Token "+cand.Token, cand, err.Error())
			return fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
		}
		p.logAction(ctx, userID, "Sell Token "+cand.Token, cand, receipt)

	default:
		return errors.New("unreachable: invalid sentiment past validation")
	}
	return nil
}

// logAction appends an audit entry. Audit failures are logged and swallowed:
// a broken audit store must not change trading behavior mid-run.
func (p *Pipeline) logAction(ctx context.Context, userID, action string, input, output any) {
	entry := &domain.AuditLogEntry{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Input:     input,
		Output:    output,
		UserID:    userID,
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Str("user_id", userID).Msg("failed to append audit entry")
	}
}
