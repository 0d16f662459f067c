package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/ledger"
	"github.com/srishtiii28/alphascan/internal/llm"
	"github.com/srishtiii28/alphascan/internal/market"
	"github.com/srishtiii28/alphascan/internal/pipeline"
)

const testUserID = "user-1"

func newTestPipeline(script []string, led *MockLedger, mkt *MockMarket, tokens *MockTokenHistory, audit *recordingAudit) *pipeline.Pipeline {
	provider := &scriptedProvider{responses: script}
	router := llm.NewRouter(provider.Name())
	router.RegisterProvider(provider)
	client := llm.NewClient(router, 1)

	return pipeline.New(client, led, mkt, audit, tokens, pipeline.Config{
		BuyFraction:  0.6,
		MinPnL:       10,
		BaseCurrency: "EDU",
	})
}

func batchOf(texts ...string) []domain.MessageEvent {
	events := make([]domain.MessageEvent, len(texts))
	for i, t := range texts {
		events[i] = domain.MessageEvent{
			GroupName:  "alpha-group",
			SenderName: "caller",
			Text:       t,
			UserID:     testUserID,
		}
	}
	return events
}

func alphaResponse(token string, sentiment domain.Sentiment) string {
	return `[{"token":"` + token + `","texts":["pump incoming"],"sentiment":"` + string(sentiment) + `","confidence":0.9}]`
}

func postsResponse() string {
	return `{"tweets":["post one","post two","post three"]}`
}

func sentimentResponse(s domain.Sentiment) string {
	return `{"sentiment":"` + string(s) + `"}`
}

// flatRatioSeries has constant market caps and volumes, so the PnL potential
// equals the raw price change percentage.
func flatRatioSeries(prices ...float64) *market.Series {
	n := len(prices)
	caps := make([]float64, n)
	vols := make([]float64, n)
	for i := range caps {
		caps[i] = 1000
		vols[i] = 500
	}
	return &market.Series{Prices: prices, MarketCaps: caps, Volumes: vols}
}

func TestRun_PositiveSignalBuysFractionOfBalance(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("ABC", domain.SentimentPositive),
		postsResponse(),
		sentimentResponse(domain.SentimentPositive),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(100.0, nil)
	// 100 -> 150 with constant caps and volumes scores 50.
	mkt.On("GetSeries", mock.Anything, "ABC", domain.SentimentPositive).
		Return(flatRatioSeries(100, 110, 120, 130, 140, 150), nil)
	tokens.On("AddToken", mock.Anything, testUserID, "ABC").Return(nil)
	led.On("Buy", mock.Anything, testUserID, "ABC", 60.0).
		Return(&ledger.Receipt{TxHash: "0xabc", Token: "ABC", Amount: 60}, nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("ABC to the moon"))

	require.NoError(t, err)
	led.AssertCalled(t, "Buy", mock.Anything, testUserID, "ABC", 60.0)
	assert.True(t, audit.hasAction("Get Alpha from Group Texts"))
	assert.True(t, audit.hasAction("Validation Layer Passed"))
	assert.True(t, audit.hasAction("Trust Layer Approved"))
	assert.True(t, audit.hasAction("Buy Token ABC"))
}

func TestRun_ZeroBaseBalanceStopsBeforeValidation(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("ABC", domain.SentimentPositive),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(0.0, nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("buy ABC"))

	require.NoError(t, err)
	led.AssertNumberOfCalls(t, "BaseBalance", 1)
	led.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mkt.AssertNotCalled(t, "GetSeries", mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, audit.hasAction("Validation Layer Passed"))
}

func TestRun_ValidationMismatchDeclines(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("ABC", domain.SentimentPositive),
		postsResponse(),
		sentimentResponse(domain.SentimentNegative),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(100.0, nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("buy ABC"))

	require.NoError(t, err)
	assert.True(t, audit.hasAction("Validation Layer Declined"))
	mkt.AssertNotCalled(t, "GetSeries", mock.Anything, mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PriceTrendDisagreementDeclines(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("ABC", domain.SentimentPositive),
		postsResponse(),
		sentimentResponse(domain.SentimentPositive),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(100.0, nil)
	// Falling prices against a positive signal.
	mkt.On("GetSeries", mock.Anything, "ABC", domain.SentimentPositive).
		Return(flatRatioSeries(150, 140, 130, 120, 110, 100), nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("buy ABC"))

	require.NoError(t, err)
	assert.True(t, audit.hasAction("Sentiment and Trends do not match"))
	led.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tokens.AssertNotCalled(t, "AddToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_LowPnLPotentialDeclines(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("ABC", domain.SentimentPositive),
		postsResponse(),
		sentimentResponse(domain.SentimentPositive),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(100.0, nil)
	// Rising, but only a 5% move.
	mkt.On("GetSeries", mock.Anything, "ABC", domain.SentimentPositive).
		Return(flatRatioSeries(100, 101, 102, 103, 104, 105), nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("buy ABC"))

	require.NoError(t, err)
	assert.True(t, audit.hasAction("Trust Layer Declined"))
	led.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_NegativeSignalSellsFullTokenBalance(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		alphaResponse("XYZ", domain.SentimentNegative),
		postsResponse(),
		sentimentResponse(domain.SentimentNegative),
	}

	led.On("TokenBalance", mock.Anything, testUserID, "XYZ").Return(40.0, nil)
	// A falling series scores -33%, well past the threshold in magnitude.
	mkt.On("GetSeries", mock.Anything, "XYZ", domain.SentimentNegative).
		Return(flatRatioSeries(150, 140, 130, 120, 110, 100), nil)
	tokens.On("AddToken", mock.Anything, testUserID, "XYZ").Return(nil)
	led.On("Sell", mock.Anything, testUserID, "XYZ", 40.0).
		Return(&ledger.Receipt{TxHash: "0xdef", Token: "XYZ", Amount: 40}, nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("dump XYZ now"))

	require.NoError(t, err)
	led.AssertCalled(t, "Sell", mock.Anything, testUserID, "XYZ", 40.0)
	assert.True(t, audit.hasAction("Sell Token XYZ"))
}

func TestRun_LedgerFailureIsIsolatedPerCandidate(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{
		`[{"token":"ABC","texts":["a"],"sentiment":"positive","confidence":0.9},` +
			`{"token":"DEF","texts":["b"],"sentiment":"positive","confidence":0.8}]`,
		postsResponse(),
		sentimentResponse(domain.SentimentPositive),
		postsResponse(),
		sentimentResponse(domain.SentimentPositive),
	}

	led.On("BaseBalance", mock.Anything, testUserID).Return(100.0, nil)
	mkt.On("GetSeries", mock.Anything, mock.Anything, domain.SentimentPositive).
		Return(flatRatioSeries(100, 110, 120, 130, 140, 150), nil)
	tokens.On("AddToken", mock.Anything, testUserID, mock.Anything).Return(nil)
	led.On("Buy", mock.Anything, testUserID, "ABC", 60.0).
		Return(nil, errors.New("rpc node unreachable"))
	led.On("Buy", mock.Anything, testUserID, "DEF", 60.0).
		Return(&ledger.Receipt{TxHash: "0x123", Token: "DEF", Amount: 60}, nil)

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("ABC and DEF look strong"))

	require.NoError(t, err)
	// The first buy failed but the second candidate still traded.
	led.AssertCalled(t, "Buy", mock.Anything, testUserID, "DEF", 60.0)
	assert.True(t, audit.hasAction("Buy Token DEF"))
	assert.False(t, audit.hasAction("Buy Token ABC") && !audit.hasAction("Buy Token DEF"))
}

func TestRun_NoCandidatesLogsAndStops(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{`[]`}

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("gm", "gm gm"))

	require.NoError(t, err)
	assert.True(t, audit.hasAction("Analyse Texts"))
	led.AssertNotCalled(t, "BaseBalance", mock.Anything, mock.Anything)
	mkt.AssertNotCalled(t, "GetSeries", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ExtractionFailureReturnsError(t *testing.T) {
	led := new(MockLedger)
	mkt := new(MockMarket)
	tokens := new(MockTokenHistory)
	audit := &recordingAudit{}

	script := []string{`this is not json at all`}

	p := newTestPipeline(script, led, mkt, tokens, audit)
	err := p.Run(context.Background(), testUserID, batchOf("buy ABC"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
