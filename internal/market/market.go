// Package market provides the trend and conviction math used by the trust
// stage, plus the series-data boundary to whatever market-data backend is
// wired in.
package market

import (
	"context"

	"github.com/srishtiii28/alphascan/internal/domain"
)

// Trend classifies the direction of one metric series.
type Trend string

const (
	TrendPositive Trend = "positive"
	TrendNegative Trend = "negative"
	TrendMixed    Trend = "mixed"
)

// Series holds the historical metric series for one token.
type Series struct {
	Prices     []float64 `json:"prices"`
	MarketCaps []float64 `json:"market_caps"`
	Volumes    []float64 `json:"total_volumes"`
}

// Trends holds the per-metric trend classification of a Series.
type Trends struct {
	Prices     Trend `json:"prices"`
	MarketCaps Trend `json:"market_caps"`
	Volumes    Trend `json:"total_volumes"`
}

// Provider fetches a trend series for a token. The candidate sentiment is
// passed along so synthetic backends can bias their output the way the real
// market would correlate with a genuine signal.
type Provider interface {
	GetSeries(ctx context.Context, token string, sentiment domain.Sentiment) (*Series, error)
}

// ClassifyTrend labels a series positive iff strictly non-decreasing,
// negative iff strictly non-increasing, and mixed otherwise.
func ClassifyTrend(values []float64) Trend {
	nonDecreasing := true
	nonIncreasing := true
	for i := 0; i+1 < len(values); i++ {
		if values[i] > values[i+1] {
			nonDecreasing = false
		}
		if values[i] < values[i+1] {
			nonIncreasing = false
		}
	}
	// A flat or single-point series classifies as non-increasing first,
	// matching the order the checks are applied in.
	if nonIncreasing {
		return TrendNegative
	}
	if nonDecreasing {
		return TrendPositive
	}
	return TrendMixed
}

// DetectTrends classifies every metric in the series.
func DetectTrends(s *Series) Trends {
	return Trends{
		Prices:     ClassifyTrend(s.Prices),
		MarketCaps: ClassifyTrend(s.MarketCaps),
		Volumes:    ClassifyTrend(s.Volumes),
	}
}

// PnLPotential scores the profit/loss potential of a series: percentage price
// change scaled by the market-cap and volume concentration ratios. Zero when
// any series is empty.
func PnLPotential(s *Series) float64 {
	if len(s.Prices) == 0 || len(s.MarketCaps) == 0 || len(s.Volumes) == 0 {
		return 0
	}

	initial := s.Prices[0]
	final := s.Prices[len(s.Prices)-1]
	if initial == 0 {
		return 0
	}
	priceChange := (final - initial) / initial * 100

	avgMcap, maxMcap := avgMax(s.MarketCaps)
	avgVol, maxVol := avgMax(s.Volumes)
	if maxMcap == 0 || maxVol == 0 {
		return 0
	}

	return priceChange * (avgMcap / maxMcap) * (avgVol / maxVol)
}

func avgMax(values []float64) (avg, max float64) {
	var sum float64
	for _, v := range values {
		sum += v
		if v > max {
			max = v
		}
	}
	return sum / float64(len(values)), max
}
