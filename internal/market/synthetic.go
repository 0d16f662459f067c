package market

import (
	"context"
	"math/rand"

	"github.com/srishtiii28/alphascan/internal/domain"
)

const syntheticDays = 10

// SyntheticProvider generates trend-biased random-walk series. It stands in
// for a real market-data backend: a positive-sentiment token gets a rising
// series with probability 0.9, a negative one with probability 0.1, so the
// trust stage sees realistic agreement and disagreement cases.
type SyntheticProvider struct {
	rng *rand.Rand
}

// NewSyntheticProvider creates a synthetic series provider. A nil source
// falls back to the shared global generator.
func NewSyntheticProvider(src rand.Source) *SyntheticProvider {
	if src == nil {
		return &SyntheticProvider{rng: rand.New(rand.NewSource(rand.Int63()))}
	}
	return &SyntheticProvider{rng: rand.New(src)}
}

func (p *SyntheticProvider) GetSeries(ctx context.Context, token string, sentiment domain.Sentiment) (*Series, error) {
	risingProb := 0.1
	if sentiment == domain.SentimentPositive {
		risingProb = 0.9
	}

	trend := "falling"
	if p.rng.Float64() < risingProb {
		trend = "rising"
	}

	return p.generate(trend, syntheticDays), nil
}

func (p *SyntheticProvider) generate(trend string, days int) *Series {
	startPrice := p.uniform(1, 100)
	startVolume := p.uniform(1e3, 1e6)

	s := &Series{
		Prices:     []float64{startPrice},
		Volumes:    []float64{startVolume},
		MarketCaps: []float64{startPrice * startVolume},
	}

	for i := 1; i < days; i++ {
		var priceChange, volumeChange float64
		switch trend {
		case "rising":
			priceChange = p.uniform(0.5, 2.0)
			volumeChange = p.uniform(1e3, 5e3)
		case "falling":
			priceChange = p.uniform(-2.0, -0.5)
			volumeChange = p.uniform(-5e3, -1e3)
		default:
			priceChange = p.uniform(-1.5, 1.5)
			volumeChange = p.uniform(-3e3, 3e3)
		}

		newPrice := s.Prices[i-1] + priceChange
		if newPrice < 1 {
			newPrice = 1
		}
		newVolume := s.Volumes[i-1] + volumeChange
		if newVolume < 1e3 {
			newVolume = 1e3
		}

		s.Prices = append(s.Prices, newPrice)
		s.Volumes = append(s.Volumes, newVolume)
		s.MarketCaps = append(s.MarketCaps, newPrice*newVolume)
	}

	return s
}

func (p *SyntheticProvider) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}
