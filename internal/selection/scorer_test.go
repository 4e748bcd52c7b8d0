package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amaslov/equitybot/pkg/models"
)

// barsFromCloses builds daily bars (oldest first) with fixed volume
func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	base := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.005,
			Low:       c * 0.995,
			Close:     c,
			Volume:    2_000_000,
		}
	}
	return bars
}

// risingCloses generates n closes growing by pct percent each day
func risingCloses(n int, start, pct float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := 0; i < n; i++ {
		closes[i] = price
		price *= 1 + pct/100
	}
	return closes
}

func middayET() time.Time {
	return time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
}

func TestScoreNeverNegative(t *testing.T) {
	scorer := NewScorer(NewUniverse())

	// Penny stock, no volume, crashing hard: every factor penalizes
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 0.85
	}

	snap := &models.MarketSnapshot{
		Symbol: "XOM",
		Price:  0.4,
		Volume: 500,
		Bars:   barsFromCloses(closes),
	}

	score := scorer.Score("XOM", snap, middayET())
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestPriceBandScore(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"sweet spot", 150, 15},
		{"lower band edge", 10, 15},
		{"upper band edge", 500, 15},
		{"cheap", 7, 8},
		{"expensive", 750, 8},
		{"penny stock", 2, -5},
		{"four digit", 1500, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priceBandScore(tt.price))
		})
	}
}

func TestVolumeScore(t *testing.T) {
	assert.Equal(t, 20.0, volumeScore(1_500_000))
	assert.Equal(t, 15.0, volumeScore(700_000))
	assert.Equal(t, 10.0, volumeScore(200_000))
	assert.Equal(t, -10.0, volumeScore(50_000))
}

func TestTechnicalPatternScore(t *testing.T) {
	t.Run("monotonic rise has positive trend", func(t *testing.T) {
		// closes climbing from 100 to 110: recent 5-day average must
		// beat the average from 15-20 bars back
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 100 + float64(i)*10.0/19.0
		}

		score := technicalPatternScore(closes)
		assert.Greater(t, score, 0.0)
	})

	t.Run("steady decline is penalized", func(t *testing.T) {
		closes := make([]float64, 20)
		price := 200.0
		for i := range closes {
			closes[i] = price
			price *= 0.97 // -3% per day
		}

		// downtrend (-5), momentum well below -5% (-10)
		score := technicalPatternScore(closes)
		assert.Less(t, score, 0.0)
	})

	t.Run("moderate momentum rewarded", func(t *testing.T) {
		closes := risingCloses(20, 100, 0.8)
		// trend +10, momentum ~3.2% in [-2,8] +15, rms ~0.8% just below band
		score := technicalPatternScore(closes)
		assert.GreaterOrEqual(t, score, 25.0)
	})
}

func TestScoreSkipsTechnicalBlockWithFewBars(t *testing.T) {
	scorer := NewScorer(NewUniverse())
	now := middayET()

	snap := &models.MarketSnapshot{
		Symbol: "AAPL",
		Price:  180,
		Volume: 2_000_000,
		Bars:   barsFromCloses(risingCloses(5, 170, 1)),
	}

	score := scorer.Score("AAPL", snap, now)

	// base 10 + price 15 + volume 20 + sector pref (6 + tiebreak); no
	// technical or volatility contribution possible
	expectedMin := 10.0 + 15 + 20 + 6
	expectedMax := expectedMin + 10 // tiebreak < 10
	assert.GreaterOrEqual(t, score, expectedMin)
	assert.Less(t, score, expectedMax)
}

func TestVolatilityBandScore(t *testing.T) {
	flat := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	assert.Equal(t, 0.0, volatilityBandScore(flat))

	// Alternating ±2% daily moves put stddev in the preferred band
	alternating := []float64{100, 102, 100, 102, 100, 102, 100, 102, 100, 102}
	assert.Equal(t, 15.0, volatilityBandScore(alternating))

	// Wild ±12% swings blow through the 8% ceiling
	wild := []float64{100, 112, 98, 113, 97, 114, 96, 115, 95, 116}
	assert.Equal(t, -10.0, volatilityBandScore(wild))
}

func TestTieBreak(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, tieBreak("AAPL"), tieBreak("AAPL"))
	})

	t.Run("in range", func(t *testing.T) {
		for _, symbol := range defaultSymbols {
			v := tieBreak(symbol)
			assert.GreaterOrEqual(t, v, 0.0, symbol)
			assert.Less(t, v, 10.0, symbol)
		}
	})

	t.Run("known value", func(t *testing.T) {
		// 'V' = 86, 86 % 100 = 86 -> 8.6
		assert.InDelta(t, 8.6, tieBreak("V"), 1e-9)
	})
}

func TestSectorTimeBonus(t *testing.T) {
	morning := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	midday := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	afternoon := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, 3.0, sectorTimeBonus(SectorTechnology, morning))
	assert.Equal(t, 3.0, sectorTimeBonus(SectorDiscretionary, morning))
	assert.Equal(t, 0.0, sectorTimeBonus(SectorTechnology, midday))
	assert.Equal(t, 0.0, sectorTimeBonus(SectorHealthcare, morning))
	assert.Equal(t, 4.0, sectorTimeBonus(SectorHealthcare, afternoon))
	assert.Equal(t, 4.0, sectorTimeBonus(SectorStaples, afternoon))
	assert.Equal(t, 4.0, sectorTimeBonus(SectorUtilities, afternoon))
	assert.Equal(t, 0.0, sectorTimeBonus(SectorEnergy, afternoon))
}
