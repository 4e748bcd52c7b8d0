package selection

import (
	"time"

	"github.com/amaslov/equitybot/internal/indicators"
	"github.com/amaslov/equitybot/pkg/models"
)

// ScoredCandidate is the result of scoring one symbol in a selection pass
type ScoredCandidate struct {
	Symbol        string
	Sector        Sector
	BaseScore     float64 // composite score before market-wide adjustments
	SectorWeight  float64
	TimeFactor    float64
	AdjustedScore float64 // BaseScore * SectorWeight * TimeFactor (* 1.2 if confirmed)
	Confirmed     bool
}

// Scorer computes the composite desirability score for a symbol. The
// scorer is pure: all inputs arrive as arguments, nothing is cached.
type Scorer struct {
	universe *Universe
}

// NewScorer creates new composite scorer over the given universe
func NewScorer(universe *Universe) *Scorer {
	return &Scorer{universe: universe}
}

// Score computes the composite score for a symbol from its snapshot.
// Each factor contributes independently; the sum is clamped to >= 0.
func (s *Scorer) Score(symbol string, snap *models.MarketSnapshot, now time.Time) float64 {
	score := 10.0

	score += priceBandScore(snap.Price)
	score += volumeScore(snap.Volume)

	closes := snap.Closes()
	if len(closes) >= 20 {
		score += technicalPatternScore(closes)
	}

	score += s.sectorPreferenceScore(symbol, now)

	if len(closes) >= 10 {
		score += volatilityBandScore(closes)
	}

	if score < 0 {
		return 0
	}
	return score
}

// priceBandScore rewards a tradable price range, penalizing penny stocks
// and excessively priced names
func priceBandScore(price float64) float64 {
	switch {
	case price >= 10 && price <= 500:
		return 15
	case (price >= 5 && price < 10) || (price > 500 && price <= 1000):
		return 8
	default:
		return -5
	}
}

func volumeScore(volume int64) float64 {
	switch {
	case volume > 1_000_000:
		return 20
	case volume > 500_000:
		return 15
	case volume > 100_000:
		return 10
	default:
		return -10
	}
}

// technicalPatternScore evaluates trend, momentum and realized volatility
// over the last 20 closes. Callers must guarantee len(closes) >= 20.
func technicalPatternScore(closes []float64) float64 {
	score := 0.0
	window := closes[len(closes)-20:]

	// Trend: recent 5-day average vs the average 15-20 bars back
	recentAvg := mean(window[15:])
	olderAvg := mean(window[0:5])
	if recentAvg > olderAvg {
		score += 10
	} else {
		score -= 5
	}

	// Momentum: latest close vs the close 5 bars back
	current := window[len(window)-1]
	weekAgo := window[len(window)-5]
	if weekAgo > 0 {
		momentum := (current - weekAgo) / weekAgo * 100
		switch {
		case momentum >= -2 && momentum <= 8:
			score += 15
		case momentum > 8:
			score += 5
		case momentum < -5:
			score -= 10
		}
	}

	// Realized volatility as the quadratic mean of the last 10 returns
	rms := indicators.ReturnRMS(window, 11)
	if rms >= 0.01 && rms <= 0.04 {
		score += 10
	} else if rms > 0.06 {
		score -= 5
	}

	return score
}

// volatilityBandScore scores the true standard deviation of returns over
// the last 10 closes, favoring a moderate band
func volatilityBandScore(closes []float64) float64 {
	stddev := indicators.ReturnStdDev(closes, 10)
	switch {
	case stddev >= 0.015 && stddev <= 0.035:
		return 15
	case (stddev >= 0.01 && stddev < 0.015) || (stddev > 0.035 && stddev <= 0.05):
		return 8
	case stddev > 0.08:
		return -10
	default:
		return 0
	}
}

// sectorPreferenceScore combines the static sector bonus, a deterministic
// per-symbol tie-break and a time-of-day sector bonus
func (s *Scorer) sectorPreferenceScore(symbol string, now time.Time) float64 {
	sector := s.universe.SectorOf(symbol)

	score := sectorPreference[sector]
	score += tieBreak(symbol)
	score += sectorTimeBonus(sector, now)

	return score
}

// tieBreak derives a stable per-symbol value in [0, 10) from the symbol
// string so equal-scored symbols order deterministically across platforms
func tieBreak(symbol string) float64 {
	sum := 0
	for _, c := range symbol {
		sum += int(c)
	}
	return float64(sum%100) * 0.1
}

// sectorTimeBonus favors growth sectors in the morning session and
// defensive sectors in the afternoon
func sectorTimeBonus(sector Sector, now time.Time) float64 {
	hour := now.Hour()

	switch sector {
	case SectorTechnology, SectorDiscretionary:
		if hour < 11 {
			return 3
		}
	case SectorHealthcare, SectorStaples, SectorUtilities:
		if hour >= 14 {
			return 4
		}
	}
	return 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
