package selection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
)

const sectorReturnDays = 7

// ETFData supplies trailing returns for sector proxy ETFs
type ETFData interface {
	TrailingReturn(ctx context.Context, symbol string, days int) (float64, error)
}

// SectorWeightTable maps sectors to multiplicative score weights,
// recomputed each selection pass from recent ETF performance
type SectorWeightTable map[Sector]float64

// Weight returns the weight for a sector, 1.0 when absent
func (t SectorWeightTable) Weight(sector Sector) float64 {
	if w, ok := t[sector]; ok {
		return w
	}
	return 1.0
}

// ComputeSectorWeights builds the weight table from each sector ETF's
// trailing 7-day return relative to the cross-sector average. An ETF with
// unavailable data counts as a 0.0 return and stays in the average. When
// every ETF fails, all sectors get a uniform 1.0.
func ComputeSectorWeights(ctx context.Context, data ETFData) SectorWeightTable {
	sectors := AllSectors()
	returns := make(map[Sector]float64, len(sectors))

	available := 0
	var sum float64

	for _, sector := range sectors {
		etf := SectorETF(sector)

		r, err := data.TrailingReturn(ctx, etf, sectorReturnDays)
		if err != nil {
			logger.Debug("Sector ETF return unavailable, using neutral",
				zap.String("etf", etf), zap.Error(err))
			r = 0.0
		} else {
			available++
		}

		returns[sector] = r
		sum += r
	}

	if available == 0 {
		logger.Warn("No sector ETF data available, using uniform sector weights")
		table := make(SectorWeightTable, len(sectors))
		for _, sector := range sectors {
			table[sector] = 1.0
		}
		return table
	}

	avg := sum / float64(len(sectors))

	table := make(SectorWeightTable, len(sectors))
	for _, sector := range sectors {
		table[sector] = sectorWeight(returns[sector], avg)
	}

	return table
}

// sectorWeight applies the piecewise weighting formula: outperforming
// sectors are boosted up to +0.5, underperformers dampened down to -0.3
func sectorWeight(r, avg float64) float64 {
	diff := r - avg
	if diff > 0 {
		boost := diff * 5
		if boost > 0.5 {
			boost = 0.5
		}
		return 1 + boost
	}

	penalty := diff * 3
	if penalty < -0.3 {
		penalty = -0.3
	}
	return 1 + penalty
}

// TimeFactor returns the multiplicative score factor for the time of day
// within the configured trading session
func TimeFactor(now time.Time, hours config.MarketHours) float64 {
	minutes := now.Hour()*60 + now.Minute()

	open := hours.OpenHour*60 + hours.OpenMinute
	close := hours.CloseHour * 60

	if minutes < open || minutes >= close {
		return 0.9 // outside the session
	}

	switch {
	case minutes < open+60:
		return 1.3 // opening hour momentum
	case now.Hour() >= hours.CloseRushHour:
		return 1.2 // closing-hour volume pickup
	case now.Hour() >= hours.MiddayStartHour && now.Hour() < hours.MiddayEndHour:
		return 0.8 // midday lull
	default:
		return 1.0
	}
}
