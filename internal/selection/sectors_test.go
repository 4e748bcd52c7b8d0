package selection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amaslov/equitybot/internal/adapters/config"
)

type fakeETFData struct {
	returns map[string]float64
	failAll bool
}

func (f *fakeETFData) TrailingReturn(ctx context.Context, symbol string, days int) (float64, error) {
	if f.failAll {
		return 0, fmt.Errorf("etf data unavailable")
	}
	if r, ok := f.returns[symbol]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("no data for %s", symbol)
}

func TestSectorWeightFormula(t *testing.T) {
	t.Run("outperformer above one, underperformer below", func(t *testing.T) {
		// +5% and -5% around a 0% average
		assert.Greater(t, sectorWeight(0.05, 0.0), 1.0)
		assert.Less(t, sectorWeight(-0.05, 0.0), 1.0)
	})

	t.Run("boost capped at 0.5", func(t *testing.T) {
		assert.Equal(t, 1.5, sectorWeight(0.5, 0.0))
	})

	t.Run("penalty floored at -0.3", func(t *testing.T) {
		assert.Equal(t, 0.7, sectorWeight(-0.5, 0.0))
	})

	t.Run("exact piecewise values", func(t *testing.T) {
		// +2% above average: 1 + 0.02*5 = 1.1
		assert.InDelta(t, 1.1, sectorWeight(0.02, 0.0), 1e-9)
		// -2% below average: 1 - 0.02*3 = 0.94
		assert.InDelta(t, 0.94, sectorWeight(-0.02, 0.0), 1e-9)
		// at the average: no adjustment
		assert.InDelta(t, 1.0, sectorWeight(0.03, 0.03), 1e-9)
	})
}

func TestComputeSectorWeights(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed returns", func(t *testing.T) {
		data := &fakeETFData{returns: map[string]float64{
			"XLK": 0.04, "XLF": -0.04,
			// remaining ETFs unavailable, count as 0.0
		}}

		weights := ComputeSectorWeights(ctx, data)

		assert.Greater(t, weights.Weight(SectorTechnology), 1.0)
		assert.Less(t, weights.Weight(SectorFinancial), 1.0)
		// neutral sectors sit at or just below 1.0 depending on the average
		assert.InDelta(t, 1.0, weights.Weight(SectorEnergy), 0.05)
	})

	t.Run("all unavailable gives uniform weights", func(t *testing.T) {
		weights := ComputeSectorWeights(ctx, &fakeETFData{failAll: true})

		for _, sector := range AllSectors() {
			assert.Equal(t, 1.0, weights.Weight(sector), string(sector))
		}
	})

	t.Run("unknown sector defaults to neutral", func(t *testing.T) {
		weights := ComputeSectorWeights(ctx, &fakeETFData{failAll: true})
		assert.Equal(t, 1.0, weights.Weight(SectorOther))
	})
}

func defaultHours() config.MarketHours {
	return config.MarketHours{
		OpenHour:        9,
		OpenMinute:      30,
		CloseHour:       16,
		MiddayStartHour: 12,
		MiddayEndHour:   14,
		CloseRushHour:   15,
	}
}

func TestTimeFactor(t *testing.T) {
	hours := defaultHours()
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		when time.Time
		want float64
	}{
		{"market open", at(9, 30), 1.3},
		{"end of opening hour", at(10, 29), 1.3},
		{"after opening hour", at(10, 30), 1.0},
		{"late morning", at(11, 45), 1.0},
		{"midday lull start", at(12, 0), 0.8},
		{"midday lull", at(13, 30), 0.8},
		{"midday lull end", at(14, 0), 1.0},
		{"closing rush", at(15, 0), 1.2},
		{"just before close", at(15, 59), 1.2},
		{"market close", at(16, 0), 0.9},
		{"pre-market", at(8, 0), 0.9},
		{"just before open", at(9, 29), 0.9},
		{"overnight", at(2, 0), 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeFactor(tt.when, hours), tt.name)
		})
	}
}
