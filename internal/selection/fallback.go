package selection

import (
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/pkg/logger"
)

const broadMarketETF = "SPY"

// fallbackPools holds one curated candidate list per sector, ordered by
// preference. Used only by the diversified fallback path.
var fallbackPools = map[Sector][]string{
	SectorTechnology:    {"AAPL", "MSFT", "NVDA", "GOOGL"},
	SectorFinancial:     {"JPM", "V", "GS"},
	SectorHealthcare:    {"JNJ", "UNH", "PFE"},
	SectorStaples:       {"KO", "WMT", "PEP"},
	SectorDiscretionary: {"AMZN", "HD", "MCD"},
	SectorIndustrial:    {"CAT", "BA"},
	SectorEnergy:        {"XOM", "CVX"},
}

// fallbackRemainder backfills slots the sector rotation could not fill
var fallbackRemainder = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "JPM", "JNJ", "XOM"}

// morning favors growth, midday is balanced, afternoon turns defensive
var (
	morningRotation = []Sector{
		SectorTechnology, SectorDiscretionary, SectorFinancial,
		SectorIndustrial, SectorHealthcare, SectorStaples, SectorEnergy,
	}
	middayRotation = []Sector{
		SectorFinancial, SectorHealthcare, SectorTechnology,
		SectorStaples, SectorIndustrial, SectorDiscretionary, SectorEnergy,
	}
	afternoonRotation = []Sector{
		SectorStaples, SectorHealthcare, SectorUtilities, SectorFinancial,
		SectorIndustrial, SectorTechnology, SectorDiscretionary, SectorEnergy,
	}
)

// diversifiedFallback selects symbols from the curated per-sector pools
// using a time-of-day rotation, then backfills from the remainder list
// and guarantees a broad-market ETF when room remains. This path never
// returns an empty list for maxStocks >= 1.
func diversifiedFallback(now time.Time, maxStocks int) []string {
	if maxStocks < 1 {
		maxStocks = 1
	}

	rotation := rotationFor(now)
	morning := now.Hour() < 12

	selected := make([]string, 0, maxStocks)
	used := make(map[string]bool)

	for _, sector := range rotation {
		if len(selected) >= maxStocks {
			break
		}
		if symbol := pickFromPool(sector, morning, used); symbol != "" {
			selected = append(selected, symbol)
			used[symbol] = true
		}
	}

	for _, symbol := range fallbackRemainder {
		if len(selected) >= maxStocks {
			break
		}
		if !used[symbol] {
			selected = append(selected, symbol)
			used[symbol] = true
		}
	}

	if len(selected) < maxStocks && !used[broadMarketETF] {
		selected = append(selected, broadMarketETF)
	}

	logger.Info("Diversified fallback selection",
		zap.Strings("symbols", selected),
		zap.Bool("morning", morning))

	return selected
}

func rotationFor(now time.Time) []Sector {
	hour := now.Hour()
	switch {
	case hour < 12:
		return morningRotation
	case hour < 14:
		return middayRotation
	default:
		return afternoonRotation
	}
}

// pickFromPool returns the preferred unused symbol from a sector pool.
// Before noon the technology pick prefers the higher-beta NVDA.
func pickFromPool(sector Sector, morning bool, used map[string]bool) string {
	pool := fallbackPools[sector]
	if len(pool) == 0 {
		return ""
	}

	if morning && sector == SectorTechnology && !used["NVDA"] {
		return "NVDA"
	}

	for _, symbol := range pool {
		if !used[symbol] {
			return symbol
		}
	}
	return ""
}
