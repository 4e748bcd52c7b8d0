package strategy

import (
	"github.com/amaslov/equitybot/pkg/models"
)

// Performance summarizes the in-memory trade history. Confidence is
// used as the success proxy since realized PnL is not tracked per trade.
type Performance struct {
	TotalTrades    int     `json:"total_trades"`
	Buys           int     `json:"buys"`
	Sells          int     `json:"sells"`
	HighConfidence int     `json:"high_confidence"`
	AvgConfidence  float64 `json:"avg_confidence"`
	SymbolsTraded  int     `json:"symbols_traded"`
}

// TradeHistory returns a copy of all recorded trades, oldest first
func (e *Engine) TradeHistory() []models.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.TradeRecord, len(e.history))
	copy(out, e.history)
	return out
}

// RecentTrades returns up to n most recent trades, newest first
func (e *Engine) RecentTrades(n int) []models.TradeRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if n <= 0 || n > len(e.history) {
		n = len(e.history)
	}

	out := make([]models.TradeRecord, 0, n)
	for i := len(e.history) - 1; i >= len(e.history)-n; i-- {
		out = append(out, e.history[i])
	}
	return out
}

// GetPerformance computes summary statistics over the trade history
func (e *Engine) GetPerformance() Performance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	perf := Performance{TotalTrades: len(e.history)}
	if len(e.history) == 0 {
		return perf
	}

	symbols := make(map[string]struct{})
	totalConfidence := 0

	for _, trade := range e.history {
		switch trade.Action {
		case models.ActionBuy:
			perf.Buys++
		case models.ActionSell:
			perf.Sells++
		}

		if trade.Confidence >= 7 {
			perf.HighConfidence++
		}

		totalConfidence += trade.Confidence
		symbols[trade.Symbol] = struct{}{}
	}

	perf.AvgConfidence = float64(totalConfidence) / float64(len(e.history))
	perf.SymbolsTraded = len(symbols)

	return perf
}
