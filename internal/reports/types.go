package reports

import (
	"time"
)

// Period represents time range
type Period struct {
	Start time.Time
	End   time.Time
}

// Report summarizes trading activity over a period. Win rate uses
// high-confidence trades as the success proxy since realized PnL is not
// tracked per trade.
type Report struct {
	Title          string
	Period         Period
	GeneratedAt    time.Time
	TotalTrades    int
	Buys           int
	Sells          int
	HighConfidence int
	WinRate        float64
	AvgConfidence  float64
	UnrealizedPL   float64
	OpenPositions  int
	Symbols        []SymbolStats
}

// SymbolStats is per-symbol activity within a report period
type SymbolStats struct {
	Symbol        string
	Trades        int
	Buys          int
	Sells         int
	AvgConfidence float64
}
