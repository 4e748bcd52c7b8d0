package models

import "time"

// Bar represents one daily OHLCV bar
type Bar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// Quote represents latest bid/ask quote
type Quote struct {
	Timestamp time.Time `json:"t"`
	BidPrice  float64   `json:"bp"`
	AskPrice  float64   `json:"ap"`
	BidSize   int64     `json:"bs"`
	AskSize   int64     `json:"as"`
}

// MarketSnapshot aggregates per-symbol market data for one selection or
// decision pass. Produced fresh each cycle and never retained.
type MarketSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        int64     `json:"volume"`
	ChangePercent float64   `json:"change_percent"`
	AvgVolume     float64   `json:"avg_volume,omitempty"`
	High52W       float64   `json:"high_52w,omitempty"`
	Low52W        float64   `json:"low_52w,omitempty"`
	Bars          []Bar     `json:"bars"` // daily bars, oldest first
}

// Closes returns closing prices of the snapshot bars, oldest first
func (s *MarketSnapshot) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}
	return closes
}

// Indicators holds the simplified indicator set computed over daily bars
type Indicators struct {
	MA20          float64 `json:"ma_20"`
	MA50          float64 `json:"ma_50"`
	RSI           float64 `json:"rsi"`
	ChangePercent float64 `json:"change_percent"`
	Volatility    float64 `json:"volatility"` // stddev of daily returns, percent
}

// SectorAnalysis summarizes one sector for reporting
type SectorAnalysis struct {
	Sector         string  `json:"sector"`
	AvgScore       float64 `json:"avg_score"`
	StocksAnalyzed int     `json:"stocks_analyzed"`
	Recommendation string  `json:"recommendation"` // BUY, HOLD or AVOID
}
