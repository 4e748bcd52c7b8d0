package indicators

import (
	"fmt"
	"math"

	"github.com/cinar/indicator"

	"github.com/amaslov/equitybot/pkg/models"
)

// Calculator computes the simplified indicator set used by the decision
// engines from daily bars
type Calculator struct{}

// NewCalculator creates new indicator calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes MA20/MA50, RSI-14, percent change and realized
// volatility from daily bars (oldest first). The current price is
// appended as the latest close so intraday data participates.
func (c *Calculator) Calculate(bars []models.Bar, currentPrice float64) (*models.Indicators, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars provided")
	}

	closes := make([]float64, 0, len(bars)+1)
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}
	if currentPrice > 0 {
		closes = append(closes, currentPrice)
	}

	out := &models.Indicators{
		MA20: closes[len(closes)-1],
		MA50: closes[len(closes)-1],
		RSI:  50,
	}

	if len(closes) >= 20 {
		sma := indicator.Sma(20, closes)
		out.MA20 = sma[len(sma)-1]
	}
	if len(closes) >= 50 {
		sma := indicator.Sma(50, closes)
		out.MA50 = sma[len(sma)-1]
	}

	if len(closes) >= 15 {
		_, rsi := indicator.Rsi(closes)
		if len(rsi) > 13 {
			out.RSI = rsi[len(rsi)-1]
		}
	}

	if len(closes) > 1 {
		prev := closes[len(closes)-2]
		if prev > 0 {
			out.ChangePercent = (closes[len(closes)-1] - prev) / prev * 100
		}
	}

	out.Volatility = ReturnStdDev(closes, 20) * 100

	return out, nil
}

// SMA computes a simple moving average of the last period closes
func (c *Calculator) SMA(bars []models.Bar, period int) (float64, error) {
	if len(bars) < period {
		return 0, fmt.Errorf("insufficient bars for SMA calculation (need %d, got %d)", period, len(bars))
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	sma := indicator.Sma(period, closes)
	if len(sma) == 0 {
		return 0, fmt.Errorf("SMA calculation failed")
	}
	return sma[len(sma)-1], nil
}

// RSI computes the latest 14-period relative strength index
func (c *Calculator) RSI(bars []models.Bar) (float64, error) {
	if len(bars) < 15 {
		return 0, fmt.Errorf("insufficient bars for RSI calculation")
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	_, rsi := indicator.Rsi(closes)
	if len(rsi) == 0 {
		return 0, fmt.Errorf("RSI returned no data")
	}
	return rsi[len(rsi)-1], nil
}

// ReturnStdDev computes the standard deviation of daily returns over the
// trailing window (variance about the mean return)
func ReturnStdDev(closes []float64, window int) float64 {
	returns := DailyReturns(closes, window)
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// ReturnRMS computes the quadratic mean of daily returns over the
// trailing window (root-mean-square without subtracting the mean)
func ReturnRMS(closes []float64, window int) float64 {
	returns := DailyReturns(closes, window)
	if len(returns) == 0 {
		return 0
	}

	var sumSq float64
	for _, r := range returns {
		sumSq += r * r
	}

	return math.Sqrt(sumSq / float64(len(returns)))
}

// DailyReturns computes simple daily returns over the trailing window of
// closes. A window of n closes yields at most n-1 returns.
func DailyReturns(closes []float64, window int) []float64 {
	if len(closes) < 2 {
		return nil
	}

	start := 0
	if len(closes) > window {
		start = len(closes) - window
	}
	tail := closes[start:]

	returns := make([]float64, 0, len(tail)-1)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		returns = append(returns, (tail[i]-tail[i-1])/tail[i-1])
	}

	return returns
}
