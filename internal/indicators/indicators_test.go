package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/amaslov/equitybot/pkg/models"
)

func generateTestBars(count int, startPrice, step float64) []models.Bar {
	bars := make([]models.Bar, count)
	price := startPrice
	base := time.Date(2026, 1, 2, 16, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1_000_000,
		}
		price += step
	}

	return bars
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator()

	t.Run("uptrend", func(t *testing.T) {
		bars := generateTestBars(60, 100, 1)
		current := bars[len(bars)-1].Close + 1

		ind, err := calc.Calculate(bars, current)
		if err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}

		if ind.MA20 <= ind.MA50 {
			t.Errorf("expected MA20 > MA50 in uptrend, got MA20=%.2f MA50=%.2f", ind.MA20, ind.MA50)
		}
		if ind.RSI < 50 {
			t.Errorf("expected RSI >= 50 in uptrend, got %.2f", ind.RSI)
		}
		if ind.ChangePercent <= 0 {
			t.Errorf("expected positive change, got %.2f", ind.ChangePercent)
		}
	})

	t.Run("downtrend", func(t *testing.T) {
		bars := generateTestBars(60, 200, -1)
		current := bars[len(bars)-1].Close - 1

		ind, err := calc.Calculate(bars, current)
		if err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}

		if ind.MA20 >= ind.MA50 {
			t.Errorf("expected MA20 < MA50 in downtrend, got MA20=%.2f MA50=%.2f", ind.MA20, ind.MA50)
		}
		if ind.RSI > 50 {
			t.Errorf("expected RSI <= 50 in downtrend, got %.2f", ind.RSI)
		}
	})

	t.Run("short history uses neutral defaults", func(t *testing.T) {
		bars := generateTestBars(5, 100, 0.5)
		current := 103.0

		ind, err := calc.Calculate(bars, current)
		if err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}

		if ind.MA20 != current {
			t.Errorf("expected MA20 to default to current price %.2f, got %.2f", current, ind.MA20)
		}
		if ind.MA50 != current {
			t.Errorf("expected MA50 to default to current price %.2f, got %.2f", current, ind.MA50)
		}
		if ind.RSI != 50 {
			t.Errorf("expected neutral RSI 50, got %.2f", ind.RSI)
		}
	})

	t.Run("empty bars", func(t *testing.T) {
		if _, err := calc.Calculate(nil, 100); err == nil {
			t.Error("expected error on empty bars")
		}
	})

	t.Run("rsi bounds", func(t *testing.T) {
		bars := generateTestBars(30, 150, 2)
		ind, err := calc.Calculate(bars, 212)
		if err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}
		if ind.RSI < 0 || ind.RSI > 100 {
			t.Errorf("RSI out of range: %.2f", ind.RSI)
		}
	})
}

func TestSMA(t *testing.T) {
	calc := NewCalculator()

	t.Run("flat prices", func(t *testing.T) {
		bars := generateTestBars(25, 100, 0)
		sma, err := calc.SMA(bars, 20)
		if err != nil {
			t.Fatalf("SMA failed: %v", err)
		}
		if math.Abs(sma-100) > 0.001 {
			t.Errorf("expected SMA 100 for flat series, got %.4f", sma)
		}
	})

	t.Run("insufficient data", func(t *testing.T) {
		bars := generateTestBars(10, 100, 1)
		if _, err := calc.SMA(bars, 20); err == nil {
			t.Error("expected error for insufficient bars")
		}
	})
}

func TestDailyReturns(t *testing.T) {
	closes := []float64{100, 110, 99}
	returns := DailyReturns(closes, 10)

	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.10) > 1e-9 {
		t.Errorf("expected first return 0.10, got %.6f", returns[0])
	}
	if math.Abs(returns[1]+0.10) > 1e-9 {
		t.Errorf("expected second return -0.10, got %.6f", returns[1])
	}
}

func TestReturnStdDev(t *testing.T) {
	t.Run("flat series has zero volatility", func(t *testing.T) {
		closes := []float64{100, 100, 100, 100, 100}
		if v := ReturnStdDev(closes, 10); v != 0 {
			t.Errorf("expected 0 volatility for flat series, got %.6f", v)
		}
	})

	t.Run("alternating series", func(t *testing.T) {
		closes := []float64{100, 102, 100, 102, 100, 102}
		v := ReturnStdDev(closes, 10)
		if v <= 0 {
			t.Errorf("expected positive volatility, got %.6f", v)
		}
	})

	t.Run("window trims older closes", func(t *testing.T) {
		// huge early move outside the window must not affect the result
		closes := []float64{10, 500, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101}
		full := ReturnStdDev(closes, len(closes))
		windowed := ReturnStdDev(closes, 5)
		if windowed >= full {
			t.Errorf("expected windowed stddev below full-series stddev, got %.6f >= %.6f", windowed, full)
		}
	})
}

func TestReturnRMS(t *testing.T) {
	closes := []float64{100, 101, 100}
	// returns: +1%, -0.990099...%
	rms := ReturnRMS(closes, 10)
	want := math.Sqrt((0.01*0.01 + (1.0/101)*(1.0/101)) / 2)
	if math.Abs(rms-want) > 1e-9 {
		t.Errorf("expected RMS %.9f, got %.9f", want, rms)
	}
}
