package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

const (
	barHistoryDays  = 370
	avgVolumeWindow = 20
	batchChunkSize  = 50
)

type latestQuote struct {
	BidPrice float64 `json:"bp"`
	AskPrice float64 `json:"ap"`
}

type latestTrade struct {
	Price float64 `json:"p"`
	Size  int64   `json:"s"`
}

type snapshotResponse struct {
	LatestTrade *latestTrade `json:"latestTrade"`
	LatestQuote *latestQuote `json:"latestQuote"`
	DailyBar    *models.Bar  `json:"dailyBar"`
	PrevDaily   *models.Bar  `json:"prevDailyBar"`
}

type barsResponse struct {
	Bars          []models.Bar `json:"bars"`
	NextPageToken *string      `json:"next_page_token"`
}

type multiBarsResponse struct {
	Bars          map[string][]models.Bar `json:"bars"`
	NextPageToken *string                 `json:"next_page_token"`
}

// GetCurrentPrice returns the latest trade price, falling back to the
// bid/ask midpoint when no trade is available
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var resp snapshotResponse
	if err := c.do(ctx, http.MethodGet, c.dataURL+"/v2/stocks/"+symbol+"/snapshot", nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to get snapshot for %s: %w", symbol, err)
	}

	price := priceFromSnapshot(&resp)
	if price <= 0 {
		return 0, fmt.Errorf("no current price available for %s", symbol)
	}
	return price, nil
}

func priceFromSnapshot(s *snapshotResponse) float64 {
	if s.LatestTrade != nil && s.LatestTrade.Price > 0 {
		return s.LatestTrade.Price
	}
	if s.LatestQuote != nil && s.LatestQuote.BidPrice > 0 && s.LatestQuote.AskPrice > 0 {
		return (s.LatestQuote.BidPrice + s.LatestQuote.AskPrice) / 2
	}
	if s.DailyBar != nil {
		return s.DailyBar.Close
	}
	return 0
}

// GetBars returns daily bars for a symbol, oldest first
func (c *Client) GetBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	start := c.now().AddDate(0, 0, -days)
	u := fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&start=%s&limit=10000&adjustment=split",
		c.dataURL, symbol, url.QueryEscape(start.Format(time.RFC3339)))

	var resp barsResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
	}

	return resp.Bars, nil
}

// GetSnapshot assembles a full market snapshot for one symbol: current
// price, volumes, daily change, 52-week range and a year of daily bars
func (c *Client) GetSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	var snap snapshotResponse
	if err := c.do(ctx, http.MethodGet, c.dataURL+"/v2/stocks/"+symbol+"/snapshot", nil, &snap); err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", symbol, err)
	}

	bars, err := c.GetBars(ctx, symbol, barHistoryDays)
	if err != nil {
		return nil, err
	}

	return buildSnapshot(symbol, &snap, bars)
}

// GetSnapshots fetches snapshots for many symbols, batching requests.
// Symbols that fail are logged and omitted from the result.
func (c *Client) GetSnapshots(ctx context.Context, symbols []string) (map[string]*models.MarketSnapshot, error) {
	result := make(map[string]*models.MarketSnapshot, len(symbols))

	for start := 0; start < len(symbols); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		snaps, err := c.getSnapshotBatch(ctx, chunk)
		if err != nil {
			return nil, err
		}

		barSets, err := c.getBarsBatch(ctx, chunk, barHistoryDays)
		if err != nil {
			return nil, err
		}

		for _, symbol := range chunk {
			snap, ok := snaps[symbol]
			if !ok {
				logger.Warn("No snapshot data for symbol, skipping", zap.String("symbol", symbol))
				continue
			}

			ms, err := buildSnapshot(symbol, &snap, barSets[symbol])
			if err != nil {
				logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
				continue
			}
			result[symbol] = ms
		}
	}

	if len(result) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("no market data available for any of %d symbols", len(symbols))
	}

	return result, nil
}

func (c *Client) getSnapshotBatch(ctx context.Context, symbols []string) (map[string]snapshotResponse, error) {
	u := fmt.Sprintf("%s/v2/stocks/snapshots?symbols=%s", c.dataURL, strings.Join(symbols, ","))

	var resp map[string]snapshotResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	return resp, nil
}

func (c *Client) getBarsBatch(ctx context.Context, symbols []string, days int) (map[string][]models.Bar, error) {
	start := c.now().AddDate(0, 0, -days)
	base := fmt.Sprintf("%s/v2/stocks/bars?symbols=%s&timeframe=1Day&start=%s&limit=10000&adjustment=split",
		c.dataURL, strings.Join(symbols, ","), url.QueryEscape(start.Format(time.RFC3339)))

	barSets := make(map[string][]models.Bar)
	pageToken := ""

	for {
		u := base
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}

		var resp multiBarsResponse
		if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to get bars: %w", err)
		}

		for symbol, bars := range resp.Bars {
			barSets[symbol] = append(barSets[symbol], bars...)
		}

		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			break
		}
		pageToken = *resp.NextPageToken
	}

	return barSets, nil
}

func buildSnapshot(symbol string, snap *snapshotResponse, bars []models.Bar) (*models.MarketSnapshot, error) {
	price := priceFromSnapshot(snap)
	if price <= 0 {
		return nil, fmt.Errorf("no current price available for %s", symbol)
	}

	ms := &models.MarketSnapshot{
		Timestamp: time.Now(),
		Symbol:    symbol,
		Price:     price,
		Bars:      bars,
	}

	if snap.DailyBar != nil {
		ms.Volume = int64(snap.DailyBar.Volume)
	}

	if snap.PrevDaily != nil && snap.PrevDaily.Close > 0 {
		ms.ChangePercent = (price - snap.PrevDaily.Close) / snap.PrevDaily.Close * 100
	} else if len(bars) >= 2 {
		prev := bars[len(bars)-2].Close
		if prev > 0 {
			ms.ChangePercent = (price - prev) / prev * 100
		}
	}

	if len(bars) > 0 {
		window := bars
		if len(window) > avgVolumeWindow {
			window = window[len(window)-avgVolumeWindow:]
		}
		var total float64
		for _, b := range window {
			total += b.Volume
		}
		ms.AvgVolume = total / float64(len(window))

		yearAgo := time.Now().AddDate(-1, 0, 0)
		for _, b := range bars {
			if b.Timestamp.Before(yearAgo) {
				continue
			}
			if b.High > ms.High52W {
				ms.High52W = b.High
			}
			if ms.Low52W == 0 || b.Low < ms.Low52W {
				ms.Low52W = b.Low
			}
		}
	}

	return ms, nil
}

// TrailingReturn computes the fractional change of the close over the
// past calendar days. Used for sector ETF momentum.
func (c *Client) TrailingReturn(ctx context.Context, symbol string, days int) (float64, error) {
	bars, err := c.GetBars(ctx, symbol, days+5)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("insufficient bars for trailing return of %s", symbol)
	}

	// Reference the last close at or before the start of the window;
	// the fetch padding only covers weekends and holidays.
	cutoff := c.now().AddDate(0, 0, -days)
	ref := bars[0].Close
	for _, b := range bars {
		if b.Timestamp.After(cutoff) {
			break
		}
		ref = b.Close
	}

	last := bars[len(bars)-1].Close
	if ref <= 0 {
		return 0, fmt.Errorf("invalid start price for %s", symbol)
	}

	return (last - ref) / ref, nil
}
