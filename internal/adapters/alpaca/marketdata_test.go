package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/internal/selection"
	"github.com/amaslov/equitybot/pkg/models"
)

func newTestClient(t *testing.T, url string, now time.Time) *Client {
	t.Helper()

	c := NewClient(config.AlpacaConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   url,
		DataURL:   url,
		RateLimit: 1000,
	})
	c.now = func() time.Time { return now }

	return c
}

// barsServer serves /v2/stocks/{symbol}/bars from a fixed per-symbol map
func barsServer(t *testing.T, barsBySymbol map[string][]models.Bar) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		require.GreaterOrEqual(t, len(parts), 4, "unexpected path %s", r.URL.Path)
		symbol := parts[3]

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(barsResponse{Bars: barsBySymbol[symbol]}); err != nil {
			t.Errorf("encode bars: %v", err)
		}
	}))
}

func closeBar(day time.Time, close float64) models.Bar {
	return models.Bar{
		Timestamp: day,
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1_000_000,
	}
}

func TestTrailingReturn_FractionalChange(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 21, 0, 0, 0, time.UTC) }

	// A 5% move over the window must come back as 0.05, not 5
	server := barsServer(t, map[string][]models.Bar{
		"XLK": {
			closeBar(day(11), 98),
			closeBar(day(13), 100),
			closeBar(day(15), 102),
			closeBar(day(19), 105),
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL, now)

	r, err := client.TrailingReturn(context.Background(), "XLK", 7)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, r, 1e-9)
}

func TestTrailingReturn_ReferencesWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 21, 0, 0, 0, time.UTC) }

	// The reference close is the last bar at or before now minus the
	// window, not the first bar of the padded fetch
	server := barsServer(t, map[string][]models.Bar{
		"XLF": {
			closeBar(day(8), 90),
			closeBar(day(12), 100),
			closeBar(day(14), 104),
			closeBar(day(19), 110),
		},
	})
	defer server.Close()

	client := newTestClient(t, server.URL, now)

	r, err := client.TrailingReturn(context.Background(), "XLF", 7)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, r, 1e-9)
}

func TestTrailingReturn_InsufficientBars(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

	server := barsServer(t, map[string][]models.Bar{
		"XLE": {closeBar(now, 80)},
	})
	defer server.Close()

	client := newTestClient(t, server.URL, now)

	_, err := client.TrailingReturn(context.Background(), "XLE", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient bars")
}

func TestComputeSectorWeights_AgainstClient(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 21, 0, 0, 0, time.UTC) }

	// One sector up 4%, the rest flat: the tech weight must come out
	// graduated, not pinned at the saturation cap
	barsBySymbol := make(map[string][]models.Bar)
	for _, sector := range selection.AllSectors() {
		etf := selection.SectorETF(sector)
		last := 100.0
		if etf == "XLK" {
			last = 104.0
		}
		barsBySymbol[etf] = []models.Bar{
			closeBar(day(13), 100),
			closeBar(day(19), last),
		}
	}

	server := barsServer(t, barsBySymbol)
	defer server.Close()

	client := newTestClient(t, server.URL, now)

	weights := selection.ComputeSectorWeights(context.Background(), client)

	// avg = 0.04/8 = 0.005; tech: 1 + 0.035*5, flat: 1 - 0.005*3
	tech := weights.Weight(selection.SectorTechnology)
	assert.InDelta(t, 1.175, tech, 1e-9)
	assert.Less(t, tech, 1.5)
	assert.InDelta(t, 0.985, weights.Weight(selection.SectorEnergy), 1e-9)
}
