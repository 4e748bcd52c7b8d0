package risk

import (
	"testing"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/models"
)

func newTestSizer() *PositionSizer {
	return NewPositionSizer(&config.TradingConfig{
		MaxPositionSize:    1000.0,
		HalveQuantityBelow: 7,
	})
}

func TestPositionSizer_SizeOrder(t *testing.T) {
	ps := newTestSizer()

	t.Run("full size at high confidence", func(t *testing.T) {
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 8, Quantity: 4}, 100.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 4 {
			t.Errorf("Expected qty 4, got %d", qty)
		}
	})

	t.Run("halves below confidence threshold", func(t *testing.T) {
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 6, Quantity: 4}, 100.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 2 {
			t.Errorf("Expected halved qty 2, got %d", qty)
		}
	})

	t.Run("halving never drops below one share", func(t *testing.T) {
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 5, Quantity: 1}, 100.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 1 {
			t.Errorf("Expected qty 1, got %d", qty)
		}
	})

	t.Run("caps order value at position limit", func(t *testing.T) {
		// 10 shares at $300 = $3000, limit $1000 allows 3 shares
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 9, Quantity: 10}, 300.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 3 {
			t.Errorf("Expected capped qty 3, got %d", qty)
		}
	})

	t.Run("zero when a single share exceeds limit", func(t *testing.T) {
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 9, Quantity: 1}, 2500.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 0 {
			t.Errorf("Expected qty 0, got %d", qty)
		}
	})

	t.Run("defaults missing quantity to one", func(t *testing.T) {
		qty, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 8}, 100.0)
		if err != nil {
			t.Fatalf("SizeOrder failed: %v", err)
		}
		if qty != 1 {
			t.Errorf("Expected qty 1, got %d", qty)
		}
	})

	t.Run("invalid price", func(t *testing.T) {
		if _, err := ps.SizeOrder(&models.Decision{Action: models.ActionBuy, Confidence: 8, Quantity: 1}, 0); err == nil {
			t.Error("Expected error for zero price")
		}
	})
}

func TestPositionSizer_CapToBuyingPower(t *testing.T) {
	ps := newTestSizer()

	t.Run("within buying power unchanged", func(t *testing.T) {
		account := &models.Account{BuyingPower: models.NewDecimal(5000)}
		if got := ps.CapToBuyingPower(4, 100.0, account); got != 4 {
			t.Errorf("Expected qty 4, got %d", got)
		}
	})

	t.Run("trimmed to affordable quantity", func(t *testing.T) {
		// $250 buying power at $100/share affords 2 shares
		account := &models.Account{BuyingPower: models.NewDecimal(250)}
		if got := ps.CapToBuyingPower(5, 100.0, account); got != 2 {
			t.Errorf("Expected qty 2, got %d", got)
		}
	})

	t.Run("zero buying power", func(t *testing.T) {
		account := &models.Account{BuyingPower: models.NewDecimal(0)}
		if got := ps.CapToBuyingPower(3, 100.0, account); got != 0 {
			t.Errorf("Expected qty 0, got %d", got)
		}
	})
}
