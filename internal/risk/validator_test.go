package risk

import (
	"testing"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/models"
)

func newTestValidator() *Validator {
	return NewValidator(&config.TradingConfig{MinConfidence: 5})
}

func TestValidator_ValidateDecision(t *testing.T) {
	v := newTestValidator()

	t.Run("valid buy", func(t *testing.T) {
		decision := &models.Decision{Action: models.ActionBuy, Confidence: 7, Quantity: 2}
		if err := v.ValidateDecision(decision); err != nil {
			t.Errorf("Expected valid decision, got: %v", err)
		}
	})

	t.Run("hold passes below min confidence", func(t *testing.T) {
		decision := &models.Decision{Action: models.ActionHold, Confidence: 2}
		if err := v.ValidateDecision(decision); err != nil {
			t.Errorf("Expected hold to pass, got: %v", err)
		}
	})

	t.Run("actionable below min confidence rejected", func(t *testing.T) {
		decision := &models.Decision{Action: models.ActionSell, Confidence: 4, Quantity: 1}
		if err := v.ValidateDecision(decision); err == nil {
			t.Error("Expected low-confidence sell to be rejected")
		}
	})

	t.Run("confidence out of range", func(t *testing.T) {
		decision := &models.Decision{Action: models.ActionBuy, Confidence: 11, Quantity: 1}
		if err := v.ValidateDecision(decision); err == nil {
			t.Error("Expected out-of-range confidence to be rejected")
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		decision := &models.Decision{Action: "SHORT", Confidence: 8, Quantity: 1}
		if err := v.ValidateDecision(decision); err == nil {
			t.Error("Expected unknown action to be rejected")
		}
	})

	t.Run("nil decision", func(t *testing.T) {
		if err := v.ValidateDecision(nil); err == nil {
			t.Error("Expected nil decision to be rejected")
		}
	})
}

func TestValidator_ValidateAccount(t *testing.T) {
	v := newTestValidator()

	t.Run("active account", func(t *testing.T) {
		account := &models.Account{ID: "acc-1", Status: "ACTIVE"}
		if err := v.ValidateAccount(account); err != nil {
			t.Errorf("Expected valid account, got: %v", err)
		}
	})

	t.Run("trading blocked", func(t *testing.T) {
		account := &models.Account{ID: "acc-1", Status: "ACTIVE", TradingBlocked: true}
		if err := v.ValidateAccount(account); err == nil {
			t.Error("Expected blocked account to be rejected")
		}
	})

	t.Run("inactive status", func(t *testing.T) {
		account := &models.Account{ID: "acc-1", Status: "ACCOUNT_CLOSED"}
		if err := v.ValidateAccount(account); err == nil {
			t.Error("Expected inactive account to be rejected")
		}
	})

	t.Run("nil account", func(t *testing.T) {
		if err := v.ValidateAccount(nil); err == nil {
			t.Error("Expected nil account to be rejected")
		}
	})
}

func TestValidator_ValidateBuy(t *testing.T) {
	v := newTestValidator()
	account := &models.Account{BuyingPower: models.NewDecimal(500)}

	t.Run("affordable order", func(t *testing.T) {
		if err := v.ValidateBuy(account, 100.0, 4); err != nil {
			t.Errorf("Expected affordable buy, got: %v", err)
		}
	})

	t.Run("insufficient buying power", func(t *testing.T) {
		if err := v.ValidateBuy(account, 100.0, 6); err == nil {
			t.Error("Expected insufficient buying power error")
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		if err := v.ValidateBuy(account, 100.0, 0); err == nil {
			t.Error("Expected invalid quantity error")
		}
	})
}

func TestValidator_ValidateSell(t *testing.T) {
	v := newTestValidator()

	t.Run("open position", func(t *testing.T) {
		position := &models.Position{Symbol: "AAPL", Qty: models.NewDecimal(10)}
		if err := v.ValidateSell(position, 5); err != nil {
			t.Errorf("Expected valid sell, got: %v", err)
		}
	})

	t.Run("no position", func(t *testing.T) {
		if err := v.ValidateSell(nil, 5); err == nil {
			t.Error("Expected missing position error")
		}
	})

	t.Run("empty position", func(t *testing.T) {
		position := &models.Position{Symbol: "AAPL", Qty: models.NewDecimal(0)}
		if err := v.ValidateSell(position, 1); err == nil {
			t.Error("Expected empty position error")
		}
	})
}
