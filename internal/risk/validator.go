package risk

import (
	"fmt"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/models"
)

// Validator validates trading decisions against risk rules
type Validator struct {
	minConfidence int
}

// NewValidator creates new decision validator
func NewValidator(cfg *config.TradingConfig) *Validator {
	return &Validator{
		minConfidence: cfg.MinConfidence,
	}
}

// ValidateDecision validates a decision before execution
func (v *Validator) ValidateDecision(decision *models.Decision) error {
	if decision == nil {
		return fmt.Errorf("decision is nil")
	}

	switch decision.Action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		return fmt.Errorf("unknown action: %s", decision.Action)
	}

	if decision.Confidence < 1 || decision.Confidence > 10 {
		return fmt.Errorf("confidence out of range: %d", decision.Confidence)
	}

	if decision.IsActionable() && decision.Confidence < v.minConfidence {
		return fmt.Errorf("confidence too low: %d (min %d)", decision.Confidence, v.minConfidence)
	}

	return nil
}

// ValidateAccount checks if the account is in a tradable state
func (v *Validator) ValidateAccount(account *models.Account) error {
	if account == nil {
		return fmt.Errorf("account is nil")
	}

	if account.TradingBlocked {
		return fmt.Errorf("trading is blocked on account %s", account.ID)
	}

	if account.Status != "" && account.Status != "ACTIVE" {
		return fmt.Errorf("account not active: %s", account.Status)
	}

	return nil
}

// ValidateBuy checks that a buy order is affordable
func (v *Validator) ValidateBuy(account *models.Account, price float64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid quantity: %d", qty)
	}

	cost := float64(qty) * price
	buyingPower := account.BuyingPower.InexactFloat64()

	if cost > buyingPower {
		return fmt.Errorf("insufficient buying power: need %.2f, have %.2f", cost, buyingPower)
	}

	return nil
}

// ValidateSell checks that a sell does not exceed the held position
func (v *Validator) ValidateSell(position *models.Position, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("invalid quantity: %d", qty)
	}

	if position == nil {
		return fmt.Errorf("no open position to sell")
	}

	held := int(position.Qty.IntPart())
	if held <= 0 {
		return fmt.Errorf("no shares held in %s", position.Symbol)
	}

	return nil
}
