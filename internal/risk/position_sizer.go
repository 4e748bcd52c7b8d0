package risk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

// PositionSizer adjusts order quantities before execution
type PositionSizer struct {
	maxPositionValue   float64
	halveQuantityBelow int
}

// NewPositionSizer creates new position sizer
func NewPositionSizer(cfg *config.TradingConfig) *PositionSizer {
	return &PositionSizer{
		maxPositionValue:   cfg.MaxPositionSize,
		halveQuantityBelow: cfg.HalveQuantityBelow,
	}
}

// SizeOrder returns the share quantity to submit for a decision.
// A zero quantity with nil error means the order should be skipped.
func (ps *PositionSizer) SizeOrder(decision *models.Decision, price float64) (int, error) {
	if price <= 0 {
		return 0, fmt.Errorf("invalid price: %.2f", price)
	}

	qty := decision.Quantity
	if qty <= 0 {
		qty = 1
	}

	// Low-confidence decisions trade at half size
	if decision.Confidence < ps.halveQuantityBelow {
		qty = max(1, qty/2)
	}

	// Cap total order value
	if float64(qty)*price > ps.maxPositionValue {
		qty = int(ps.maxPositionValue / price)
	}

	if qty <= 0 {
		logger.Warn("position value limit below a single share",
			zap.Float64("price", price),
			zap.Float64("max_position_value", ps.maxPositionValue),
		)
		return 0, nil
	}

	return qty, nil
}

// CapToBuyingPower trims a buy quantity so the estimated order cost
// stays within the account's available buying power.
func (ps *PositionSizer) CapToBuyingPower(qty int, price float64, account *models.Account) int {
	if account == nil || qty <= 0 || price <= 0 {
		return qty
	}

	buyingPower := account.BuyingPower.InexactFloat64()
	if float64(qty)*price <= buyingPower {
		return qty
	}

	capped := int(buyingPower / price)
	if capped < 0 {
		capped = 0
	}

	logger.Warn("buy quantity capped by buying power",
		zap.Int("requested_qty", qty),
		zap.Int("capped_qty", capped),
		zap.Float64("buying_power", buyingPower),
	)

	return capped
}
