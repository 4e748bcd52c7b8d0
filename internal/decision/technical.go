package decision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

const (
	takeProfitThreshold = 0.10
	stopLossThreshold   = -0.05
	minSignalStrength   = 2
)

type signal struct {
	action   models.Action
	strength int
	reason   string
}

// TechnicalDecider produces decisions from indicator rules alone, no
// external AI involved. Serves as the fallback when the LLM decider is
// disabled or failing.
type TechnicalDecider struct{}

// NewTechnicalDecider creates new rule-based decider
func NewTechnicalDecider() *TechnicalDecider {
	return &TechnicalDecider{}
}

func (t *TechnicalDecider) GetName() string {
	return "technical"
}

func (t *TechnicalDecider) Decide(ctx context.Context, input Input) (*models.Decision, error) {
	if input.Snapshot == nil || input.Indicators == nil {
		return nil, fmt.Errorf("missing market data for %s", input.Symbol)
	}

	price := input.Snapshot.Price
	ind := input.Indicators

	signals := collectSignals(price, ind, input.Position)

	decision := &models.Decision{
		Action:     models.ActionHold,
		Confidence: 5,
		Reasoning:  "Neutral market conditions",
		Quantity:   1,
	}

	if len(signals) == 0 {
		return decision, nil
	}

	var buyStrength, sellStrength int
	var buyReasons, sellReasons []string

	for _, s := range signals {
		switch s.action {
		case models.ActionBuy:
			buyStrength += s.strength
			buyReasons = append(buyReasons, s.reason)
		case models.ActionSell:
			sellStrength += s.strength
			sellReasons = append(sellReasons, s.reason)
		}
	}

	switch {
	case buyStrength > sellStrength && buyStrength >= minSignalStrength:
		decision.Action = models.ActionBuy
		decision.Confidence = min(10, buyStrength+3)
		decision.Reasoning = strings.Join(buyReasons, "; ")
	case sellStrength > buyStrength && sellStrength >= minSignalStrength:
		decision.Action = models.ActionSell
		decision.Confidence = min(10, sellStrength+3)
		decision.Reasoning = strings.Join(sellReasons, "; ")
	default:
		decision.Reasoning = "Mixed signals - waiting for clearer trend"
	}

	logger.Debug("Technical decision",
		zap.String("symbol", input.Symbol),
		zap.String("action", string(decision.Action)),
		zap.Int("buy_strength", buyStrength),
		zap.Int("sell_strength", sellStrength))

	return decision, nil
}

func collectSignals(price float64, ind *models.Indicators, position *models.Position) []signal {
	var signals []signal

	// Moving average alignment
	if price > ind.MA20 && ind.MA20 > ind.MA50 {
		signals = append(signals, signal{models.ActionBuy, 2, "Price above moving averages - uptrend"})
	} else if price < ind.MA20 && ind.MA20 < ind.MA50 {
		signals = append(signals, signal{models.ActionSell, 2, "Price below moving averages - downtrend"})
	}

	// RSI extremes
	if ind.RSI < 30 {
		signals = append(signals, signal{models.ActionBuy, 3, "RSI oversold - potential bounce"})
	} else if ind.RSI > 70 {
		signals = append(signals, signal{models.ActionSell, 3, "RSI overbought - potential pullback"})
	}

	// Tiered momentum
	change := ind.ChangePercent
	switch {
	case change > 3:
		signals = append(signals, signal{models.ActionBuy, 3, "Strong positive momentum"})
	case change < -3:
		signals = append(signals, signal{models.ActionSell, 3, "Strong negative momentum"})
	case change > 1:
		signals = append(signals, signal{models.ActionBuy, 2, "Positive momentum"})
	case change < -1:
		signals = append(signals, signal{models.ActionSell, 2, "Negative momentum"})
	case change > 0.5:
		signals = append(signals, signal{models.ActionBuy, 1, "Mild positive momentum"})
	case change < -0.5:
		signals = append(signals, signal{models.ActionSell, 1, "Mild negative momentum"})
	}

	// Position exits
	if position != nil {
		entry, _ := position.AvgEntryPrice.Float64()
		pl, _ := position.UnrealizedPL.Float64()

		if entry > 0 {
			ret := price/entry - 1
			if pl > 0 && ret > takeProfitThreshold {
				signals = append(signals, signal{models.ActionSell, 4, "Take profit - 10% gain achieved"})
			} else if pl < 0 && ret < stopLossThreshold {
				signals = append(signals, signal{models.ActionSell, 5, "Stop loss - 5% loss limit"})
			}
		}
	}

	return signals
}
