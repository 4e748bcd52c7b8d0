package decision

import (
	"context"

	"github.com/amaslov/equitybot/pkg/models"
)

// Input carries everything a decider may consider for one symbol
type Input struct {
	Symbol     string
	Snapshot   *models.MarketSnapshot
	Indicators *models.Indicators
	Position   *models.Position // nil when we hold nothing
}

// Decider produces a trading decision for one symbol
type Decider interface {
	GetName() string
	Decide(ctx context.Context, input Input) (*models.Decision, error)
}
