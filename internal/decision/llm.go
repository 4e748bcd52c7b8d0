package decision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/ai"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
	"github.com/amaslov/equitybot/pkg/templates"
)

const (
	analyzeSystemPrompt = "You are a professional trading assistant with expertise in technical analysis and risk management."
	analyzeTemplate     = "analyze_prompt.tmpl"
)

// LLMDecider asks a chat completion provider for a structured trading
// decision. The prompt is rendered from a template so operators can tune
// it without rebuilding.
type LLMDecider struct {
	provider ai.Provider
	renderer templates.Renderer
}

// NewLLMDecider creates new LLM-backed decider
func NewLLMDecider(provider ai.Provider, renderer templates.Renderer) *LLMDecider {
	return &LLMDecider{
		provider: provider,
		renderer: renderer,
	}
}

func (l *LLMDecider) GetName() string {
	return "llm"
}

// promptData is the template context for the per-symbol analysis prompt
type promptData struct {
	Symbol        string
	Price         float64
	ChangePercent float64
	Volume        int64
	RSI           float64
	MA20          float64
	MA50          float64
	Volatility    float64
	HasPosition   bool
	PositionQty   int64
	EntryPrice    float64
	UnrealizedPL  float64
}

func (l *LLMDecider) Decide(ctx context.Context, input Input) (*models.Decision, error) {
	if !l.provider.IsEnabled() {
		return nil, fmt.Errorf("llm provider is not enabled")
	}
	if input.Snapshot == nil || input.Indicators == nil {
		return nil, fmt.Errorf("missing market data for %s", input.Symbol)
	}

	data := promptData{
		Symbol:        input.Symbol,
		Price:         input.Snapshot.Price,
		ChangePercent: input.Indicators.ChangePercent,
		Volume:        input.Snapshot.Volume,
		RSI:           input.Indicators.RSI,
		MA20:          input.Indicators.MA20,
		MA50:          input.Indicators.MA50,
		Volatility:    input.Indicators.Volatility,
	}

	if input.Position != nil {
		data.HasPosition = true
		data.PositionQty = input.Position.Qty.IntPart()
		data.EntryPrice, _ = input.Position.AvgEntryPrice.Float64()
		data.UnrealizedPL, _ = input.Position.UnrealizedPL.Float64()
	}

	prompt, err := l.renderer.ExecuteTemplate(analyzeTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render analysis prompt: %w", err)
	}

	response, err := l.provider.Complete(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	decision, err := ai.ParseDecision(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse llm decision: %w", err)
	}

	logger.Info("LLM decision",
		zap.String("symbol", input.Symbol),
		zap.String("action", string(decision.Action)),
		zap.Int("confidence", decision.Confidence))

	return decision, nil
}
