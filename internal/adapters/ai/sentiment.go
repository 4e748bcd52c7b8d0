package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/templates"
)

const (
	sentimentSystemPrompt = "You are a market analyst providing sentiment analysis."
	sentimentTemplate     = "sentiment_prompt.tmpl"
)

// SentimentScorer asks the LLM for a bullish/bearish score per symbol in
// a single batched call
type SentimentScorer struct {
	provider Provider
	renderer templates.Renderer
}

// NewSentimentScorer creates new LLM-backed sentiment source
func NewSentimentScorer(provider Provider, renderer templates.Renderer) *SentimentScorer {
	return &SentimentScorer{
		provider: provider,
		renderer: renderer,
	}
}

// GetSentimentScores returns a map of symbol to sentiment in [0, 1].
// Callers must treat any error as "no sentiment available".
func (s *SentimentScorer) GetSentimentScores(ctx context.Context, symbols []string) (map[string]float64, error) {
	if !s.provider.IsEnabled() {
		return nil, fmt.Errorf("sentiment provider is not enabled")
	}
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	prompt, err := s.renderer.ExecuteTemplate(sentimentTemplate, struct{ Symbols []string }{symbols})
	if err != nil {
		return nil, fmt.Errorf("failed to render sentiment prompt: %w", err)
	}

	response, err := s.provider.Complete(ctx, sentimentSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}

	scores, err := ParseSentimentScores(response)
	if err != nil {
		return nil, err
	}

	logger.Debug("Sentiment scores received", zap.Int("symbols", len(scores)))

	return scores, nil
}
