package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amaslov/equitybot/pkg/models"
)

var (
	actionRe     = regexp.MustCompile(`(?i)ACTION:\s*(BUY|SELL|HOLD)`)
	confidenceRe = regexp.MustCompile(`CONFIDENCE:\s*(\d+)`)
	reasoningRe  = regexp.MustCompile(`(?s)REASONING:\s*(.+?)(?:QUANTITY:|$)`)
	quantityRe   = regexp.MustCompile(`QUANTITY:\s*(\d+)`)
	codeBlockRe  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

// ParseDecision parses a structured ACTION/CONFIDENCE/REASONING/QUANTITY
// reply into a trading decision. Missing confidence defaults to 5 and
// missing quantity to 1, matching the prompt contract.
func ParseDecision(response string) (*models.Decision, error) {
	actionMatch := actionRe.FindStringSubmatch(response)
	if actionMatch == nil {
		return nil, fmt.Errorf("no action found in response")
	}

	decision := &models.Decision{
		Action:     models.Action(strings.ToUpper(actionMatch[1])),
		Confidence: 5,
		Quantity:   1,
		Reasoning:  "No reasoning provided",
	}

	if m := confidenceRe.FindStringSubmatch(response); m != nil {
		confidence, err := strconv.Atoi(m[1])
		if err == nil {
			decision.Confidence = clampConfidence(confidence)
		}
	}

	if m := reasoningRe.FindStringSubmatch(response); m != nil {
		if reasoning := strings.TrimSpace(m[1]); reasoning != "" {
			decision.Reasoning = reasoning
		}
	}

	if m := quantityRe.FindStringSubmatch(response); m != nil {
		quantity, err := strconv.Atoi(m[1])
		if err == nil && quantity > 0 {
			decision.Quantity = quantity
		}
	}

	return decision, nil
}

func clampConfidence(c int) int {
	if c < 1 {
		return 1
	}
	if c > 10 {
		return 10
	}
	return c
}

// ParseSentimentScores parses a JSON object mapping symbols to sentiment
// scores. Scores are clamped to [0, 1].
func ParseSentimentScores(response string) (map[string]float64, error) {
	jsonStr := ExtractJSON(response)

	var raw map[string]float64
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sentiment JSON: %w (content: %s)", err, truncate(jsonStr, 200))
	}

	scores := make(map[string]float64, len(raw))
	for symbol, score := range raw {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[strings.ToUpper(strings.TrimSpace(symbol))] = score
	}

	return scores, nil
}

// ExtractJSON pulls a JSON payload out of a model reply, stripping markdown
// code fences and any prose around the outermost object or array
func ExtractJSON(text string) string {
	if matches := codeBlockRe.FindStringSubmatch(text); len(matches) > 1 {
		text = matches[1]
	}

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")

	var start int
	var endChar string

	if startObj >= 0 && (startArr < 0 || startObj < startArr) {
		start = startObj
		endChar = "}"
	} else if startArr >= 0 {
		start = startArr
		endChar = "]"
	} else {
		return strings.TrimSpace(text)
	}

	end := strings.LastIndex(text, endChar)
	if end > start {
		return strings.TrimSpace(text[start : end+1])
	}

	return strings.TrimSpace(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
