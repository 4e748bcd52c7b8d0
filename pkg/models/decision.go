package models

// Action represents a trading decision action
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision represents a structured trading decision for one symbol,
// produced by either the rule-based or the LLM decision engine.
type Decision struct {
	Action     Action `json:"action"`
	Confidence int    `json:"confidence"` // 1..10
	Reasoning  string `json:"reasoning"`
	Quantity   int    `json:"quantity"`
}

// IsActionable reports whether the decision requires an order
func (d Decision) IsActionable() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}
