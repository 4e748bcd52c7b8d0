package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// TradingMode represents the bot's operating mode
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

// BotStatus represents current bot state
type BotStatus string

const (
	StatusRunning BotStatus = "running"
	StatusStopped BotStatus = "stopped"
	StatusPaused  BotStatus = "paused"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType represents order type
type OrderType string

const (
	TypeMarket OrderType = "market"
	TypeLimit  OrderType = "limit"
)

// TimeInForce represents order lifetime
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// Order represents a brokerage order
type Order struct {
	SubmittedAt    time.Time       `json:"submitted_at"`
	FilledAt       *time.Time      `json:"filled_at,omitempty"`
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           OrderSide       `json:"side"`
	Type           OrderType       `json:"type"`
	Status         string          `json:"status"`
	Qty            decimal.Decimal `json:"qty"`
	FilledQty      decimal.Decimal `json:"filled_qty"`
	FilledAvgPrice decimal.Decimal `json:"filled_avg_price"`
	LimitPrice     decimal.Decimal `json:"limit_price"`
}

// Position represents an open equity position
type Position struct {
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Qty            decimal.Decimal `json:"qty"`
	AvgEntryPrice  decimal.Decimal `json:"avg_entry_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPC decimal.Decimal `json:"unrealized_plpc"`
}

// Account represents brokerage account state
type Account struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
	Cash             decimal.Decimal `json:"cash"`
	Equity           decimal.Decimal `json:"equity"`
	BuyingPower      decimal.Decimal `json:"buying_power"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	PatternDayTrader bool            `json:"pattern_day_trader"`
	TradingBlocked   bool            `json:"trading_blocked"`
}

// TradeRecord captures one executed trade for the in-memory history.
// Nothing is persisted across restarts.
type TradeRecord struct {
	Timestamp  time.Time       `json:"timestamp"`
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Confidence int             `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	OrderID    string          `json:"order_id"`
}
