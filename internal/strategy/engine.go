package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/internal/decision"
	"github.com/amaslov/equitybot/internal/indicators"
	"github.com/amaslov/equitybot/internal/risk"
	"github.com/amaslov/equitybot/internal/selection"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

const tradeHistoryLimit = 500

// Broker is the brokerage surface the engine trades through
type Broker interface {
	GetAccount(ctx context.Context) (*models.Account, error)
	GetPosition(ctx context.Context, symbol string) (*models.Position, error)
	GetSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
	PlaceBuyOrder(ctx context.Context, symbol string, quantity int, stopLossPct, takeProfitPct float64) (*models.Order, error)
	PlaceSellOrder(ctx context.Context, symbol string, quantity int) (*models.Order, error)
	IsMarketOpen(ctx context.Context) (bool, error)
}

// Selector produces the active trading candidates
type Selector interface {
	SelectCandidates(ctx context.Context, maxStocks int) ([]string, selection.Strategy)
	SectorAnalysis(ctx context.Context) []models.SectorAnalysis
}

// Notifier receives engine events, implementations must not block
type Notifier interface {
	NotifyTrade(record models.TradeRecord)
	NotifySelection(symbols []string, strategy string)
	NotifyError(message string)
}

// RiskManager aggregates risk components
type RiskManager struct {
	CircuitBreaker *risk.CircuitBreaker
	PositionSizer  *risk.PositionSizer
	Validator      *risk.Validator
}

// Selection is the active candidate set with its provenance
type Selection struct {
	Symbols    []string           `json:"symbols"`
	Strategy   selection.Strategy `json:"strategy"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Engine runs the periodic trading cycle over the selected symbols
type Engine struct {
	cfg           *config.Config
	broker        Broker
	selector      Selector
	decider       decision.Decider
	fallback      decision.Decider
	indicatorCalc *indicators.Calculator
	riskManager   *RiskManager
	notifiers     []Notifier
	location      *time.Location
	now           func() time.Time

	mu        sync.RWMutex
	status    models.BotStatus
	selection Selection
	history   []models.TradeRecord
}

// NewEngine creates new trading engine
func NewEngine(
	cfg *config.Config,
	broker Broker,
	selector Selector,
	decider decision.Decider,
	fallback decision.Decider,
	riskManager *RiskManager,
	notifiers ...Notifier,
) *Engine {
	loc, err := time.LoadLocation(cfg.Selection.Timezone)
	if err != nil {
		logger.Warn("failed to load market timezone, using UTC",
			zap.String("timezone", cfg.Selection.Timezone),
			zap.Error(err),
		)
		loc = time.UTC
	}

	return &Engine{
		cfg:           cfg,
		broker:        broker,
		selector:      selector,
		decider:       decider,
		fallback:      fallback,
		indicatorCalc: indicators.NewCalculator(),
		riskManager:   riskManager,
		notifiers:     notifiers,
		location:      loc,
		now:           time.Now,
		status:        models.StatusRunning,
	}
}

// Name implements worker.Worker
func (e *Engine) Name() string {
	return "trading_engine"
}

// Run executes one trading cycle, implements worker.Worker
func (e *Engine) Run(ctx context.Context) error {
	if e.Status() != models.StatusRunning {
		logger.Debug("engine paused, skipping cycle")
		return nil
	}

	if e.riskManager.CircuitBreaker.IsOpen() {
		logger.Warn("circuit breaker is open, skipping trading cycle")
		return nil
	}

	if !e.marketOpen(ctx) {
		logger.Debug("market closed, skipping trading cycle")
		return nil
	}

	e.refreshSelection(ctx, false)

	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		e.alertError(fmt.Sprintf("Failed to fetch account: %v", err))
		return fmt.Errorf("failed to fetch account: %w", err)
	}

	if err := e.riskManager.Validator.ValidateAccount(account); err != nil {
		logger.Warn("account not tradable", zap.Error(err))
		return nil
	}

	symbols := e.CurrentSelection().Symbols
	logger.Info("executing trading cycle", zap.Int("symbols", len(symbols)))

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := e.processSymbol(ctx, symbol, account); err != nil {
			logger.Error("failed to process symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			e.alertError(fmt.Sprintf("Error processing %s: %v", symbol, err))
		}
	}

	return nil
}

// marketOpen asks the broker clock, falling back to a weekday/hours
// check when the clock endpoint is unavailable.
func (e *Engine) marketOpen(ctx context.Context) bool {
	open, err := e.broker.IsMarketOpen(ctx)
	if err == nil {
		return open
	}

	logger.Warn("market clock unavailable, falling back to schedule", zap.Error(err))

	now := e.now().In(e.location)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	hour := now.Hour()
	return hour >= e.cfg.Trading.TradingStartHour && hour < e.cfg.Trading.TradingEndHour
}

// refreshSelection recomputes the candidate set when it is stale or
// empty. Pass force to refresh unconditionally.
func (e *Engine) refreshSelection(ctx context.Context, force bool) {
	current := e.CurrentSelection()

	stale := e.now().Sub(current.ComputedAt) >= e.cfg.Selection.RefreshInterval
	if !force && !stale && len(current.Symbols) > 0 {
		return
	}

	symbols, strat := e.selector.SelectCandidates(ctx, e.cfg.Selection.MaxStocks)

	e.mu.Lock()
	changed := !equalSymbols(e.selection.Symbols, symbols)
	e.selection = Selection{
		Symbols:    symbols,
		Strategy:   strat,
		ComputedAt: e.now(),
	}
	e.mu.Unlock()

	logger.Info("selection refreshed",
		zap.Strings("symbols", symbols),
		zap.String("strategy", string(strat)),
	)

	if changed {
		for _, n := range e.notifiers {
			n.NotifySelection(symbols, string(strat))
		}
	}
}

// processSymbol runs the decide-and-trade pipeline for one symbol
func (e *Engine) processSymbol(ctx context.Context, symbol string, account *models.Account) error {
	snapshot, err := e.broker.GetSnapshot(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	ind, err := e.indicatorCalc.Calculate(snapshot.Bars, snapshot.Price)
	if err != nil {
		return fmt.Errorf("failed to calculate indicators: %w", err)
	}

	position, err := e.broker.GetPosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to fetch position: %w", err)
	}

	input := decision.Input{
		Symbol:     symbol,
		Snapshot:   snapshot,
		Indicators: ind,
		Position:   position,
	}

	dec := e.decide(ctx, input)

	logger.Info("decision received",
		zap.String("symbol", symbol),
		zap.String("action", string(dec.Action)),
		zap.Int("confidence", dec.Confidence),
		zap.String("reasoning", dec.Reasoning),
	)

	if err := e.riskManager.Validator.ValidateDecision(dec); err != nil {
		logger.Info("decision rejected", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	if !dec.IsActionable() {
		return nil
	}

	return e.executeDecision(ctx, symbol, dec, snapshot, position, account)
}

// decide asks the primary decider, degrading to the fallback on error
func (e *Engine) decide(ctx context.Context, input decision.Input) *models.Decision {
	if e.decider != nil {
		dec, err := e.decider.Decide(ctx, input)
		if err == nil {
			return dec
		}

		logger.Warn("primary decider failed, using fallback",
			zap.String("decider", e.decider.GetName()),
			zap.String("symbol", input.Symbol),
			zap.Error(err),
		)
	}

	dec, err := e.fallback.Decide(ctx, input)
	if err != nil {
		logger.Warn("fallback decider failed, holding",
			zap.String("symbol", input.Symbol),
			zap.Error(err),
		)
		return &models.Decision{
			Action:     models.ActionHold,
			Confidence: 5,
			Reasoning:  "No decision available",
			Quantity:   0,
		}
	}

	return dec
}

// executeDecision sizes and places the order, records the trade
func (e *Engine) executeDecision(
	ctx context.Context,
	symbol string,
	dec *models.Decision,
	snapshot *models.MarketSnapshot,
	position *models.Position,
	account *models.Account,
) error {
	qty, err := e.riskManager.PositionSizer.SizeOrder(dec, snapshot.Price)
	if err != nil {
		return fmt.Errorf("failed to size order: %w", err)
	}
	if qty == 0 {
		logger.Warn("calculated quantity is zero", zap.String("symbol", symbol))
		return nil
	}

	var order *models.Order

	switch dec.Action {
	case models.ActionBuy:
		qty = e.riskManager.PositionSizer.CapToBuyingPower(qty, snapshot.Price, account)
		if qty == 0 {
			logger.Warn("no buying power for order", zap.String("symbol", symbol))
			return nil
		}
		if err := e.riskManager.Validator.ValidateBuy(account, snapshot.Price, qty); err != nil {
			logger.Warn("buy rejected", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}

		order, err = e.broker.PlaceBuyOrder(ctx, symbol, qty,
			e.cfg.Trading.StopLossPercent, e.cfg.Trading.TakeProfitPercent)
		if err != nil {
			return fmt.Errorf("failed to place buy order: %w", err)
		}

	case models.ActionSell:
		if err := e.riskManager.Validator.ValidateSell(position, qty); err != nil {
			logger.Info("sell rejected", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}

		order, err = e.broker.PlaceSellOrder(ctx, symbol, qty)
		if err != nil {
			return fmt.Errorf("failed to place sell order: %w", err)
		}
		if order == nil {
			return nil
		}

		e.recordResult(position, account)

	default:
		return nil
	}

	record := models.TradeRecord{
		Timestamp:  e.now(),
		Symbol:     symbol,
		Action:     dec.Action,
		Quantity:   int(order.Qty.IntPart()),
		Price:      models.NewDecimal(snapshot.Price),
		Confidence: dec.Confidence,
		Reasoning:  dec.Reasoning,
		OrderID:    order.ID,
	}

	e.appendTrade(record)

	for _, n := range e.notifiers {
		n.NotifyTrade(record)
	}

	return nil
}

// recordResult feeds a realized exit into the circuit breaker
func (e *Engine) recordResult(position *models.Position, account *models.Account) {
	if position == nil {
		return
	}

	pnl := position.UnrealizedPL.InexactFloat64()
	equity := account.Equity.InexactFloat64()

	if err := e.riskManager.CircuitBreaker.RecordResult(pnl, equity); err != nil {
		logger.Error("circuit breaker triggered", zap.Error(err))
		e.alertError(fmt.Sprintf("🛑 %v", err))
	}
}

func (e *Engine) appendTrade(record models.TradeRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, record)
	if len(e.history) > tradeHistoryLimit {
		e.history = e.history[len(e.history)-tradeHistoryLimit:]
	}
}

func (e *Engine) alertError(message string) {
	if !e.cfg.Telegram.AlertOnErrors {
		return
	}
	for _, n := range e.notifiers {
		n.NotifyError(message)
	}
}

// Pause stops trading without stopping the worker loop
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = models.StatusPaused
	logger.Info("trading engine paused")
}

// Resume re-enables trading after a pause
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = models.StatusRunning
	logger.Info("trading engine resumed")
}

// Status returns current engine status
func (e *Engine) Status() models.BotStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// CurrentSelection returns the active candidate set
func (e *Engine) CurrentSelection() Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := Selection{
		Symbols:    make([]string, len(e.selection.Symbols)),
		Strategy:   e.selection.Strategy,
		ComputedAt: e.selection.ComputedAt,
	}
	copy(out.Symbols, e.selection.Symbols)
	return out
}

// ForceRefresh recomputes the selection immediately
func (e *Engine) ForceRefresh(ctx context.Context) Selection {
	e.refreshSelection(ctx, true)
	return e.CurrentSelection()
}

// SectorAnalysis exposes the selector's sector breakdown
func (e *Engine) SectorAnalysis(ctx context.Context) []models.SectorAnalysis {
	return e.selector.SectorAnalysis(ctx)
}

func equalSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
