package backtest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/decision"
	"github.com/amaslov/equitybot/internal/indicators"
	"github.com/amaslov/equitybot/internal/risk"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

// warmupBars is how many bars the decider sees before the first
// simulated day
const warmupBars = 60

// BarSource supplies historical daily bars, oldest first
type BarSource interface {
	GetBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
}

// Config represents backtest configuration
type Config struct {
	Symbol      string
	Days        int
	InitialCash float64
}

// Trade represents one completed round trip in the simulation
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Symbol     string
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	PnLPercent float64
	Duration   time.Duration
	Reason     string
}

// openPosition is the simulated long position, if any
type openPosition struct {
	quantity   int
	entryPrice float64
	entryTime  time.Time
}

// Engine replays a decider over historical bars with the same sizing
// and validation rules used in live trading. Long only, one position
// at a time, fills at the daily close.
type Engine struct {
	bars          BarSource
	decider       decision.Decider
	sizer         *risk.PositionSizer
	validator     *risk.Validator
	indicatorCalc *indicators.Calculator

	cash        float64
	equity      float64
	peakEquity  float64
	maxDrawdown float64
	position    *openPosition
	trades      []Trade
	decisions   int
}

// NewEngine creates new backtest engine
func NewEngine(bars BarSource, decider decision.Decider, sizer *risk.PositionSizer, validator *risk.Validator, cfg *Config) *Engine {
	return &Engine{
		bars:          bars,
		decider:       decider,
		sizer:         sizer,
		validator:     validator,
		indicatorCalc: indicators.NewCalculator(),
		cash:          cfg.InitialCash,
		equity:        cfg.InitialCash,
		peakEquity:    cfg.InitialCash,
		trades:        make([]Trade, 0),
	}
}

// Run runs the simulation over the configured window
func (e *Engine) Run(ctx context.Context, cfg *Config) (*Result, error) {
	logger.Info("starting backtest",
		zap.String("symbol", cfg.Symbol),
		zap.Int("days", cfg.Days),
		zap.Float64("initial_cash", cfg.InitialCash),
	)

	bars, err := e.bars.GetBars(ctx, cfg.Symbol, cfg.Days+warmupBars)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical bars: %w", err)
	}
	if len(bars) <= warmupBars {
		return nil, fmt.Errorf("not enough history for %s: got %d bars, need more than %d", cfg.Symbol, len(bars), warmupBars)
	}

	logger.Info("historical data loaded", zap.Int("bars", len(bars)))

	for i := warmupBars; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := bars[i-warmupBars : i]
		bar := bars[i]

		e.step(ctx, cfg.Symbol, window, bar)
		e.markToMarket(bar.Close)
	}

	// Close any open position at the final bar
	last := bars[len(bars)-1]
	if e.position != nil {
		e.closePosition(cfg.Symbol, last.Close, last.Timestamp, "end of simulation")
	}

	result := e.buildResult(cfg, bars[warmupBars].Timestamp, last.Timestamp)

	logger.Info("backtest completed",
		zap.Float64("final_equity", result.FinalEquity),
		zap.Float64("roi", result.ROI),
		zap.Int("trades", result.TotalTrades),
	)

	return result, nil
}

// step evaluates one bar: build the decider input, apply risk checks,
// and simulate the resulting order at the bar close
func (e *Engine) step(ctx context.Context, symbol string, window []models.Bar, bar models.Bar) {
	price := bar.Close

	snapshot := &models.MarketSnapshot{
		Timestamp: bar.Timestamp,
		Symbol:    symbol,
		Price:     price,
		Volume:    int64(bar.Volume),
		Bars:      window,
	}

	ind, err := e.indicatorCalc.Calculate(window, price)
	if err != nil {
		logger.Warn("failed to calculate indicators", zap.Time("bar", bar.Timestamp), zap.Error(err))
		return
	}

	input := decision.Input{
		Symbol:     symbol,
		Snapshot:   snapshot,
		Indicators: ind,
		Position:   e.positionModel(symbol, price),
	}

	dec, err := e.decider.Decide(ctx, input)
	if err != nil {
		logger.Warn("decider failed", zap.Time("bar", bar.Timestamp), zap.Error(err))
		return
	}
	e.decisions++

	if err := e.validator.ValidateDecision(dec); err != nil {
		return
	}

	switch dec.Action {
	case models.ActionBuy:
		e.openLong(dec, symbol, price, bar.Timestamp)
	case models.ActionSell:
		if e.position != nil {
			e.closePosition(symbol, price, bar.Timestamp, dec.Reasoning)
		}
	}
}

func (e *Engine) openLong(dec *models.Decision, symbol string, price float64, timestamp time.Time) {
	if e.position != nil {
		return
	}

	quantity, err := e.sizer.SizeOrder(dec, price)
	if err != nil || quantity <= 0 {
		return
	}

	cost := float64(quantity) * price
	if cost > e.cash {
		quantity = int(e.cash / price)
		if quantity <= 0 {
			return
		}
		cost = float64(quantity) * price
	}

	e.cash -= cost
	e.position = &openPosition{
		quantity:   quantity,
		entryPrice: price,
		entryTime:  timestamp,
	}

	logger.Debug("position opened",
		zap.Float64("price", price),
		zap.Int("quantity", quantity),
	)
}

func (e *Engine) closePosition(symbol string, price float64, timestamp time.Time, reason string) {
	pos := e.position
	if pos == nil {
		return
	}

	proceeds := float64(pos.quantity) * price
	cost := float64(pos.quantity) * pos.entryPrice
	pnl := proceeds - cost

	e.cash += proceeds
	e.position = nil

	e.trades = append(e.trades, Trade{
		EntryTime:  pos.entryTime,
		ExitTime:   timestamp,
		Symbol:     symbol,
		Quantity:   pos.quantity,
		EntryPrice: pos.entryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		PnLPercent: pnl / cost * 100,
		Duration:   timestamp.Sub(pos.entryTime),
		Reason:     reason,
	})

	logger.Debug("position closed",
		zap.Float64("exit_price", price),
		zap.Float64("pnl", pnl),
	)
}

// markToMarket revalues the portfolio at the bar close and tracks the
// running drawdown
func (e *Engine) markToMarket(price float64) {
	e.equity = e.cash
	if e.position != nil {
		e.equity += float64(e.position.quantity) * price
	}

	if e.equity > e.peakEquity {
		e.peakEquity = e.equity
	}
	if e.peakEquity > 0 {
		drawdown := (e.peakEquity - e.equity) / e.peakEquity * 100
		if drawdown > e.maxDrawdown {
			e.maxDrawdown = drawdown
		}
	}
}

// positionModel converts the simulated position into the shared model
// the decider expects
func (e *Engine) positionModel(symbol string, price float64) *models.Position {
	pos := e.position
	if pos == nil {
		return nil
	}

	unrealized := float64(pos.quantity) * (price - pos.entryPrice)

	return &models.Position{
		Symbol:        symbol,
		Side:          "long",
		Qty:           models.NewDecimal(float64(pos.quantity)),
		AvgEntryPrice: models.NewDecimal(pos.entryPrice),
		CurrentPrice:  models.NewDecimal(price),
		MarketValue:   models.NewDecimal(float64(pos.quantity) * price),
		UnrealizedPL:  models.NewDecimal(unrealized),
	}
}

func (e *Engine) buildResult(cfg *Config, start, end time.Time) *Result {
	totalPnL := 0.0
	winning := 0
	losing := 0
	sumWins := 0.0
	sumLosses := 0.0

	for _, trade := range e.trades {
		totalPnL += trade.PnL
		if trade.PnL > 0 {
			winning++
			sumWins += trade.PnL
		} else if trade.PnL < 0 {
			losing++
			sumLosses += trade.PnL
		}
	}

	winRate := 0.0
	if len(e.trades) > 0 {
		winRate = float64(winning) / float64(len(e.trades)) * 100
	}

	avgWin := 0.0
	if winning > 0 {
		avgWin = sumWins / float64(winning)
	}
	avgLoss := 0.0
	if losing > 0 {
		avgLoss = sumLosses / float64(losing)
	}

	profitFactor := 0.0
	if sumLosses != 0 {
		profitFactor = sumWins / math.Abs(sumLosses)
	}

	return &Result{
		Symbol:       cfg.Symbol,
		StartDate:    start,
		EndDate:      end,
		InitialCash:  cfg.InitialCash,
		FinalEquity:  e.equity,
		TotalPnL:     totalPnL,
		ROI:          (e.equity - cfg.InitialCash) / cfg.InitialCash * 100,
		TotalTrades:  len(e.trades),
		Winning:      winning,
		Losing:       losing,
		WinRate:      winRate,
		AverageWin:   avgWin,
		AverageLoss:  avgLoss,
		ProfitFactor: profitFactor,
		MaxDrawdown:  e.maxDrawdown,
		SharpeRatio:  e.sharpeRatio(),
		Decisions:    e.decisions,
		Trades:       e.trades,
	}
}

// sharpeRatio computes a simplified per-trade Sharpe ratio with a zero
// risk-free rate
func (e *Engine) sharpeRatio() float64 {
	if len(e.trades) < 2 {
		return 0
	}

	avg := 0.0
	for _, trade := range e.trades {
		avg += trade.PnLPercent
	}
	avg /= float64(len(e.trades))

	variance := 0.0
	for _, trade := range e.trades {
		variance += (trade.PnLPercent - avg) * (trade.PnLPercent - avg)
	}
	variance /= float64(len(e.trades))

	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	return avg / stdDev
}

// Result represents backtest results
type Result struct {
	Symbol       string    `json:"symbol"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	InitialCash  float64   `json:"initial_cash"`
	FinalEquity  float64   `json:"final_equity"`
	TotalPnL     float64   `json:"total_pnl"`
	ROI          float64   `json:"roi_percent"`
	TotalTrades  int       `json:"total_trades"`
	Winning      int       `json:"winning_trades"`
	Losing       int       `json:"losing_trades"`
	WinRate      float64   `json:"win_rate_percent"`
	AverageWin   float64   `json:"average_win"`
	AverageLoss  float64   `json:"average_loss"`
	ProfitFactor float64   `json:"profit_factor"`
	MaxDrawdown  float64   `json:"max_drawdown_percent"`
	SharpeRatio  float64   `json:"sharpe_ratio"`
	Decisions    int       `json:"decisions"`
	Trades       []Trade   `json:"trades"`
}

// Print prints backtest results
func (r *Result) Print() {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("BACKTEST RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\nSymbol: %s\n", r.Symbol)
	fmt.Printf("Period: %s to %s\n",
		r.StartDate.Format("2006-01-02"),
		r.EndDate.Format("2006-01-02"),
	)

	fmt.Println("\nPERFORMANCE:")
	fmt.Printf("  Initial Cash:    $%.2f\n", r.InitialCash)
	fmt.Printf("  Final Equity:    $%.2f\n", r.FinalEquity)
	fmt.Printf("  Total PnL:       $%.2f (%.2f%%)\n", r.TotalPnL, r.ROI)
	fmt.Printf("  Max Drawdown:    %.2f%%\n", r.MaxDrawdown)

	fmt.Println("\nTRADING STATS:")
	fmt.Printf("  Total Trades:    %d\n", r.TotalTrades)
	fmt.Printf("  Winning Trades:  %d (%.1f%%)\n", r.Winning, r.WinRate)
	fmt.Printf("  Losing Trades:   %d\n", r.Losing)
	fmt.Printf("  Average Win:     $%.2f\n", r.AverageWin)
	fmt.Printf("  Average Loss:    $%.2f\n", r.AverageLoss)
	fmt.Printf("  Profit Factor:   %.2f\n", r.ProfitFactor)
	fmt.Printf("  Sharpe Ratio:    %.2f\n", r.SharpeRatio)

	if r.Decisions > 0 {
		fmt.Println("\nDECISIONS:")
		fmt.Printf("  Total Decisions: %d\n", r.Decisions)
		fmt.Printf("  Execution Rate:  %.1f%%\n", float64(r.TotalTrades)/float64(r.Decisions)*100)
	}

	fmt.Println(strings.Repeat("=", 60))
}
