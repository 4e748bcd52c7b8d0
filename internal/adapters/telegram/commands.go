package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/amaslov/equitybot/internal/strategy"
	"github.com/amaslov/equitybot/pkg/models"
	"github.com/amaslov/equitybot/pkg/templates"
)

// TradingEngine is the orchestrator surface the commands act on
type TradingEngine interface {
	Status() models.BotStatus
	Pause()
	Resume()
	CurrentSelection() strategy.Selection
	ForceRefresh(ctx context.Context) strategy.Selection
	SectorAnalysis(ctx context.Context) []models.SectorAnalysis
	GetPerformance() strategy.Performance
	RecentTrades(n int) []models.TradeRecord
}

// AccountReader exposes brokerage account state for commands
type AccountReader interface {
	GetAccount(ctx context.Context) (*models.Account, error)
	GetPositions(ctx context.Context) ([]*models.Position, error)
	GetOrders(ctx context.Context, status string, limit int) ([]*models.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Commands implements CommandHandler against the trading engine
type Commands struct {
	engine    TradingEngine
	broker    AccountReader
	renderer  templates.Renderer
	startedAt time.Time
}

// NewCommands creates new command handler
func NewCommands(engine TradingEngine, broker AccountReader, renderer templates.Renderer) *Commands {
	return &Commands{
		engine:    engine,
		broker:    broker,
		renderer:  renderer,
		startedAt: time.Now(),
	}
}

// HandleStatus reports engine state and performance summary
func (c *Commands) HandleStatus(ctx context.Context) (string, error) {
	perf := c.engine.GetPerformance()
	sel := c.engine.CurrentSelection()

	data := map[string]interface{}{
		"Status":         string(c.engine.Status()),
		"Uptime":         time.Since(c.startedAt).Round(time.Second).String(),
		"Symbols":        len(sel.Symbols),
		"Strategy":       string(sel.Strategy),
		"TotalTrades":    perf.TotalTrades,
		"Buys":           perf.Buys,
		"Sells":          perf.Sells,
		"HighConfidence": perf.HighConfidence,
		"AvgConfidence":  perf.AvgConfidence,
	}

	return c.renderer.ExecuteTemplate("status_message.tmpl", data)
}

// HandleBalance reports account balance and equity
func (c *Commands) HandleBalance(ctx context.Context) (string, error) {
	account, err := c.broker.GetAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch account: %w", err)
	}

	data := map[string]interface{}{
		"Status":      account.Status,
		"Cash":        account.Cash.InexactFloat64(),
		"Equity":      account.Equity.InexactFloat64(),
		"BuyingPower": account.BuyingPower.InexactFloat64(),
		"Portfolio":   account.PortfolioValue.InexactFloat64(),
	}

	return c.renderer.ExecuteTemplate("balance_message.tmpl", data)
}

// HandlePositions reports open positions
func (c *Commands) HandlePositions(ctx context.Context) (string, error) {
	positions, err := c.broker.GetPositions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch positions: %w", err)
	}

	rows := make([]map[string]interface{}, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, map[string]interface{}{
			"Symbol":       p.Symbol,
			"Qty":          p.Qty.IntPart(),
			"EntryPrice":   p.AvgEntryPrice.InexactFloat64(),
			"CurrentPrice": p.CurrentPrice.InexactFloat64(),
			"UnrealizedPL": p.UnrealizedPL.InexactFloat64(),
			"PLPercent":    p.UnrealizedPLPC.InexactFloat64() * 100,
		})
	}

	data := map[string]interface{}{
		"Positions": rows,
		"Count":     len(rows),
	}

	return c.renderer.ExecuteTemplate("positions_message.tmpl", data)
}

// HandleOrders reports open orders
func (c *Commands) HandleOrders(ctx context.Context) (string, error) {
	orders, err := c.broker.GetOrders(ctx, "open", 20)
	if err != nil {
		return "", fmt.Errorf("failed to fetch orders: %w", err)
	}

	rows := make([]map[string]interface{}, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, map[string]interface{}{
			"ID":        o.ID,
			"Symbol":    o.Symbol,
			"Side":      string(o.Side),
			"Type":      string(o.Type),
			"Qty":       o.Qty.IntPart(),
			"Status":    o.Status,
			"Submitted": o.SubmittedAt.Format("01-02 15:04"),
		})
	}

	data := map[string]interface{}{
		"Orders": rows,
		"Count":  len(rows),
	}

	return c.renderer.ExecuteTemplate("orders_message.tmpl", data)
}

// HandleCancel cancels an open order by ID
func (c *Commands) HandleCancel(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("order ID required, usage: /cancel <order_id>")
	}

	if err := c.broker.CancelOrder(ctx, orderID); err != nil {
		return "", fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}

	return fmt.Sprintf("🗑 Order `%s` cancelled.", orderID), nil
}

// HandleSelection reports the active candidate set
func (c *Commands) HandleSelection(ctx context.Context) (string, error) {
	sel := c.engine.CurrentSelection()

	data := map[string]interface{}{
		"Symbols":    sel.Symbols,
		"Count":      len(sel.Symbols),
		"Strategy":   string(sel.Strategy),
		"ComputedAt": sel.ComputedAt.Format("15:04:05"),
	}

	return c.renderer.ExecuteTemplate("selection_message.tmpl", data)
}

// HandleSectors reports per-sector scoring
func (c *Commands) HandleSectors(ctx context.Context) (string, error) {
	analysis := c.engine.SectorAnalysis(ctx)

	rows := make([]map[string]interface{}, 0, len(analysis))
	for _, a := range analysis {
		rows = append(rows, map[string]interface{}{
			"Sector":         a.Sector,
			"AvgScore":       a.AvgScore,
			"Stocks":         a.StocksAnalyzed,
			"Recommendation": a.Recommendation,
		})
	}

	data := map[string]interface{}{
		"Sectors": rows,
	}

	return c.renderer.ExecuteTemplate("sectors_message.tmpl", data)
}

// HandleStop pauses trading
func (c *Commands) HandleStop(ctx context.Context) (string, error) {
	c.engine.Pause()
	return "⏸️ Trading paused. Use /resume to continue.", nil
}

// HandleResume resumes trading
func (c *Commands) HandleResume(ctx context.Context) (string, error) {
	c.engine.Resume()
	return "▶️ Trading resumed.", nil
}
