package reports

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
	"github.com/amaslov/equitybot/pkg/templates"
)

// TradeSource supplies the in-memory trade history
type TradeSource interface {
	TradeHistory() []models.TradeRecord
}

// PositionSource supplies current open positions
type PositionSource interface {
	GetPositions(ctx context.Context) ([]*models.Position, error)
}

// Generator builds trading reports from the trade history and open
// positions
type Generator struct {
	trades   TradeSource
	broker   PositionSource
	renderer templates.Renderer
}

// NewGenerator creates report generator
func NewGenerator(trades TradeSource, broker PositionSource, renderer templates.Renderer) *Generator {
	return &Generator{
		trades:   trades,
		broker:   broker,
		renderer: renderer,
	}
}

// Generate computes report metrics for trades since the period start
func (g *Generator) Generate(ctx context.Context, title string, period Period) *Report {
	report := &Report{
		Title:       title,
		Period:      period,
		GeneratedAt: time.Now(),
	}

	type symbolAgg struct {
		trades     int
		buys       int
		sells      int
		confidence int
	}
	perSymbol := make(map[string]*symbolAgg)

	totalConfidence := 0

	for _, trade := range g.trades.TradeHistory() {
		if trade.Timestamp.Before(period.Start) || trade.Timestamp.After(period.End) {
			continue
		}

		report.TotalTrades++
		totalConfidence += trade.Confidence

		agg := perSymbol[trade.Symbol]
		if agg == nil {
			agg = &symbolAgg{}
			perSymbol[trade.Symbol] = agg
		}
		agg.trades++
		agg.confidence += trade.Confidence

		switch trade.Action {
		case models.ActionBuy:
			report.Buys++
			agg.buys++
		case models.ActionSell:
			report.Sells++
			agg.sells++
		}

		if trade.Confidence >= 7 {
			report.HighConfidence++
		}
	}

	if report.TotalTrades > 0 {
		report.WinRate = float64(report.HighConfidence) / float64(report.TotalTrades) * 100
		report.AvgConfidence = float64(totalConfidence) / float64(report.TotalTrades)
	}

	for symbol, agg := range perSymbol {
		report.Symbols = append(report.Symbols, SymbolStats{
			Symbol:        symbol,
			Trades:        agg.trades,
			Buys:          agg.buys,
			Sells:         agg.sells,
			AvgConfidence: float64(agg.confidence) / float64(agg.trades),
		})
	}
	sort.Slice(report.Symbols, func(i, j int) bool {
		if report.Symbols[i].Trades != report.Symbols[j].Trades {
			return report.Symbols[i].Trades > report.Symbols[j].Trades
		}
		return report.Symbols[i].Symbol < report.Symbols[j].Symbol
	})

	// Open positions are best-effort, the report still goes out when
	// the broker is unreachable.
	positions, err := g.broker.GetPositions(ctx)
	if err != nil {
		logger.Warn("failed to fetch positions for report", zap.Error(err))
	} else {
		report.OpenPositions = len(positions)
		for _, p := range positions {
			report.UnrealizedPL += p.UnrealizedPL.InexactFloat64()
		}
	}

	return report
}

// RenderText renders the plain-text report
func (g *Generator) RenderText(report *Report) (string, error) {
	return g.renderer.ExecuteTemplate("report_text.tmpl", report)
}

// RenderHTML renders the HTML report for email
func (g *Generator) RenderHTML(report *Report) (string, error) {
	return g.renderer.ExecuteTemplate("report_html.tmpl", report)
}
