package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/amaslov/equitybot/internal/adapters/alpaca"
	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/internal/backtest"
	"github.com/amaslov/equitybot/internal/decision"
	"github.com/amaslov/equitybot/internal/risk"
	"github.com/amaslov/equitybot/pkg/logger"
)

func main() {
	var (
		symbol = flag.String("symbol", "AAPL", "Stock symbol")
		days   = flag.Int("days", 180, "Trading days to simulate")
		cash   = flag.Float64("cash", 10000, "Initial cash")
	)

	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	broker := alpaca.NewClient(cfg.Alpaca)

	backtestCfg := &backtest.Config{
		Symbol:      *symbol,
		Days:        *days,
		InitialCash: *cash,
	}

	engine := backtest.NewEngine(
		broker,
		decision.NewTechnicalDecider(),
		risk.NewPositionSizer(&cfg.Trading),
		risk.NewValidator(&cfg.Trading),
		backtestCfg,
	)

	fmt.Printf("\n🔬 Running backtest for %s...\n", *symbol)
	fmt.Printf("Window: last %d trading days\n", *days)
	fmt.Printf("Initial Cash: $%.2f\n", *cash)

	result, err := engine.Run(context.Background(), backtestCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backtest failed: %v\n", err)
		os.Exit(1)
	}

	result.Print()

	fmt.Println("\nRECOMMENDATION:")
	switch {
	case result.ROI > 10 && result.WinRate > 50 && result.SharpeRatio > 1.0:
		fmt.Println("✅ GOOD - Strategy shows promise")
	case result.ROI < 0 || result.WinRate < 40:
		fmt.Println("❌ POOR - Strategy needs improvement")
	default:
		fmt.Println("⚠️  MEDIOCRE - More testing needed")
	}
}
