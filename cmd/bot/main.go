package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/ai"
	"github.com/amaslov/equitybot/internal/adapters/alpaca"
	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/internal/adapters/email"
	"github.com/amaslov/equitybot/internal/adapters/telegram"
	"github.com/amaslov/equitybot/internal/decision"
	"github.com/amaslov/equitybot/internal/health"
	"github.com/amaslov/equitybot/internal/reports"
	"github.com/amaslov/equitybot/internal/risk"
	"github.com/amaslov/equitybot/internal/selection"
	"github.com/amaslov/equitybot/internal/strategy"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/templates"
	"github.com/amaslov/equitybot/pkg/worker"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Run application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Equity Trading Bot starting...",
		zap.String("mode", cfg.Trading.Mode),
	)

	// Initialize brokerage client
	broker := alpaca.NewClient(cfg.Alpaca)
	if err := broker.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach brokerage API: %w", err)
	}

	logger.Info("brokerage connection established",
		zap.String("mode", cfg.Trading.Mode),
	)

	// Load message and prompt templates
	renderer, err := templates.NewManager("./templates")
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// Initialize AI provider
	provider := ai.NewOpenAIProvider(cfg.AI)

	// Initialize stock selection pipeline
	selector, err := initSelection(cfg, broker, provider, renderer)
	if err != nil {
		return err
	}

	// Initialize deciders
	primary, fallback := initDeciders(cfg, provider, renderer)

	// Initialize risk controls
	riskManager := &strategy.RiskManager{
		CircuitBreaker: risk.NewCircuitBreaker(&cfg.Risk),
		PositionSizer:  risk.NewPositionSizer(&cfg.Trading),
		Validator:      risk.NewValidator(&cfg.Trading),
	}

	// Initialize notification channels
	emailSender := email.NewSender(&cfg.Email)

	notifiers := []strategy.Notifier{emailSender}

	var bot *telegram.Bot
	var telegramNotifier *telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(&cfg.Telegram)
		if err != nil {
			logger.Error("failed to create telegram bot", zap.Error(err))
		} else {
			telegramNotifier = telegram.NewNotifier(bot, renderer, &cfg.Telegram)
			notifiers = append(notifiers, telegramNotifier)
		}
	}

	// Initialize trading engine
	engine := strategy.NewEngine(cfg, broker, selector, primary, fallback, riskManager, notifiers...)

	// Wire telegram commands now that the engine exists
	if bot != nil {
		bot.SetCommandHandler(telegram.NewCommands(engine, broker, renderer))

		go func() {
			if err := bot.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("telegram bot error", zap.Error(err))
			}
		}()
		defer bot.Close()

		logger.Info("📱 Telegram bot started")
	}

	// Initialize report scheduler
	scheduler, err := initReports(cfg, engine, broker, renderer, telegramNotifier, emailSender)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start health endpoint
	healthServer := health.NewServer(cfg.Health.Port, broker, engine, 2*cfg.Selection.RefreshInterval)
	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Error("health server error", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		healthServer.Stop(shutdownCtx)
	}()

	// Start trading cycle
	tradingWorker := worker.NewPeriodicWorker(engine, cfg.Trading.CycleInterval)
	tradingWorker.Start(ctx)
	defer tradingWorker.Stop(30 * time.Second)

	healthServer.SetReady(true)

	logger.Info("🤖 Trading bot ready",
		zap.Duration("cycle_interval", cfg.Trading.CycleInterval),
		zap.Int("max_stocks", cfg.Selection.MaxStocks),
	)

	// Keep service running
	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	return nil
}

// initSelection builds the stock universe and selection engine
func initSelection(cfg *config.Config, broker *alpaca.Client, provider ai.Provider, renderer templates.Renderer) (*selection.Engine, error) {
	var universe *selection.Universe
	var err error

	if cfg.Selection.UniverseFile != "" {
		universe, err = selection.LoadUniverse(cfg.Selection.UniverseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load universe file: %w", err)
		}

		logger.Info("stock universe loaded from file",
			zap.String("file", cfg.Selection.UniverseFile),
			zap.Int("symbols", universe.Size()),
		)
	} else {
		universe = selection.NewUniverse()
		logger.Info("using built-in stock universe", zap.Int("symbols", universe.Size()))
	}

	var sentiment selection.SentimentSource
	if cfg.Selection.SentimentEnabled && provider.IsEnabled() {
		sentiment = ai.NewSentimentScorer(provider, renderer)
		logger.Info("sentiment blending enabled")
	}

	return selection.NewEngine(universe, broker, broker, sentiment, cfg.Selection), nil
}

// initDeciders picks the optional primary decider and the always-on
// technical fallback
func initDeciders(cfg *config.Config, provider ai.Provider, renderer templates.Renderer) (decision.Decider, decision.Decider) {
	technical := decision.NewTechnicalDecider()

	if cfg.Trading.UseLLMDecider && provider.IsEnabled() {
		logger.Info("using LLM decider with technical fallback")
		return decision.NewLLMDecider(provider, renderer), technical
	}

	logger.Info("using technical decider")
	return nil, technical
}

// initReports wires the report generator and its cron scheduler
func initReports(
	cfg *config.Config,
	engine *strategy.Engine,
	broker *alpaca.Client,
	renderer templates.Renderer,
	telegramNotifier *telegram.Notifier,
	emailSender *email.Sender,
) (*reports.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Selection.Timezone)
	if err != nil {
		logger.Warn("failed to load report timezone, using UTC",
			zap.String("timezone", cfg.Selection.Timezone),
			zap.Error(err),
		)
		loc = time.UTC
	}

	generator := reports.NewGenerator(engine, broker, renderer)

	var telegramSink reports.TelegramSink
	if telegramNotifier != nil {
		telegramSink = telegramNotifier
	}

	scheduler, err := reports.NewScheduler(generator, telegramSink, emailSender, cfg.Reports, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to create report scheduler: %w", err)
	}

	return scheduler, nil
}
