package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Alpaca    AlpacaConfig    `envconfig:"ALPACA"`
	AI        AIConfig        `envconfig:"AI"`
	Trading   TradingConfig   `envconfig:"TRADING"`
	Risk      RiskConfig      `envconfig:"RISK"`
	Selection SelectionConfig `envconfig:"SELECTION"`
	Telegram  TelegramConfig  `envconfig:"TELEGRAM"`
	Email     EmailConfig     `envconfig:"EMAIL"`
	Reports   ReportsConfig   `envconfig:"REPORTS"`
	Health    HealthConfig    `envconfig:"HEALTH"`
	Logging   LoggingConfig   `envconfig:"LOGGING"`
}

// AlpacaConfig represents brokerage API configuration
type AlpacaConfig struct {
	APIKey    string  `envconfig:"ALPACA_API_KEY" required:"true"`
	SecretKey string  `envconfig:"ALPACA_SECRET_KEY" required:"true"`
	BaseURL   string  `envconfig:"ALPACA_BASE_URL" default:"https://paper-api.alpaca.markets"`
	DataURL   string  `envconfig:"ALPACA_DATA_URL" default:"https://data.alpaca.markets"`
	RateLimit float64 `envconfig:"ALPACA_RATE_LIMIT" default:"3.0"` // requests per second
}

// AIConfig represents LLM provider configuration
type AIConfig struct {
	APIKey      string  `envconfig:"OPENAI_API_KEY" required:"false"`
	Model       string  `envconfig:"AI_MODEL" default:"gpt-4-turbo-preview"`
	Temperature float64 `envconfig:"AI_TEMPERATURE" default:"0.7"`
	MaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"1000"`
	Enabled     bool    `envconfig:"AI_ENABLED" default:"true"`
}

// TradingConfig represents trading parameters
type TradingConfig struct {
	Mode                  string        `envconfig:"TRADING_MODE" default:"paper"`
	CycleInterval         time.Duration `envconfig:"TRADING_CYCLE_INTERVAL" default:"5m"`
	MaxPositionSize       float64       `envconfig:"TRADING_MAX_POSITION_SIZE" default:"1000.0"`
	StopLossPercent       float64       `envconfig:"TRADING_STOP_LOSS_PERCENT" default:"5.0"`
	TakeProfitPercent     float64       `envconfig:"TRADING_TAKE_PROFIT_PERCENT" default:"10.0"`
	MinConfidence         int           `envconfig:"TRADING_MIN_CONFIDENCE" default:"5"`
	HalveQuantityBelow    int           `envconfig:"TRADING_HALVE_QUANTITY_BELOW" default:"7"`
	UseLLMDecider         bool          `envconfig:"TRADING_USE_LLM_DECIDER" default:"true"`
	TradingStartHour      int           `envconfig:"TRADING_START_HOUR" default:"9"`
	TradingEndHour        int           `envconfig:"TRADING_END_HOUR" default:"16"`
}

// RiskConfig represents circuit breaker thresholds
type RiskConfig struct {
	MaxConsecutiveLosses   int           `envconfig:"RISK_MAX_CONSECUTIVE_LOSSES" default:"3"`
	MaxDailyLossPercent    float64       `envconfig:"RISK_MAX_DAILY_LOSS_PERCENT" default:"5.0"`
	CircuitBreakerCooldown time.Duration `envconfig:"RISK_CIRCUIT_BREAKER_COOLDOWN" default:"1h"`
}

// SelectionConfig represents stock selection parameters
type SelectionConfig struct {
	MaxStocks                int           `envconfig:"SELECTION_MAX_STOCKS" default:"5"`
	RefreshInterval          time.Duration `envconfig:"SELECTION_REFRESH_INTERVAL" default:"30m"`
	DifferentiationThreshold float64       `envconfig:"SELECTION_DIFFERENTIATION_THRESHOLD" default:"5.0"`
	SentimentEnabled         bool          `envconfig:"SELECTION_SENTIMENT_ENABLED" default:"true"`
	UniverseFile             string        `envconfig:"SELECTION_UNIVERSE_FILE" required:"false"`
	Timezone                 string        `envconfig:"SELECTION_TIMEZONE" default:"America/New_York"`
	Hours                    MarketHours
}

// MarketHours defines the trading-session boundaries used by the
// time-of-day scoring adjustments. All values are exchange-local.
type MarketHours struct {
	OpenHour        int `envconfig:"MARKET_OPEN_HOUR" default:"9"`
	OpenMinute      int `envconfig:"MARKET_OPEN_MINUTE" default:"30"`
	CloseHour       int `envconfig:"MARKET_CLOSE_HOUR" default:"16"`
	MiddayStartHour int `envconfig:"MARKET_MIDDAY_START_HOUR" default:"12"`
	MiddayEndHour   int `envconfig:"MARKET_MIDDAY_END_HOUR" default:"14"`
	CloseRushHour   int `envconfig:"MARKET_CLOSE_RUSH_HOUR" default:"15"`
}

// TelegramConfig represents Telegram bot configuration
type TelegramConfig struct {
	BotToken      string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID        int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnTrades bool   `envconfig:"TELEGRAM_ALERT_ON_TRADES" default:"true"`
	AlertOnErrors bool   `envconfig:"TELEGRAM_ALERT_ON_ERRORS" default:"true"`
}

// EmailConfig represents SMTP report configuration
type EmailConfig struct {
	SMTPServer string   `envconfig:"SMTP_SERVER" default:"smtp.gmail.com"`
	SMTPPort   int      `envconfig:"SMTP_PORT" default:"587"`
	Username   string   `envconfig:"EMAIL_USERNAME" required:"false"`
	Password   string   `envconfig:"EMAIL_PASSWORD" required:"false"`
	Recipients []string `envconfig:"EMAIL_RECIPIENTS" required:"false"`
}

// ReportsConfig represents report scheduling configuration
type ReportsConfig struct {
	Enabled      bool   `envconfig:"REPORTS_ENABLED" default:"true"`
	DailyCron    string `envconfig:"REPORTS_DAILY_CRON" default:"0 30 16 * * MON-FRI"`
	WeeklyCron   string `envconfig:"REPORTS_WEEKLY_CRON" default:"0 0 17 * * FRI"`
}

// HealthConfig represents health endpoint configuration
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Alpaca.APIKey == "" || c.Alpaca.SecretKey == "" {
		return fmt.Errorf("alpaca API credentials are required")
	}

	if c.Trading.UseLLMDecider && c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when the LLM decider is enabled")
	}

	if c.Trading.MaxPositionSize <= 0 {
		return fmt.Errorf("max_position_size must be positive")
	}
	if c.Trading.StopLossPercent <= 0 || c.Trading.StopLossPercent >= 100 {
		return fmt.Errorf("stop_loss_percent must be between 0 and 100")
	}
	if c.Trading.TakeProfitPercent <= 0 {
		return fmt.Errorf("take_profit_percent must be positive")
	}

	if c.Risk.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("risk max_consecutive_losses must be at least 1")
	}
	if c.Risk.MaxDailyLossPercent <= 0 {
		return fmt.Errorf("risk max_daily_loss_percent must be positive")
	}

	if c.Selection.MaxStocks < 1 {
		return fmt.Errorf("selection max_stocks must be at least 1")
	}
	if c.Selection.RefreshInterval <= 0 {
		return fmt.Errorf("selection refresh_interval must be positive")
	}

	h := c.Selection.Hours
	if h.OpenHour < 0 || h.OpenHour > 23 || h.CloseHour < 0 || h.CloseHour > 23 {
		return fmt.Errorf("market hours out of range")
	}
	if h.MiddayStartHour >= h.MiddayEndHour {
		return fmt.Errorf("midday window must be a non-empty range")
	}

	return nil
}
