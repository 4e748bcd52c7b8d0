package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
)

// Bot represents Telegram bot for notifications and control
type Bot struct {
	api            *tgbotapi.BotAPI
	chatID         int64
	commandHandler CommandHandler
}

// CommandHandler handles bot commands
type CommandHandler interface {
	HandleStatus(ctx context.Context) (string, error)
	HandleBalance(ctx context.Context) (string, error)
	HandlePositions(ctx context.Context) (string, error)
	HandleOrders(ctx context.Context) (string, error)
	HandleCancel(ctx context.Context, orderID string) (string, error)
	HandleSelection(ctx context.Context) (string, error)
	HandleSectors(ctx context.Context) (string, error)
	HandleStop(ctx context.Context) (string, error)
	HandleResume(ctx context.Context) (string, error)
}

// NewBot creates new Telegram bot
func NewBot(cfg *config.TelegramConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram bot initialized",
		zap.String("username", api.Self.UserName),
	)

	return &Bot{
		api:    api,
		chatID: cfg.ChatID,
	}, nil
}

// SetCommandHandler sets command handler
func (b *Bot) SetCommandHandler(handler CommandHandler) {
	b.commandHandler = handler
}

// Start starts listening for commands
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	logger.Info("telegram bot started, listening for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			// Only process messages from configured chat
			if update.Message.Chat.ID != b.chatID {
				continue
			}

			go b.handleCommand(ctx, update.Message)
		}
	}
}

// handleCommand processes incoming commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	command := message.Command()

	logger.Info("received telegram command",
		zap.String("command", command),
		zap.Int64("from_chat", message.Chat.ID),
	)

	var response string
	var err error

	if b.commandHandler == nil {
		response = "⚠️ Command handler not initialized"
	} else {
		switch command {
		case "start":
			response = b.getWelcomeMessage()
		case "help":
			response = b.getHelpMessage()
		case "status":
			response, err = b.commandHandler.HandleStatus(ctx)
		case "balance":
			response, err = b.commandHandler.HandleBalance(ctx)
		case "positions":
			response, err = b.commandHandler.HandlePositions(ctx)
		case "orders":
			response, err = b.commandHandler.HandleOrders(ctx)
		case "cancel":
			response, err = b.commandHandler.HandleCancel(ctx, strings.TrimSpace(message.CommandArguments()))
		case "selection":
			response, err = b.commandHandler.HandleSelection(ctx)
		case "sectors":
			response, err = b.commandHandler.HandleSectors(ctx)
		case "stop":
			response, err = b.commandHandler.HandleStop(ctx)
		case "resume":
			response, err = b.commandHandler.HandleResume(ctx)
		default:
			response = fmt.Sprintf("❓ Unknown command: /%s\nUse /help to see available commands", command)
		}
	}

	if err != nil {
		response = fmt.Sprintf("❌ Error: %v", err)
		logger.Error("command handler error", zap.Error(err), zap.String("command", command))
	}

	if err := b.SendMessage(response); err != nil {
		logger.Error("failed to send telegram response", zap.Error(err))
	}
}

// SendMessage sends text message
func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"

	_, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// getWelcomeMessage returns welcome message
func (b *Bot) getWelcomeMessage() string {
	return `👋 *Welcome to Equity Trading Bot!*

I will send you alerts about:
• Trade executions
• Stock selection changes
• Daily and weekly reports
• Errors and warnings

Use /help to see available commands.`
}

// getHelpMessage returns help message with all commands
func (b *Bot) getHelpMessage() string {
	return `📖 *Available Commands:*

/status - Current bot status and performance
/balance - Account balance and equity
/positions - Open positions
/orders - Open orders
/cancel <order_id> - Cancel an open order
/selection - Active stock selection
/sectors - Sector analysis
/stop - Pause trading
/resume - Resume trading
/help - Show this help message

💡 *Tip:* Bot will automatically send alerts about trades and important events.`
}

// Close closes bot connection
func (b *Bot) Close() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
		logger.Info("telegram bot stopped")
	}
}
