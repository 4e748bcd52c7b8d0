package telegram

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
	"github.com/amaslov/equitybot/pkg/templates"
)

// Sender delivers a rendered message to the configured chat
type Sender interface {
	SendMessage(text string) error
}

// Notifier pushes engine events to Telegram. All methods are
// best-effort and never block trading.
type Notifier struct {
	sender        Sender
	renderer      templates.Renderer
	alertOnTrades bool
	alertOnErrors bool
}

// NewNotifier creates new Telegram notifier
func NewNotifier(sender Sender, renderer templates.Renderer, cfg *config.TelegramConfig) *Notifier {
	return &Notifier{
		sender:        sender,
		renderer:      renderer,
		alertOnTrades: cfg.AlertOnTrades,
		alertOnErrors: cfg.AlertOnErrors,
	}
}

// NotifyTrade sends an executed-trade alert
func (n *Notifier) NotifyTrade(record models.TradeRecord) {
	if !n.alertOnTrades {
		return
	}

	emoji := "🟢"
	if record.Action == models.ActionSell {
		emoji = "🔴"
	}

	data := map[string]interface{}{
		"Emoji":      emoji,
		"Action":     string(record.Action),
		"Symbol":     record.Symbol,
		"Quantity":   record.Quantity,
		"Price":      record.Price.InexactFloat64(),
		"Confidence": record.Confidence,
		"Reasoning":  record.Reasoning,
		"OrderID":    record.OrderID,
		"Time":       record.Timestamp.Format("15:04:05"),
	}

	n.send("trade_alert.tmpl", data)
}

// NotifySelection sends a selection-change alert
func (n *Notifier) NotifySelection(symbols []string, strategy string) {
	data := map[string]interface{}{
		"Symbols":  strings.Join(symbols, ", "),
		"Count":    len(symbols),
		"Strategy": strategy,
		"Time":     time.Now().Format("15:04:05"),
	}

	n.send("selection_alert.tmpl", data)
}

// NotifyError sends an error alert
func (n *Notifier) NotifyError(message string) {
	if !n.alertOnErrors {
		return
	}

	data := map[string]interface{}{
		"Message": message,
		"Time":    time.Now().Format("15:04:05"),
	}

	n.send("error_alert.tmpl", data)
}

// SendReport delivers a pre-rendered report
func (n *Notifier) SendReport(text string) {
	if err := n.sender.SendMessage(text); err != nil {
		logger.Error("failed to send telegram report", zap.Error(err))
	}
}

func (n *Notifier) send(templateName string, data map[string]interface{}) {
	msg, err := n.renderer.ExecuteTemplate(templateName, data)
	if err != nil {
		logger.Error("failed to render telegram message",
			zap.String("template", templateName),
			zap.Error(err),
		)
		return
	}

	if err := n.sender.SendMessage(msg); err != nil {
		logger.Error("failed to send telegram alert",
			zap.String("template", templateName),
			zap.Error(err),
		)
	}
}
