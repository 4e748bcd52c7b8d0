package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/internal/strategy"
	"github.com/amaslov/equitybot/pkg/models"
)

type stubSender struct {
	messages []string
	err      error
}

func (s *stubSender) SendMessage(text string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, text)
	return nil
}

type stubRenderer struct {
	rendered []string
	fail     bool
}

func (r *stubRenderer) ExecuteTemplate(name string, data any) (string, error) {
	if r.fail {
		return "", errors.New("template error")
	}
	r.rendered = append(r.rendered, name)
	return fmt.Sprintf("rendered:%s", name), nil
}

func (r *stubRenderer) TemplateExists(name string) bool { return !r.fail }

func TestNotifier_NotifyTrade(t *testing.T) {
	sender := &stubSender{}
	renderer := &stubRenderer{}
	n := NewNotifier(sender, renderer, &config.TelegramConfig{AlertOnTrades: true, AlertOnErrors: true})

	n.NotifyTrade(models.TradeRecord{
		Timestamp:  time.Now(),
		Symbol:     "AAPL",
		Action:     models.ActionBuy,
		Quantity:   2,
		Price:      models.NewDecimal(187.50),
		Confidence: 8,
	})

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "rendered:trade_alert.tmpl", sender.messages[0])
}

func TestNotifier_TradeAlertsDisabled(t *testing.T) {
	sender := &stubSender{}
	n := NewNotifier(sender, &stubRenderer{}, &config.TelegramConfig{AlertOnTrades: false})

	n.NotifyTrade(models.TradeRecord{Symbol: "AAPL", Action: models.ActionBuy})
	assert.Empty(t, sender.messages)
}

func TestNotifier_NotifySelection(t *testing.T) {
	sender := &stubSender{}
	renderer := &stubRenderer{}
	n := NewNotifier(sender, renderer, &config.TelegramConfig{})

	n.NotifySelection([]string{"AAPL", "JNJ"}, "capped_ranking")

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "rendered:selection_alert.tmpl", sender.messages[0])
}

func TestNotifier_NotifyError(t *testing.T) {
	sender := &stubSender{}
	n := NewNotifier(sender, &stubRenderer{}, &config.TelegramConfig{AlertOnErrors: true})

	n.NotifyError("snapshot fetch failed")
	require.Len(t, sender.messages, 1)
}

func TestNotifier_RenderFailureDropsMessage(t *testing.T) {
	sender := &stubSender{}
	n := NewNotifier(sender, &stubRenderer{fail: true}, &config.TelegramConfig{AlertOnTrades: true})

	n.NotifyTrade(models.TradeRecord{Symbol: "AAPL", Action: models.ActionBuy})
	assert.Empty(t, sender.messages)
}

type stubEngine struct {
	status models.BotStatus
}

func (e *stubEngine) Status() models.BotStatus { return e.status }
func (e *stubEngine) Pause()                   { e.status = models.StatusPaused }
func (e *stubEngine) Resume()                  { e.status = models.StatusRunning }
func (e *stubEngine) CurrentSelection() strategy.Selection {
	return strategy.Selection{Symbols: []string{"AAPL", "JNJ"}, Strategy: "capped_ranking"}
}
func (e *stubEngine) ForceRefresh(ctx context.Context) strategy.Selection {
	return e.CurrentSelection()
}
func (e *stubEngine) SectorAnalysis(ctx context.Context) []models.SectorAnalysis {
	return []models.SectorAnalysis{{Sector: "Technology", AvgScore: 55, StocksAnalyzed: 3, Recommendation: "BUY"}}
}
func (e *stubEngine) GetPerformance() strategy.Performance {
	return strategy.Performance{TotalTrades: 4, Buys: 3, Sells: 1}
}
func (e *stubEngine) RecentTrades(n int) []models.TradeRecord { return nil }

type stubBroker struct {
	cancelled []string
	cancelErr error
}

func (b *stubBroker) GetAccount(ctx context.Context) (*models.Account, error) {
	return &models.Account{Status: "ACTIVE", Equity: models.NewDecimal(100000)}, nil
}

func (b *stubBroker) GetPositions(ctx context.Context) ([]*models.Position, error) {
	return []*models.Position{{Symbol: "AAPL", Qty: models.NewDecimal(5)}}, nil
}

func (b *stubBroker) GetOrders(ctx context.Context, status string, limit int) ([]*models.Order, error) {
	return []*models.Order{{
		ID:          "abc-123",
		Symbol:      "AAPL",
		Side:        models.SideBuy,
		Status:      status,
		Qty:         models.NewDecimal(2),
		SubmittedAt: time.Now(),
	}}, nil
}

func (b *stubBroker) CancelOrder(ctx context.Context, orderID string) error {
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancelled = append(b.cancelled, orderID)
	return nil
}

func TestCommands_StopResume(t *testing.T) {
	engine := &stubEngine{status: models.StatusRunning}
	cmds := NewCommands(engine, &stubBroker{}, &stubRenderer{})

	msg, err := cmds.HandleStop(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "paused")
	assert.Equal(t, models.StatusPaused, engine.Status())

	msg, err = cmds.HandleResume(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "resumed")
	assert.Equal(t, models.StatusRunning, engine.Status())
}

func TestCommands_RenderedHandlers(t *testing.T) {
	renderer := &stubRenderer{}
	cmds := NewCommands(&stubEngine{status: models.StatusRunning}, &stubBroker{}, renderer)

	ctx := context.Background()

	handlers := []struct {
		name string
		fn   func(context.Context) (string, error)
		tmpl string
	}{
		{"status", cmds.HandleStatus, "rendered:status_message.tmpl"},
		{"balance", cmds.HandleBalance, "rendered:balance_message.tmpl"},
		{"positions", cmds.HandlePositions, "rendered:positions_message.tmpl"},
		{"orders", cmds.HandleOrders, "rendered:orders_message.tmpl"},
		{"selection", cmds.HandleSelection, "rendered:selection_message.tmpl"},
		{"sectors", cmds.HandleSectors, "rendered:sectors_message.tmpl"},
	}

	for _, h := range handlers {
		t.Run(h.name, func(t *testing.T) {
			msg, err := h.fn(ctx)
			require.NoError(t, err)
			assert.Equal(t, h.tmpl, msg)
		})
	}
}

func TestCommands_Cancel(t *testing.T) {
	broker := &stubBroker{}
	cmds := NewCommands(&stubEngine{status: models.StatusRunning}, broker, &stubRenderer{})

	msg, err := cmds.HandleCancel(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Contains(t, msg, "abc-123")
	assert.Equal(t, []string{"abc-123"}, broker.cancelled)
}

func TestCommands_CancelRequiresID(t *testing.T) {
	broker := &stubBroker{}
	cmds := NewCommands(&stubEngine{status: models.StatusRunning}, broker, &stubRenderer{})

	_, err := cmds.HandleCancel(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/cancel")
	assert.Empty(t, broker.cancelled)
}

func TestCommands_CancelBrokerError(t *testing.T) {
	broker := &stubBroker{cancelErr: errors.New("order not found")}
	cmds := NewCommands(&stubEngine{status: models.StatusRunning}, broker, &stubRenderer{})

	_, err := cmds.HandleCancel(context.Background(), "abc-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc-123")
}
