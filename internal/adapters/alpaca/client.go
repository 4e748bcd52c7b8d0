package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

// Client talks to the Alpaca trading and market data REST APIs
type Client struct {
	baseURL string
	dataURL string

	apiKey    string
	secretKey string

	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient creates new Alpaca client
func NewClient(cfg config.AlpacaConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		dataURL:   cfg.DataURL,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		now:       time.Now,
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// ErrNotFound is returned when Alpaca has no resource at the requested path,
// e.g. asking for a position in a symbol we do not hold
var ErrNotFound = fmt.Errorf("alpaca: not found")

type accountResponse struct {
	ID              string `json:"id"`
	Cash            string `json:"cash"`
	PortfolioValue  string `json:"portfolio_value"`
	BuyingPower     string `json:"buying_power"`
	Equity          string `json:"equity"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	TradingBlocked  bool   `json:"trading_blocked"`
	AccountBlocked  bool   `json:"account_blocked"`
	PatternDayTrade bool   `json:"pattern_day_trader"`
}

// GetAccount returns account balances and status
func (c *Client) GetAccount(ctx context.Context) (*models.Account, error) {
	var resp accountResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/account", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &models.Account{
		ID:               resp.ID,
		Status:           resp.Status,
		Currency:         resp.Currency,
		Cash:             parseDecimal(resp.Cash),
		Equity:           parseDecimal(resp.Equity),
		BuyingPower:      parseDecimal(resp.BuyingPower),
		PortfolioValue:   parseDecimal(resp.PortfolioValue),
		PatternDayTrader: resp.PatternDayTrade,
		TradingBlocked:   resp.TradingBlocked || resp.AccountBlocked,
	}, nil
}

type positionResponse struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	CurrentPrice   string `json:"current_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
	Side           string `json:"side"`
}

func (p positionResponse) toModel() *models.Position {
	return &models.Position{
		Symbol:         p.Symbol,
		Side:           p.Side,
		Qty:            parseDecimal(p.Qty),
		AvgEntryPrice:  parseDecimal(p.AvgEntryPrice),
		CurrentPrice:   parseDecimal(p.CurrentPrice),
		MarketValue:    parseDecimal(p.MarketValue),
		UnrealizedPL:   parseDecimal(p.UnrealizedPL),
		UnrealizedPLPC: parseDecimal(p.UnrealizedPLPC).Mul(decimal.NewFromInt(100)),
	}
}

// parseDecimal parses Alpaca's string-encoded numbers, empty or malformed
// values become zero
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GetPosition returns the open position for a symbol, or nil if we hold none
func (c *Client) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	var resp positionResponse
	err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/positions/"+symbol, nil, &resp)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position for %s: %w", symbol, err)
	}
	return resp.toModel(), nil
}

// GetPositions returns all open positions
func (c *Client) GetPositions(ctx context.Context) ([]*models.Position, error) {
	var resp []positionResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	positions := make([]*models.Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, p.toModel())
	}
	return positions, nil
}

type orderRequest struct {
	Symbol      string            `json:"symbol"`
	Qty         string            `json:"qty"`
	Side        string            `json:"side"`
	Type        string            `json:"type"`
	TimeInForce string            `json:"time_in_force"`
	OrderClass  string            `json:"order_class,omitempty"`
	StopLoss    *stopLossParams   `json:"stop_loss,omitempty"`
	TakeProfit  *takeProfitParams `json:"take_profit,omitempty"`
}

type stopLossParams struct {
	StopPrice string `json:"stop_price"`
}

type takeProfitParams struct {
	LimitPrice string `json:"limit_price"`
}

type orderResponse struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	FilledQty   string `json:"filled_qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	FilledPrice string `json:"filled_avg_price"`
	SubmittedAt string `json:"submitted_at"`
}

func (o orderResponse) toModel() *models.Order {
	submittedAt, _ := time.Parse(time.RFC3339, o.SubmittedAt)
	return &models.Order{
		SubmittedAt:    submittedAt,
		ID:             o.ID,
		Symbol:         o.Symbol,
		Side:           models.OrderSide(o.Side),
		Type:           models.OrderType(o.Type),
		Status:         o.Status,
		Qty:            parseDecimal(o.Qty),
		FilledQty:      parseDecimal(o.FilledQty),
		FilledAvgPrice: parseDecimal(o.FilledPrice),
	}
}

// PlaceBuyOrder submits a market buy wrapped in a bracket with stop loss and
// take profit legs derived from the current price
func (c *Client) PlaceBuyOrder(ctx context.Context, symbol string, quantity int, stopLossPct, takeProfitPct float64) (*models.Order, error) {
	order := orderRequest{
		Symbol:      symbol,
		Qty:         fmt.Sprintf("%d", quantity),
		Side:        string(models.SideBuy),
		Type:        string(models.TypeMarket),
		TimeInForce: string(models.TIFDay),
	}

	if price, err := c.GetCurrentPrice(ctx, symbol); err == nil && price > 0 {
		order.OrderClass = "bracket"
		order.StopLoss = &stopLossParams{
			StopPrice: fmt.Sprintf("%.2f", roundCents(price*(1-stopLossPct/100))),
		}
		order.TakeProfit = &takeProfitParams{
			LimitPrice: fmt.Sprintf("%.2f", roundCents(price*(1+takeProfitPct/100))),
		}
	} else if err != nil {
		logger.Warn("Could not fetch price for bracket legs, placing plain market order",
			zap.String("symbol", symbol), zap.Error(err))
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to place buy order for %s: %w", symbol, err)
	}

	logger.Info("🟢 Buy order placed",
		zap.String("symbol", symbol),
		zap.Int("quantity", quantity),
		zap.String("order_id", resp.ID))

	return resp.toModel(), nil
}

// PlaceSellOrder submits a market sell, clamping quantity to the held position.
// Returns nil order when there is nothing to sell.
func (c *Client) PlaceSellOrder(ctx context.Context, symbol string, quantity int) (*models.Order, error) {
	position, err := c.GetPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if position == nil {
		logger.Warn("No position to sell", zap.String("symbol", symbol))
		return nil, nil
	}

	held := int(position.Qty.IntPart())
	if quantity > held {
		logger.Info("Adjusted sell quantity to held amount",
			zap.String("symbol", symbol),
			zap.Int("requested", quantity),
			zap.Int("held", held))
		quantity = held
	}
	if quantity <= 0 {
		return nil, nil
	}

	order := orderRequest{
		Symbol:      symbol,
		Qty:         fmt.Sprintf("%d", quantity),
		Side:        string(models.SideSell),
		Type:        string(models.TypeMarket),
		TimeInForce: string(models.TIFDay),
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to place sell order for %s: %w", symbol, err)
	}

	logger.Info("🔴 Sell order placed",
		zap.String("symbol", symbol),
		zap.Int("quantity", quantity),
		zap.String("order_id", resp.ID))

	return resp.toModel(), nil
}

// GetOrders returns recent orders, newest first
func (c *Client) GetOrders(ctx context.Context, status string, limit int) ([]*models.Order, error) {
	url := fmt.Sprintf("%s/v2/orders?status=%s&limit=%d&direction=desc", c.baseURL, status, limit)

	var resp []orderResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	orders := make([]*models.Order, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, o.toModel())
	}
	return orders, nil
}

// CancelOrder cancels an open order by ID
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.do(ctx, http.MethodDelete, c.baseURL+"/v2/orders/"+orderID, nil, nil); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	logger.Info("Order cancelled", zap.String("order_id", orderID))
	return nil
}

type clockResponse struct {
	IsOpen    bool   `json:"is_open"`
	NextOpen  string `json:"next_open"`
	NextClose string `json:"next_close"`
}

// IsMarketOpen reports whether the exchange clock says the market is open
func (c *Client) IsMarketOpen(ctx context.Context) (bool, error) {
	var resp clockResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/clock", nil, &resp); err != nil {
		return false, fmt.Errorf("failed to get market clock: %w", err)
	}
	return resp.IsOpen, nil
}

// Ping verifies credentials and connectivity
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetAccount(ctx)
	return err
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
