package panelapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"arena-panel-go/internal/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// panelTokenHeader carries the optional panel authorization token.
	panelTokenHeader = "X-Panel-Token"
	// errorBodyLimit caps how much of an error response body ends up in messages.
	errorBodyLimit = 256

	SideLong  = "LONG"
	SideShort = "SHORT"
)

// API defines the interface for the control-plane REST client.
type API interface {
	DashboardSummary(ctx context.Context) (*DashboardSummary, error)
	Chart(ctx context.Context, symbol, timeframe string) (*ChartPayload, error)
	ArenaRanking(ctx context.Context) (*ArenaRanking, error)
	ArenaState(ctx context.Context) (*ArenaState, error)
	ArenaLedger(ctx context.Context, strategyID string) ([]LedgerEntry, error)
	ArenaNotes(ctx context.Context, strategyID string) ([]Note, error)
	AddArenaNote(ctx context.Context, strategyID, note, author string) error
	ForceTick(ctx context.Context) error
	Promote(ctx context.Context, req PromoteRequest) error
	ObservabilitySummary(ctx context.Context) (*ObservabilitySummary, error)
}

// Client is a client for the trading-bot control-plane API.
// It implements the API interface.
type Client struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries uint64
}

// ensure Client implements the interface
var _ API = (*Client)(nil)

// NewClient creates a new control-plane API client.
func NewClient(cfg *config.Panel, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	if cfg.Token != "" {
		client.SetHeader(panelTokenHeader, cfg.Token)
	}

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:     client,
		logger:     logger,
		limiter:    limiter,
		maxRetries: uint64(cfg.MaxRetries),
	}
}

// doRequest executes one request with rate limiting and exponential-backoff
// retries on transport errors, 429 and 5xx responses. 4xx responses other
// than 429 fail immediately.
func (c *Client) doRequest(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	req.SetContext(ctx)

	var resp *resty.Response
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter wait failed: %w", err))
		}

		c.logger.Debug("Executing request",
			zap.String("method", method),
			zap.String("url", c.client.BaseURL+path))

		r, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.IsError() {
			status := r.StatusCode()
			body := r.String()
			if len(body) > errorBodyLimit {
				body = body[:errorBodyLimit]
			}
			err := fmt.Errorf("request failed with status %s: %s", r.Status(), body)
			if status == http.StatusTooManyRequests || status >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		resp = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Request failed, retrying...",
			zap.String("path", path),
			zap.Duration("retry_after", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// DashboardSummary fetches the telemetry summary.
func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	req := c.client.R().SetResult(&DashboardSummary{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/dashboard/summary", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard summary: %w", err)
	}
	return resp.Result().(*DashboardSummary), nil
}

// Chart fetches candles and trade markers for one symbol and timeframe.
func (c *Client) Chart(ctx context.Context, symbol, timeframe string) (*ChartPayload, error) {
	req := c.client.R().
		SetQueryParam("symbol", symbol).
		SetQueryParam("timeframe", timeframe).
		SetResult(&ChartPayload{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/dashboard/chart", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get chart for %s %s: %w", symbol, timeframe, err)
	}
	return resp.Result().(*ChartPayload), nil
}

// ArenaRanking fetches the strategy ranking.
func (c *Client) ArenaRanking(ctx context.Context) (*ArenaRanking, error) {
	req := c.client.R().SetResult(&ArenaRanking{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/arena/ranking", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get arena ranking: %w", err)
	}
	return resp.Result().(*ArenaRanking), nil
}

// ArenaState fetches the current goal and win-streak state.
func (c *Client) ArenaState(ctx context.Context) (*ArenaState, error) {
	req := c.client.R().SetResult(&ArenaState{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/arena/state", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get arena state: %w", err)
	}
	return resp.Result().(*ArenaState), nil
}

// ArenaLedger fetches the realized PnL ledger for one strategy.
func (c *Client) ArenaLedger(ctx context.Context, strategyID string) ([]LedgerEntry, error) {
	req := c.client.R().
		SetQueryParam("strategy_id", strategyID).
		SetResult(&ArenaLedger{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/arena/ledger", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger for %s: %w", strategyID, err)
	}
	return resp.Result().(*ArenaLedger).Entries, nil
}

// ArenaNotes fetches the notes attached to one strategy.
func (c *Client) ArenaNotes(ctx context.Context, strategyID string) ([]Note, error) {
	req := c.client.R().
		SetQueryParam("strategy_id", strategyID).
		SetResult(&ArenaNotes{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/arena/notes", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes for %s: %w", strategyID, err)
	}
	return resp.Result().(*ArenaNotes).Notes, nil
}

// AddArenaNote appends one note to a strategy.
func (c *Client) AddArenaNote(ctx context.Context, strategyID, note, author string) error {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(Note{StrategyID: strategyID, Note: note, Author: author})

	if _, err := c.doRequest(ctx, http.MethodPost, "/arena/notes", req); err != nil {
		return fmt.Errorf("failed to add note for %s: %w", strategyID, err)
	}
	return nil
}

// ForceTick forces one arena evaluation cycle.
func (c *Client) ForceTick(ctx context.Context) error {
	req := c.client.R()

	if _, err := c.doRequest(ctx, http.MethodPost, "/arena/tick", req); err != nil {
		return fmt.Errorf("failed to force arena tick: %w", err)
	}
	return nil
}

// Promote forwards the caller-chosen promotion thresholds to the backend.
// The thresholds are not evaluated here.
func (c *Client) Promote(ctx context.Context, p PromoteRequest) error {
	params := url.Values{}
	params.Set("strategy_id", p.StrategyID)
	params.Set("min_trades", strconv.Itoa(p.MinTrades))
	params.Set("min_sharpe", strconv.FormatFloat(p.MinSharpe, 'f', -1, 64))
	params.Set("max_drawdown", strconv.FormatFloat(p.MaxDrawdown, 'f', -1, 64))
	params.Set("force", strconv.FormatBool(p.Force))

	req := c.client.R().SetQueryParamsFromValues(params)

	if _, err := c.doRequest(ctx, http.MethodPost, "/arena/promote", req); err != nil {
		c.logger.Error("Failed to request promotion",
			zap.String("strategy_id", p.StrategyID),
			zap.Error(err))
		return fmt.Errorf("failed to promote %s: %w", p.StrategyID, err)
	}

	c.logger.Info("Requested strategy promotion",
		zap.String("strategy_id", p.StrategyID),
		zap.Int("min_trades", p.MinTrades),
		zap.Float64("min_sharpe", p.MinSharpe),
		zap.Float64("max_drawdown", p.MaxDrawdown),
		zap.Bool("force", p.Force))
	return nil
}

// ObservabilitySummary fetches the arena/bot/cerebro health snapshot.
func (c *Client) ObservabilitySummary(ctx context.Context) (*ObservabilitySummary, error) {
	req := c.client.R().SetResult(&ObservabilitySummary{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/observability/summary", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get observability summary: %w", err)
	}
	return resp.Result().(*ObservabilitySummary), nil
}
