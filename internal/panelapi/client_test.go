package panelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"arena-panel-go/internal/config"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:     resty.New().SetBaseURL(server.URL),
		logger:     zap.NewNop(), // Use a no-op logger for tests
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 0, // No retries unless a test opts in
	}

	return c, server
}

func TestDashboardSummary(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockResponse := `{
			"level": "ok",
			"summary": "all systems nominal",
			"updated_at": "2024-01-01T00:00:00Z",
			"metrics": [{"name": "balance", "value": 1234.56, "formatted": "$1,234.56"}],
			"recent_trades": [
				{"ts": "2024-01-01T00:00:00Z", "symbol": "BTCUSDT", "timeframe": "15m", "side": "LONG", "confidence": 0.7}
			]
		}`

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dashboard/summary", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		// Act
		summary, err := c.DashboardSummary(context.Background())

		// Assert
		assert.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, "ok", summary.Level)
		assert.Equal(t, "all systems nominal", summary.Summary)
		require.Len(t, summary.Metrics, 1)
		require.NotNil(t, summary.Metrics[0].Value)
		assert.Equal(t, 1234.56, *summary.Metrics[0].Value)
		require.Len(t, summary.RecentTrades, 1)
		assert.Equal(t, "BTCUSDT", summary.RecentTrades[0].Symbol)
		require.NotNil(t, summary.RecentTrades[0].Confidence)
		assert.Equal(t, 0.7, *summary.RecentTrades[0].Confidence)
	})

	t.Run("APIError", func(t *testing.T) {
		// Arrange
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "bad request"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()
		c.maxRetries = 3

		// Act
		summary, err := c.DashboardSummary(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get dashboard summary")
		assert.Contains(t, err.Error(), "400")
		assert.Nil(t, summary)
		// 4xx other than 429 must not be retried.
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestChartQueryParams(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/chart", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("timeframe"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candles": [{"time": 1704067200, "open": 1, "high": 2, "low": 0.5, "close": 1.5}], "trades": []}`))
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	payload, err := c.Chart(context.Background(), "ETHUSDT", "1h")

	assert.NoError(t, err)
	require.NotNil(t, payload)
	require.Len(t, payload.Candles, 1)
	assert.Equal(t, int64(1704067200), payload.Candles[0].Time)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 1, "ranking": [{"id": "alpha-1", "name": "Alpha", "score": 0.9}]}`))
	})

	c, server := setupTestServer(handler)
	defer server.Close()
	c.maxRetries = 2

	ranking, err := c.ArenaRanking(context.Background())

	assert.NoError(t, err)
	require.NotNil(t, ranking)
	assert.Equal(t, 1, ranking.Count)
	require.Len(t, ranking.Ranking, 1)
	assert.Equal(t, "alpha-1", ranking.Ranking[0].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get(panelTokenHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"timestamp": "2024-01-01T00:00:00Z", "arena": {"wins": 3}, "bot": {"drawdown_pct": 1.2}}`))
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	cfg := &config.Panel{
		BaseURL:        server.URL,
		Token:          "secret-token",
		TimeoutSeconds: 5,
		RateLimit:      100,
		RateLimitBurst: 5,
	}
	c := NewClient(cfg, zap.NewNop())

	summary, err := c.ObservabilitySummary(context.Background())

	assert.NoError(t, err)
	require.NotNil(t, summary)
	require.NotNil(t, summary.Arena.Wins)
	assert.Equal(t, 3, *summary.Arena.Wins)
	require.NotNil(t, summary.Bot.DrawdownPct)
	assert.Equal(t, 1.2, *summary.Bot.DrawdownPct)
}

func TestArenaLedgerAndNotes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/arena/ledger":
			assert.Equal(t, "alpha-1", r.URL.Query().Get("strategy_id"))
			_, _ = w.Write([]byte(`{"entries": [{"ts": "2024-01-01T00:00:00Z", "pnl": 5.1234, "balance_after": 105.1234, "reason": "breakout"}]}`))
		case "/arena/notes":
			assert.Equal(t, "alpha-1", r.URL.Query().Get("strategy_id"))
			// The backend wraps the list, like the ledger's "entries".
			_, _ = w.Write([]byte(`{"notes": [{"strategy_id": "alpha-1", "note": "watch drawdown", "author": "ana", "ts": "2024-01-02T00:00:00Z"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	entries, err := c.ArenaLedger(context.Background(), "alpha-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5.1234, entries[0].Pnl)
	require.NotNil(t, entries[0].Reason)
	assert.Equal(t, "breakout", *entries[0].Reason)

	notes, err := c.ArenaNotes(context.Background(), "alpha-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "watch drawdown", notes[0].Note)
	assert.Equal(t, "ana", notes[0].Author)
}

func TestAddArenaNote(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arena/notes", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var note Note
		require.NoError(t, json.NewDecoder(r.Body).Decode(&note))
		assert.Equal(t, "alpha-1", note.StrategyID)
		assert.Equal(t, "needs tighter stop", note.Note)
		assert.Equal(t, "ana", note.Author)

		w.WriteHeader(http.StatusCreated)
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	err := c.AddArenaNote(context.Background(), "alpha-1", "needs tighter stop", "ana")

	assert.NoError(t, err)
}

func TestPromoteQueryParams(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arena/promote", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "alpha-1", q.Get("strategy_id"))
		assert.Equal(t, "30", q.Get("min_trades"))
		assert.Equal(t, "1.2", q.Get("min_sharpe"))
		assert.Equal(t, "0.15", q.Get("max_drawdown"))
		assert.Equal(t, "true", q.Get("force"))
		w.WriteHeader(http.StatusOK)
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	err := c.Promote(context.Background(), PromoteRequest{
		StrategyID:  "alpha-1",
		MinTrades:   30,
		MinSharpe:   1.2,
		MaxDrawdown: 0.15,
		Force:       true,
	})

	assert.NoError(t, err)
}

func TestForceTick(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arena/tick", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	assert.NoError(t, c.ForceTick(context.Background()))
}
