package view

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"arena-panel-go/internal/chart"
	"arena-panel-go/internal/panelapi"
)

// fakeAPI implements panelapi.API with overridable behavior per method.
// Unset methods succeed with empty payloads.
type fakeAPI struct {
	summaryFn func(ctx context.Context) (*panelapi.DashboardSummary, error)
	chartFn   func(ctx context.Context, symbol, timeframe string) (*panelapi.ChartPayload, error)
	rankingFn func(ctx context.Context) (*panelapi.ArenaRanking, error)
	stateFn   func(ctx context.Context) (*panelapi.ArenaState, error)
	ledgerFn  func(ctx context.Context, strategyID string) ([]panelapi.LedgerEntry, error)
	notesFn   func(ctx context.Context, strategyID string) ([]panelapi.Note, error)
	addNoteFn func(ctx context.Context, strategyID, note, author string) error
	tickFn    func(ctx context.Context) error
	promoteFn func(ctx context.Context, req panelapi.PromoteRequest) error
	obsFn     func(ctx context.Context) (*panelapi.ObservabilitySummary, error)
}

var _ panelapi.API = (*fakeAPI)(nil)

func (f *fakeAPI) DashboardSummary(ctx context.Context) (*panelapi.DashboardSummary, error) {
	if f.summaryFn != nil {
		return f.summaryFn(ctx)
	}
	return &panelapi.DashboardSummary{}, nil
}

func (f *fakeAPI) Chart(ctx context.Context, symbol, timeframe string) (*panelapi.ChartPayload, error) {
	if f.chartFn != nil {
		return f.chartFn(ctx, symbol, timeframe)
	}
	return &panelapi.ChartPayload{}, nil
}

func (f *fakeAPI) ArenaRanking(ctx context.Context) (*panelapi.ArenaRanking, error) {
	if f.rankingFn != nil {
		return f.rankingFn(ctx)
	}
	return &panelapi.ArenaRanking{}, nil
}

func (f *fakeAPI) ArenaState(ctx context.Context) (*panelapi.ArenaState, error) {
	if f.stateFn != nil {
		return f.stateFn(ctx)
	}
	return &panelapi.ArenaState{}, nil
}

func (f *fakeAPI) ArenaLedger(ctx context.Context, strategyID string) ([]panelapi.LedgerEntry, error) {
	if f.ledgerFn != nil {
		return f.ledgerFn(ctx, strategyID)
	}
	return nil, nil
}

func (f *fakeAPI) ArenaNotes(ctx context.Context, strategyID string) ([]panelapi.Note, error) {
	if f.notesFn != nil {
		return f.notesFn(ctx, strategyID)
	}
	return nil, nil
}

func (f *fakeAPI) AddArenaNote(ctx context.Context, strategyID, note, author string) error {
	if f.addNoteFn != nil {
		return f.addNoteFn(ctx, strategyID, note, author)
	}
	return nil
}

func (f *fakeAPI) ForceTick(ctx context.Context) error {
	if f.tickFn != nil {
		return f.tickFn(ctx)
	}
	return nil
}

func (f *fakeAPI) Promote(ctx context.Context, req panelapi.PromoteRequest) error {
	if f.promoteFn != nil {
		return f.promoteFn(ctx, req)
	}
	return nil
}

func (f *fakeAPI) ObservabilitySummary(ctx context.Context) (*panelapi.ObservabilitySummary, error) {
	if f.obsFn != nil {
		return f.obsFn(ctx)
	}
	return &panelapi.ObservabilitySummary{}, nil
}

type nopEngine struct{}

func (nopEngine) CreateSeries() (chart.Series, error) { return nopSeries{}, nil }
func (nopEngine) Resize(width, height int)            {}
func (nopEngine) FitContent()                         {}
func (nopEngine) Dispose()                            {}

type nopSeries struct{}

func (nopSeries) SetData(candles []chart.Candle) error    { return nil }
func (nopSeries) SetMarkers(markers []chart.Marker) error { return nil }

func newChartManager(t *testing.T) *chart.Manager {
	t.Helper()
	m, err := chart.NewManager(chart.ManagerConfig{
		Factory: func(ctx context.Context) (chart.Engine, error) { return nopEngine{}, nil },
		Surface: &chart.FixedSurface{Width: 800, Height: 400},
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func floatPtr(v float64) *float64 { return &v }

func TestRefreshSummaryFeedsHistory(t *testing.T) {
	api := &fakeAPI{
		summaryFn: func(ctx context.Context) (*panelapi.DashboardSummary, error) {
			return &panelapi.DashboardSummary{
				Level:   "ok",
				Summary: "nominal",
				RecentTrades: []panelapi.SummaryTrade{
					{Ts: "2024-01-01T00:00:00Z", Symbol: "BTCUSDT", Timeframe: "15m", Confidence: floatPtr(0.7)},
					{Ts: "2024-01-01T00:15:00Z", Symbol: "ETHUSDT", Timeframe: "15m", Confidence: floatPtr(0.6)},
				},
			}, nil
		},
	}
	d := NewDashboard(api, newChartManager(t), zap.NewNop())

	require.NoError(t, d.RefreshSummary(context.Background()))

	snap := d.Snapshot()
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "ok", snap.Summary.Level)
	assert.Empty(t, snap.SummaryError)
	assert.False(t, snap.LoadingSummary)

	assert.Len(t, d.History("ALL", "ALL"), 2)
	assert.Len(t, d.History("BTCUSDT", "ALL"), 1)

	// Re-delivery of the same trades must not duplicate samples.
	require.NoError(t, d.RefreshSummary(context.Background()))
	assert.Len(t, d.History("ALL", "ALL"), 2)
}

func TestRefreshSummaryErrorSlot(t *testing.T) {
	failing := true
	api := &fakeAPI{
		summaryFn: func(ctx context.Context) (*panelapi.DashboardSummary, error) {
			if failing {
				return nil, fmt.Errorf("backend unreachable")
			}
			return &panelapi.DashboardSummary{Level: "ok"}, nil
		},
	}
	d := NewDashboard(api, newChartManager(t), zap.NewNop())

	require.Error(t, d.RefreshSummary(context.Background()))
	snap := d.Snapshot()
	assert.Equal(t, "backend unreachable", snap.SummaryError)
	assert.Nil(t, snap.Summary, "failed fetch must not clear previous data slot")

	// The slot is cleared by the next success of the same kind.
	failing = false
	require.NoError(t, d.RefreshSummary(context.Background()))
	snap = d.Snapshot()
	assert.Empty(t, snap.SummaryError)
	require.NotNil(t, snap.Summary)
}

func TestSetSelectionBindsChart(t *testing.T) {
	api := &fakeAPI{
		chartFn: func(ctx context.Context, symbol, timeframe string) (*panelapi.ChartPayload, error) {
			return &panelapi.ChartPayload{
				Candles: []panelapi.Candle{{Time: 1704067200, Open: 1, High: 2, Low: 0.5, Close: 1.5}},
				Trades:  []panelapi.TradeMarker{{Time: 1704067200, Symbol: symbol, Side: "LONG"}},
			}, nil
		},
	}
	manager := newChartManager(t)
	d := NewDashboard(api, manager, zap.NewNop())

	require.NoError(t, d.SetSelection(context.Background(), "BTCUSDT", "15m"))

	symbol, timeframe := d.Selection()
	assert.Equal(t, "BTCUSDT", symbol)
	assert.Equal(t, "15m", timeframe)

	snap := d.Snapshot()
	require.NotNil(t, snap.Chart)
	assert.Len(t, snap.Chart.Candles, 1)
	assert.Equal(t, "bound", snap.ChartState)
	assert.False(t, snap.LoadingChart)
}

func TestSetSelectionSupersededFetchIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		chartFn: func(ctx context.Context, symbol, timeframe string) (*panelapi.ChartPayload, error) {
			if symbol == "SLOW" {
				close(entered)
				<-release
			}
			return &panelapi.ChartPayload{
				Candles: []panelapi.Candle{{Time: 1704067200, Open: 1, High: 2, Low: 0.5, Close: 1.5}},
				Trades:  []panelapi.TradeMarker{{Time: 1704067200, Symbol: symbol}},
			}, nil
		},
	}
	d := NewDashboard(api, newChartManager(t), zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- d.SetSelection(context.Background(), "SLOW", "15m")
	}()
	<-entered

	// A newer selection wins while the first fetch is still in flight.
	require.NoError(t, d.SetSelection(context.Background(), "BTCUSDT", "1h"))
	close(release)
	require.NoError(t, <-done)

	symbol, timeframe := d.Selection()
	assert.Equal(t, "BTCUSDT", symbol)
	assert.Equal(t, "1h", timeframe)

	snap := d.Snapshot()
	require.NotNil(t, snap.Chart)
	require.Len(t, snap.Chart.Trades, 1)
	assert.Equal(t, "BTCUSDT", snap.Chart.Trades[0].Symbol)
	assert.Equal(t, "bound", snap.ChartState)
}

func TestRefreshArenaTrimsRanking(t *testing.T) {
	rows := make([]panelapi.RankingRow, 0, 15)
	for i := 0; i < 15; i++ {
		rows = append(rows, panelapi.RankingRow{ID: fmt.Sprintf("s-%02d", i), Score: float64(15 - i)})
	}
	goal := 250.0
	api := &fakeAPI{
		rankingFn: func(ctx context.Context) (*panelapi.ArenaRanking, error) {
			return &panelapi.ArenaRanking{Count: len(rows), Ranking: rows}, nil
		},
		stateFn: func(ctx context.Context) (*panelapi.ArenaState, error) {
			return &panelapi.ArenaState{CurrentGoal: &goal}, nil
		},
	}
	d := NewDashboard(api, newChartManager(t), zap.NewNop())

	require.NoError(t, d.RefreshArena(context.Background()))

	snap := d.Snapshot()
	require.Len(t, snap.Ranking, 10)
	assert.Equal(t, "s-00", snap.Ranking[0].ID)
	assert.Equal(t, "s-09", snap.Ranking[9].ID)
	require.NotNil(t, snap.ArenaState)
	assert.Equal(t, 250.0, *snap.ArenaState.CurrentGoal)
}

func TestRefreshTelemetryJoinsErrors(t *testing.T) {
	api := &fakeAPI{
		obsFn: func(ctx context.Context) (*panelapi.ObservabilitySummary, error) {
			return nil, fmt.Errorf("observability down")
		},
	}
	d := NewDashboard(api, newChartManager(t), zap.NewNop())

	err := d.RefreshTelemetry(context.Background())

	// The summary leg still runs and succeeds.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observability down")
	snap := d.Snapshot()
	assert.Equal(t, "observability down", snap.ObservabilityError)
	assert.Empty(t, snap.SummaryError)
	require.NotNil(t, snap.Summary)
}
