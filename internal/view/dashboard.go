// Package view owns the panel's display state: every fetch cycle replaces
// its slice of state wholesale, errors become banner text instead of
// propagating, and a newer selection always wins over a slower earlier one.
package view

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"arena-panel-go/internal/chart"
	"arena-panel-go/internal/history"
	"arena-panel-go/internal/panelapi"
)

// rankingLimit caps how many ranking rows the dashboard shows.
const rankingLimit = 10

// Dashboard holds the telemetry display state for the main panel page.
// Each kind of operation keeps its own error slot; a slot is cleared by the
// next success of the same kind and never silently dropped.
type Dashboard struct {
	api     panelapi.API
	logger  *zap.Logger
	chart   *chart.Manager
	history *history.Buffer

	// bindMu serializes chart rebinds so a superseded fetch that loses the
	// generation race can never attach after the winner.
	bindMu sync.Mutex

	mu            sync.Mutex
	generation    uint64
	symbol        string
	timeframe     string
	summary       *panelapi.DashboardSummary
	chartData     *panelapi.ChartPayload
	ranking       []panelapi.RankingRow
	arenaState    *panelapi.ArenaState
	observability *panelapi.ObservabilitySummary

	loadingSummary       bool
	loadingChart         bool
	loadingArena         bool
	loadingObservability bool

	summaryErr       string
	chartErr         string
	arenaErr         string
	observabilityErr string
}

// NewDashboard creates the dashboard view bound to one chart manager.
func NewDashboard(api panelapi.API, chartManager *chart.Manager, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		api:     api,
		logger:  logger,
		chart:   chartManager,
		history: history.NewBuffer(),
	}
}

// RefreshSummary fetches the dashboard summary and feeds the decision
// history buffer from its recent trades.
func (d *Dashboard) RefreshSummary(ctx context.Context) error {
	d.mu.Lock()
	d.loadingSummary = true
	d.mu.Unlock()

	summary, err := d.api.DashboardSummary(ctx)

	d.mu.Lock()
	d.loadingSummary = false
	if err != nil {
		d.summaryErr = err.Error()
		d.mu.Unlock()
		return err
	}
	d.summaryErr = ""
	d.summary = summary
	d.mu.Unlock()

	d.history.Add(historyEntries(summary.RecentTrades))
	return nil
}

// SetSelection switches the chart to a new (symbol, timeframe) pair. The
// fetch is not canceled when a newer selection supersedes it; its result is
// simply discarded, and only the newest selection's data ever binds.
func (d *Dashboard) SetSelection(ctx context.Context, symbol, timeframe string) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.symbol = symbol
	d.timeframe = timeframe
	d.loadingChart = true
	d.mu.Unlock()

	payload, err := d.api.Chart(ctx, symbol, timeframe)

	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		d.logger.Debug("Discarded superseded chart fetch",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe))
		return nil
	}
	d.loadingChart = false
	if err != nil {
		d.chartErr = err.Error()
		d.mu.Unlock()
		return err
	}
	d.chartErr = ""
	d.chartData = payload
	d.mu.Unlock()

	candles := chart.NormalizeCandles(payload.Candles)
	markers := chart.BuildMarkers(payload.Trades)

	d.bindMu.Lock()
	defer d.bindMu.Unlock()
	d.mu.Lock()
	stale := gen != d.generation
	d.mu.Unlock()
	if stale {
		return nil
	}
	return d.chart.Bind(ctx, candles, markers)
}

// RefreshArena fetches the strategy ranking and arena state.
func (d *Dashboard) RefreshArena(ctx context.Context) error {
	d.mu.Lock()
	d.loadingArena = true
	d.mu.Unlock()

	ranking, err := d.api.ArenaRanking(ctx)
	var state *panelapi.ArenaState
	if err == nil {
		state, err = d.api.ArenaState(ctx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadingArena = false
	if err != nil {
		d.arenaErr = err.Error()
		return err
	}
	d.arenaErr = ""
	rows := ranking.Ranking
	if len(rows) > rankingLimit {
		rows = rows[:rankingLimit]
	}
	d.ranking = rows
	d.arenaState = state
	return nil
}

// RefreshObservability fetches the health snapshot.
func (d *Dashboard) RefreshObservability(ctx context.Context) error {
	d.mu.Lock()
	d.loadingObservability = true
	d.mu.Unlock()

	snapshot, err := d.api.ObservabilitySummary(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadingObservability = false
	if err != nil {
		d.observabilityErr = err.Error()
		return err
	}
	d.observabilityErr = ""
	d.observability = snapshot
	return nil
}

// RefreshTelemetry runs the periodic refresh pass: observability plus the
// summary it is displayed next to.
func (d *Dashboard) RefreshTelemetry(ctx context.Context) error {
	return errors.Join(
		d.RefreshObservability(ctx),
		d.RefreshSummary(ctx),
	)
}

// Selection reports the active chart symbol and timeframe.
func (d *Dashboard) Selection() (symbol, timeframe string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.symbol, d.timeframe
}

// History returns the buffered decision-confidence samples, optionally
// filtered by symbol and timeframe ("ALL" matches everything).
func (d *Dashboard) History(symbol, timeframe string) []history.Entry {
	return d.history.Filtered(symbol, timeframe)
}

// Close tears down the chart binding.
func (d *Dashboard) Close() {
	d.chart.Dispose()
}

// DashboardSnapshot is the JSON shape served to the panel page.
type DashboardSnapshot struct {
	Symbol        string                         `json:"symbol"`
	Timeframe     string                         `json:"timeframe"`
	Summary       *panelapi.DashboardSummary     `json:"summary,omitempty"`
	Chart         *panelapi.ChartPayload         `json:"chart,omitempty"`
	Ranking       []panelapi.RankingRow          `json:"ranking"`
	ArenaState    *panelapi.ArenaState           `json:"arena_state,omitempty"`
	Observability *panelapi.ObservabilitySummary `json:"observability,omitempty"`
	History       []history.Entry                `json:"history"`

	ChartState string `json:"chart_state"`

	LoadingSummary       bool `json:"loading_summary"`
	LoadingChart         bool `json:"loading_chart"`
	LoadingArena         bool `json:"loading_arena"`
	LoadingObservability bool `json:"loading_observability"`

	SummaryError       string `json:"summary_error,omitempty"`
	ChartError         string `json:"chart_error,omitempty"`
	RenderError        string `json:"render_error,omitempty"`
	ArenaError         string `json:"arena_error,omitempty"`
	ObservabilityError string `json:"observability_error,omitempty"`
}

// Snapshot captures the current display state.
func (d *Dashboard) Snapshot() DashboardSnapshot {
	d.mu.Lock()
	snap := DashboardSnapshot{
		Symbol:               d.symbol,
		Timeframe:            d.timeframe,
		Summary:              d.summary,
		Chart:                d.chartData,
		Ranking:              d.ranking,
		ArenaState:           d.arenaState,
		Observability:        d.observability,
		LoadingSummary:       d.loadingSummary,
		LoadingChart:         d.loadingChart,
		LoadingArena:         d.loadingArena,
		LoadingObservability: d.loadingObservability,
		SummaryError:         d.summaryErr,
		ChartError:           d.chartErr,
		ArenaError:           d.arenaErr,
		ObservabilityError:   d.observabilityErr,
	}
	d.mu.Unlock()

	snap.History = d.history.Entries()
	snap.ChartState = d.chart.State().String()
	snap.RenderError = d.chart.Err()
	return snap
}

// historyEntries converts recent decision rows into history samples.
func historyEntries(trades []panelapi.SummaryTrade) []history.Entry {
	entries := make([]history.Entry, 0, len(trades))
	for _, t := range trades {
		e := history.Entry{
			Ts:        t.Ts,
			Symbol:    t.Symbol,
			Timeframe: t.Timeframe,
		}
		if t.Confidence != nil {
			e.Confidence = *t.Confidence
		}
		if t.RiskPct != nil {
			e.RiskPct = *t.RiskPct
		}
		entries = append(entries, e)
	}
	return entries
}
