package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"arena-panel-go/internal/chart/echarts"
	"arena-panel-go/internal/ledger"
	"arena-panel-go/internal/panelapi"
	"arena-panel-go/internal/view"
)

// APIHandler holds dependencies for the panel endpoints.
type APIHandler struct {
	log       *zap.Logger
	dashboard *view.Dashboard
	arena     *view.Arena
	renderer  *echarts.Renderer
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, dashboard *view.Dashboard, arena *view.Arena, renderer *echarts.Renderer) *APIHandler {
	return &APIHandler{log: log, dashboard: dashboard, arena: arena, renderer: renderer}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

// DashboardHandler returns the dashboard display state.
func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.dashboard.Snapshot())
}

// ChartSelectHandler switches the chart selection and returns the updated
// state. A fetch failure still returns the state: the error lives in its
// banner slot rather than failing the page.
func (h *APIHandler) ChartSelectHandler(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	timeframe := r.URL.Query().Get("timeframe")
	if symbol == "" || timeframe == "" {
		http.Error(w, "symbol and timeframe are required", http.StatusBadRequest)
		return
	}

	if err := h.dashboard.SetSelection(r.Context(), symbol, timeframe); err != nil {
		h.log.Warn("Chart selection failed",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Error(err))
	}
	h.writeJSON(w, h.dashboard.Snapshot())
}

// RefreshHandler re-fetches summary, arena and observability state.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.dashboard.RefreshSummary(ctx); err != nil {
		h.log.Warn("Summary refresh failed", zap.Error(err))
	}
	if err := h.dashboard.RefreshArena(ctx); err != nil {
		h.log.Warn("Arena refresh failed", zap.Error(err))
	}
	if err := h.dashboard.RefreshObservability(ctx); err != nil {
		h.log.Warn("Observability refresh failed", zap.Error(err))
	}
	h.writeJSON(w, h.dashboard.Snapshot())
}

// ArenaHandler returns the strategy detail state. Optional query params
// adjust the local display filters before the snapshot is taken.
func (h *APIHandler) ArenaHandler(w http.ResponseWriter, r *http.Request) {
	if mode := r.URL.Query().Get("filter"); mode != "" {
		h.arena.SetFilter(ledger.Mode(mode))
	}
	if r.URL.Query().Has("q") {
		h.arena.SetNoteQuery(r.URL.Query().Get("q"))
	}
	h.writeJSON(w, h.arena.Snapshot())
}

// ArenaSelectHandler loads the ledger and notes for one strategy.
func (h *APIHandler) ArenaSelectHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := mux.Vars(r)["id"]
	if err := h.arena.SelectStrategy(r.Context(), strategyID); err != nil {
		h.log.Warn("Strategy selection failed",
			zap.String("strategy_id", strategyID),
			zap.Error(err))
	}
	h.writeJSON(w, h.arena.Snapshot())
}

// noteRequest is the body of POST /api/arena/{id}/notes.
type noteRequest struct {
	Note   string `json:"note"`
	Author string `json:"author"`
}

// NoteHandler appends a note to a strategy.
func (h *APIHandler) NoteHandler(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid note payload", http.StatusBadRequest)
		return
	}

	strategyID := mux.Vars(r)["id"]
	snap := h.arena.Snapshot()
	if snap.StrategyID != strategyID {
		if err := h.arena.SelectStrategy(r.Context(), strategyID); err != nil {
			h.log.Warn("Strategy selection failed", zap.Error(err))
		}
	}

	if err := h.arena.AddNote(r.Context(), req.Note, req.Author); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, h.arena.Snapshot())
}

// TickHandler forces one backend evaluation cycle.
func (h *APIHandler) TickHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.arena.ForceTick(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PromoteHandler forwards caller-chosen promotion thresholds.
func (h *APIHandler) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := panelapi.PromoteRequest{StrategyID: mux.Vars(r)["id"]}

	var err error
	if v := q.Get("min_trades"); v != "" {
		if req.MinTrades, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid min_trades", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("min_sharpe"); v != "" {
		if req.MinSharpe, err = strconv.ParseFloat(v, 64); err != nil {
			http.Error(w, "invalid min_sharpe", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("max_drawdown"); v != "" {
		if req.MaxDrawdown, err = strconv.ParseFloat(v, 64); err != nil {
			http.Error(w, "invalid max_drawdown", http.StatusBadRequest)
			return
		}
	}
	req.Force = q.Get("force") == "true"

	if err := h.arena.Promote(r.Context(), req); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LedgerExportHandler streams the selected strategy's full ledger as CSV.
func (h *APIHandler) LedgerExportHandler(w http.ResponseWriter, r *http.Request) {
	strategyID := mux.Vars(r)["id"]
	snap := h.arena.Snapshot()
	if snap.StrategyID != strategyID {
		if err := h.arena.SelectStrategy(r.Context(), strategyID); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}

	filename := ledger.ExportFilename(strategyID)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := h.arena.ExportCSV(w); err != nil {
		h.log.Warn("Ledger export failed",
			zap.String("strategy_id", strategyID),
			zap.Error(err))
	}
}

// ChartPageHandler serves the rendered chart document, or the fallback
// message when the engine errored or nothing is bound yet.
func (h *APIHandler) ChartPageHandler(w http.ResponseWriter, r *http.Request) {
	html := h.renderer.HTML()
	if len(html) == 0 {
		msg := "No chart data available"
		if renderErr := h.dashboard.Snapshot().RenderError; renderErr != "" {
			msg = msg + ": " + renderErr
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, msg)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(html); err != nil {
		h.log.Error("Failed to write chart document", zap.Error(err))
	}
}
