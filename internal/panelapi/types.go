package panelapi

// SummaryMetric is one headline indicator on the dashboard.
type SummaryMetric struct {
	Name           string   `json:"name"`
	Value          *float64 `json:"value,omitempty"`
	Formatted      string   `json:"formatted,omitempty"`
	Delta          *float64 `json:"delta,omitempty"`
	DeltaFormatted string   `json:"delta_formatted,omitempty"`
}

// SummaryIssue is a detected problem reported by the backend.
type SummaryIssue struct {
	Severity string `json:"severity"` // "info", "warning" or "error"
	Message  string `json:"message"`
}

// SummaryAlert is an aggregated alert bucket with a hint for the operator.
type SummaryAlert struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
	Hint     string `json:"hint"`
	Latest   string `json:"latest,omitempty"`
}

// SummaryTrade is one recent decision or realized PnL row.
// Optional numeric fields are pointers so that absent and zero stay distinct.
type SummaryTrade struct {
	Ts         string   `json:"ts"`
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe,omitempty"`
	Side       string   `json:"side,omitempty"`
	Pnl        *float64 `json:"pnl,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	RiskPct    *float64 `json:"risk_pct,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// DashboardSummary is the response of GET /dashboard/summary.
type DashboardSummary struct {
	Level        string          `json:"level"`
	Summary      string          `json:"summary"`
	Mode         string          `json:"mode,omitempty"`
	UpdatedAt    string          `json:"updated_at"`
	Metrics      []SummaryMetric `json:"metrics"`
	Issues       []SummaryIssue  `json:"issues"`
	Alerts       []SummaryAlert  `json:"alerts"`
	RecentTrades []SummaryTrade  `json:"recent_trades"`
	RecentPnl    []SummaryTrade  `json:"recent_pnl"`
}

// Candle is one OHLC price-bar sample. Time arrives in either second or
// millisecond epoch depending on the backend data source.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// TradeMarker is a trade decision anchored to a candle time.
type TradeMarker struct {
	Time       int64    `json:"time"`
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe,omitempty"`
	Side       string   `json:"side,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	RiskPct    *float64 `json:"risk_pct,omitempty"`
}

// ChartPayload is the response of GET /dashboard/chart.
type ChartPayload struct {
	Candles []Candle      `json:"candles"`
	Trades  []TradeMarker `json:"trades"`
}

// RankingRow is one strategy in the arena ranking.
type RankingRow struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Mode           string   `json:"mode"`
	Engine         string   `json:"engine"`
	Score          float64  `json:"score"`
	Balance        *float64 `json:"balance,omitempty"`
	Goal           *float64 `json:"goal,omitempty"`
	Wins           *int     `json:"wins,omitempty"`
	Losses         *int     `json:"losses,omitempty"`
	Trades         *int     `json:"trades,omitempty"`
	SharpeRatio    *float64 `json:"sharpe_ratio,omitempty"`
	MaxDrawdownPct *float64 `json:"max_drawdown_pct,omitempty"`
	DrawdownPct    *float64 `json:"drawdown_pct,omitempty"`
}

// ArenaRanking is the response of GET /arena/ranking.
type ArenaRanking struct {
	Count   int          `json:"count"`
	Ranking []RankingRow `json:"ranking"`
}

// ArenaState is the response of GET /arena/state.
type ArenaState struct {
	CurrentGoal   *float64 `json:"current_goal,omitempty"`
	GoalIncrement *float64 `json:"goal_increment,omitempty"`
	Wins          *int     `json:"wins,omitempty"`
}

// LedgerEntry is one realized PnL event for a strategy. Reason is a pointer
// so a missing reason keeps the export placeholder distinct from "".
type LedgerEntry struct {
	Ts           string  `json:"ts"`
	Pnl          float64 `json:"pnl"`
	BalanceAfter float64 `json:"balance_after"`
	Reason       *string `json:"reason,omitempty"`
}

// ArenaLedger is the response of GET /arena/ledger.
type ArenaLedger struct {
	Entries []LedgerEntry `json:"entries"`
}

// Note is one operator annotation attached to a strategy.
type Note struct {
	StrategyID string `json:"strategy_id"`
	Note       string `json:"note"`
	Author     string `json:"author,omitempty"`
	Ts         string `json:"ts"`
}

// ArenaNotes is the response of GET /arena/notes.
type ArenaNotes struct {
	Notes []Note `json:"notes"`
}

// PromoteRequest carries the caller-chosen promotion thresholds. The backend
// evaluates them; the panel only forwards.
type PromoteRequest struct {
	StrategyID  string
	MinTrades   int
	MinSharpe   float64
	MaxDrawdown float64
	Force       bool
}

// ArenaObservability is the arena slice of the observability snapshot.
type ArenaObservability struct {
	CurrentGoal    *float64 `json:"current_goal,omitempty"`
	Wins           *int     `json:"wins,omitempty"`
	TicksSinceWin  *int     `json:"ticks_since_win,omitempty"`
	LastTickTs     string   `json:"last_tick_ts,omitempty"`
	TickAgeSeconds *float64 `json:"tick_age_seconds,omitempty"`
}

// BotObservability is the bot slice of the observability snapshot.
type BotObservability struct {
	DrawdownPct *float64 `json:"drawdown_pct,omitempty"`
}

// CerebroObservability is the decision-engine slice of the observability snapshot.
type CerebroObservability struct {
	DecisionsPerMin *float64 `json:"decisions_per_min,omitempty"`
}

// ObservabilitySummary is the response of GET /observability/summary.
type ObservabilitySummary struct {
	Timestamp string               `json:"timestamp"`
	Arena     ArenaObservability   `json:"arena"`
	Bot       BotObservability     `json:"bot"`
	Cerebro   CerebroObservability `json:"cerebro"`
}
