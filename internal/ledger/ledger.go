// Package ledger computes client-side analytics over a strategy's realized
// PnL ledger: aggregate statistics, win/loss views and a CSV export. The
// ledger itself is owned by the backend and replaced wholesale on each fetch.
package ledger

import (
	"github.com/montanaflynn/stats"

	"arena-panel-go/internal/panelapi"
)

// Mode selects which slice of the ledger a view shows.
type Mode string

const (
	FilterAll    Mode = "all"
	FilterWins   Mode = "wins"
	FilterLosses Mode = "losses"
)

// Summary holds aggregate statistics over one ledger.
type Summary struct {
	TotalPnl float64 `json:"total_pnl"`
	AvgPnl   float64 `json:"avg_pnl"`
	WinRate  float64 `json:"win_rate"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
}

// Aggregates computes the summary statistics for a ledger. A trade is a win
// iff its pnl is strictly positive; zero counts as a loss. An empty ledger
// yields the zero Summary.
func Aggregates(entries []panelapi.LedgerEntry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	pnls := make(stats.Float64Data, 0, len(entries))
	wins := 0
	for _, e := range entries {
		pnls = append(pnls, e.Pnl)
		if e.Pnl > 0 {
			wins++
		}
	}

	// stats errors only on empty input, which is handled above.
	total, _ := stats.Sum(pnls)
	avg, _ := stats.Mean(pnls)

	return Summary{
		TotalPnl: total,
		AvgPnl:   avg,
		WinRate:  float64(wins) / float64(len(entries)) * 100,
		Wins:     wins,
		Losses:   len(entries) - wins,
	}
}

// Filter returns the entries matching the given mode, preserving order.
// The source slice is never mutated.
func Filter(entries []panelapi.LedgerEntry, mode Mode) []panelapi.LedgerEntry {
	switch mode {
	case FilterWins:
		out := make([]panelapi.LedgerEntry, 0, len(entries))
		for _, e := range entries {
			if e.Pnl > 0 {
				out = append(out, e)
			}
		}
		return out
	case FilterLosses:
		out := make([]panelapi.LedgerEntry, 0, len(entries))
		for _, e := range entries {
			if e.Pnl <= 0 {
				out = append(out, e)
			}
		}
		return out
	default:
		return entries
	}
}
