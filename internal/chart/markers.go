package chart

import (
	"fmt"
	"strings"

	"arena-panel-go/internal/panelapi"
	"arena-panel-go/internal/timeutil"
)

const (
	colorUp   = "#00e0a6"
	colorDown = "#ff6b6b"
)

// BuildMarkers converts trade markers to visual annotations: SHORT trades
// sit above the bar in the down color, everything else below in the up
// color. Marker times are normalized to seconds.
func BuildMarkers(trades []panelapi.TradeMarker) []Marker {
	markers := make([]Marker, 0, len(trades))
	for _, t := range trades {
		m := Marker{
			Time: timeutil.NormalizeTime(t.Time),
			Text: t.Side,
		}
		if t.Side == panelapi.SideShort {
			m.Position = AboveBar
			m.Color = colorDown
			m.Shape = "arrowDown"
		} else {
			m.Position = BelowBar
			m.Color = colorUp
			m.Shape = "arrowUp"
		}
		m.Tooltip = composeTooltip(t)
		markers = append(markers, m)
	}
	return markers
}

// composeTooltip joins the non-empty marker fields with newlines.
func composeTooltip(t panelapi.TradeMarker) string {
	lines := []string{fmt.Sprintf("Symbol: %s", t.Symbol)}
	if t.Timeframe != "" {
		lines = append(lines, fmt.Sprintf("TF: %s", t.Timeframe))
	}
	if t.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", t.Reason))
	}
	if t.Confidence != nil {
		lines = append(lines, fmt.Sprintf("Confidence: %.1f%%", *t.Confidence*100))
	}
	if t.RiskPct != nil {
		lines = append(lines, fmt.Sprintf("Risk: %.2f%%", *t.RiskPct))
	}
	return strings.Join(lines, "\n")
}
