package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"arena-panel-go/internal/panelapi"
)

// csvHeader is the fixed export header.
const csvHeader = "ts,pnl,balance_after,reason"

// reasonPlaceholder replaces a missing reason in the export.
const reasonPlaceholder = "-"

// WriteCSV writes the full ledger as CSV: pnl and balance_after at exactly
// six fractional digits, reason as one JSON string token so embedded commas
// and quotes stay escaped. The export always covers the whole ledger,
// regardless of any display filter.
func WriteCSV(w io.Writer, entries []panelapi.LedgerEntry) error {
	if _, err := fmt.Fprintln(w, csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range entries {
		reason := reasonPlaceholder
		if e.Reason != nil {
			reason = *e.Reason
		}
		quoted, err := json.Marshal(reason)
		if err != nil {
			return fmt.Errorf("failed to encode reason: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s,%.6f,%.6f,%s\n", e.Ts, e.Pnl, e.BalanceAfter, quoted)
		if err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}

// ToCSV renders the ledger to a CSV string. See WriteCSV.
func ToCSV(entries []panelapi.LedgerEntry) string {
	var sb strings.Builder
	// strings.Builder never returns a write error.
	_ = WriteCSV(&sb, entries)
	return sb.String()
}

// ExportFilename is the download name for a strategy's ledger export.
func ExportFilename(strategyID string) string {
	if strategyID == "" {
		return "arena-ledger.csv"
	}
	return strategyID + ".csv"
}
