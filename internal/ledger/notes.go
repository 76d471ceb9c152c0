package ledger

import (
	"strings"

	"arena-panel-go/internal/panelapi"
)

// FilterNotes returns the notes whose text or author contains the query,
// case-insensitively. A blank or whitespace-only query returns the full
// set unchanged. A missing author is treated as the empty string.
func FilterNotes(notes []panelapi.Note, query string) []panelapi.Note {
	q := strings.TrimSpace(query)
	if q == "" {
		return notes
	}
	q = strings.ToLower(q)

	out := make([]panelapi.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Note), q) ||
			strings.Contains(strings.ToLower(n.Author), q) {
			out = append(out, n)
		}
	}
	return out
}
