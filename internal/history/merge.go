// Package history maintains the bounded, deduplicated buffer of recent
// decision-confidence samples that the panel accumulates across refresh
// cycles. Unlike the rest of the fetched state, which is replaced wholesale
// on every cycle, this buffer is long-lived and appended to in place.
package history

import "sync"

// Limit is how many entries the buffer retains, by insertion order.
const Limit = 60

// Entry is one decision-confidence sample. Identity is (Symbol, Timeframe, Ts).
type Entry struct {
	Ts         string  `json:"ts"`
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	Confidence float64 `json:"confidence"`
	RiskPct    float64 `json:"risk_pct"`
}

// key identifies an entry for deduplication. Kept structured rather than
// string-joined so symbol/timeframe content can never collide.
type key struct {
	symbol    string
	timeframe string
	ts        string
}

func (e Entry) key() key {
	return key{symbol: e.Symbol, timeframe: e.Timeframe, ts: e.Ts}
}

// Merge folds incoming samples into current, appending only entries whose
// (symbol, timeframe, ts) key is not already present (duplicates within the
// incoming batch count too), and keeps the most recent Limit entries
// by insertion order. Existing entries are never reordered; entries are
// appended in arrival order even if their timestamps are out of order, so
// callers must supply batches chronologically for a chronological result.
// An empty incoming batch returns current unchanged; otherwise the result
// is a fresh slice and current's backing array is never written to.
func Merge(current, incoming []Entry) []Entry {
	if len(incoming) == 0 {
		return current
	}

	seen := make(map[key]struct{}, len(current)+len(incoming))
	for _, e := range current {
		seen[e.key()] = struct{}{}
	}

	merged := make([]Entry, len(current), len(current)+len(incoming))
	copy(merged, current)
	for _, e := range incoming {
		k := e.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, e)
	}

	if len(merged) > Limit {
		merged = merged[len(merged)-Limit:]
	}
	return merged
}

// Buffer is a session-scoped accumulator around Merge, safe for use from
// concurrent refresh cycles.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

// NewBuffer creates an empty history buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add merges incoming samples into the buffer.
func (b *Buffer) Add(incoming []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = Merge(b.entries, incoming)
}

// Entries returns a copy of the buffered samples in insertion order.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Filtered returns the buffered samples matching the given symbol and
// timeframe. "ALL" (or empty) matches everything for that dimension.
func (b *Buffer) Filtered(symbol, timeframe string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if symbol != "" && symbol != "ALL" && e.Symbol != symbol {
			continue
		}
		if timeframe != "" && timeframe != "ALL" && e.Timeframe != timeframe {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len reports how many samples are buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
