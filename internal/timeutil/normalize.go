// Package timeutil canonicalizes the mixed timestamp encodings the backend
// emits. Candle and marker times arrive either as second or as millisecond
// epochs depending on which data source produced them; everything downstream
// works in seconds.
package timeutil

// msEpochThreshold separates second-epoch from millisecond-epoch values.
// Any plausible current date in seconds is far below it, and in
// milliseconds far above it.
const msEpochThreshold = 10_000_000_000

// NormalizeTime folds a raw epoch value to integer seconds. Zero stays
// zero. Idempotent: normalizing an already-normalized value is a no-op.
// Formatted date strings are parsed with time.Parse and never pass
// through here.
func NormalizeTime(v int64) int64 {
	if v == 0 {
		return 0
	}
	if v > msEpochThreshold {
		return v / 1000
	}
	return v
}
