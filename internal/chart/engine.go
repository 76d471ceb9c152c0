// Package chart binds one logical (symbol, timeframe) candle series to one
// renderable surface through an abstracted charting engine, and manages the
// teardown/rebuild of that binding across data changes.
package chart

import (
	"context"
	"sync"

	"arena-panel-go/internal/panelapi"
	"arena-panel-go/internal/timeutil"
)

// Candle is one normalized OHLC bar. Time is always in epoch seconds.
type Candle struct {
	Time  int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// MarkerPosition places a marker relative to its bar.
type MarkerPosition string

const (
	AboveBar MarkerPosition = "aboveBar"
	BelowBar MarkerPosition = "belowBar"
)

// Marker is a visual trade annotation anchored to a candle time.
type Marker struct {
	Time     int64
	Position MarkerPosition
	Color    string
	Shape    string
	Text     string
	Tooltip  string
}

// Series is one data series on an engine instance.
type Series interface {
	SetData(candles []Candle) error
	SetMarkers(markers []Marker) error
}

// Engine is the capability contract the lifecycle manager requires from a
// charting engine. One concrete adapter exists; tests supply a double.
type Engine interface {
	CreateSeries() (Series, error)
	Resize(width, height int)
	FitContent()
	Dispose()
}

// EngineFactory constructs an engine instance. Loading the engine is the
// asynchronous step of a binding cycle and may fail or outlive the cycle
// that requested it.
type EngineFactory func(ctx context.Context) (Engine, error)

// Surface is the render slot a chart binds to. SubscribeResize registers a
// callback for size changes and returns its disposer; every subscription
// must be released exactly once.
type Surface interface {
	Bounds() (width, height int)
	SubscribeResize(fn func()) (unsubscribe func())
}

// NormalizeCandles converts raw payload candles to chart candles with
// canonical second-epoch times.
func NormalizeCandles(candles []panelapi.Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		out = append(out, Candle{
			Time:  timeutil.NormalizeTime(c.Time),
			Open:  c.Open,
			High:  c.High,
			Low:   c.Low,
			Close: c.Close,
		})
	}
	return out
}

// FixedSurface is a Surface with static bounds, used for server-side
// rendering where no host reports size changes.
type FixedSurface struct {
	Width  int
	Height int

	mu   sync.Mutex
	subs map[int]func()
	next int
}

// Bounds returns the configured size.
func (s *FixedSurface) Bounds() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Width, s.Height
}

// SubscribeResize registers fn for size changes.
func (s *FixedSurface) SubscribeResize(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func())
	}
	id := s.next
	s.next++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetBounds changes the surface size and notifies subscribers.
func (s *FixedSurface) SetBounds(width, height int) {
	s.mu.Lock()
	s.Width, s.Height = width, height
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
