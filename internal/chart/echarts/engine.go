// Package echarts adapts go-echarts as the concrete charting engine: each
// bound series renders a candlestick (Kline) chart with trade mark points to
// an HTML snapshot that the panel serves.
package echarts

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"arena-panel-go/internal/chart"
)

// Renderer holds the latest HTML snapshot produced by whichever engine
// instance currently owns the surface. A disposed engine can no longer
// publish or clear, so a superseded load never overwrites the winner.
type Renderer struct {
	mu    sync.RWMutex
	owner *engine
	html  []byte
}

// NewRenderer creates an empty renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// HTML returns the latest rendered chart document, or nil when no chart
// is bound.
func (r *Renderer) HTML() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.html
}

func (r *Renderer) publish(e *engine, html []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = e
	r.html = html
}

func (r *Renderer) clear(e *engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner == e {
		r.owner = nil
		r.html = nil
	}
}

// NewFactory returns an EngineFactory producing go-echarts engines that
// publish their output through the given renderer.
func NewFactory(title string, renderer *Renderer, logger *zap.Logger) chart.EngineFactory {
	return func(ctx context.Context) (chart.Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chart engine load canceled: %w", err)
		}
		return &engine{
			title:    title,
			renderer: renderer,
			logger:   logger,
		}, nil
	}
}

type engine struct {
	title    string
	renderer *Renderer
	logger   *zap.Logger

	mu       sync.Mutex
	disposed bool
	width    int
	height   int
	candles  []chart.Candle
	markers  []chart.Marker
}

// ensure engine implements the capability contract
var _ chart.Engine = (*engine)(nil)

func (e *engine) CreateSeries() (chart.Series, error) {
	return &series{engine: e}, nil
}

func (e *engine) Resize(width, height int) {
	e.mu.Lock()
	e.width, e.height = width, height
	e.mu.Unlock()
	if err := e.render(); err != nil {
		e.logger.Warn("Chart re-render after resize failed", zap.Error(err))
	}
}

// FitContent re-renders; echarts always scales the axis to the full data
// range, so a render is equivalent to fitting.
func (e *engine) FitContent() {
	if err := e.render(); err != nil {
		e.logger.Warn("Chart re-render failed", zap.Error(err))
	}
}

func (e *engine) Dispose() {
	e.mu.Lock()
	e.disposed = true
	e.candles = nil
	e.markers = nil
	e.mu.Unlock()
	e.renderer.clear(e)
}

type series struct {
	engine *engine
}

func (s *series) SetData(candles []chart.Candle) error {
	s.engine.mu.Lock()
	s.engine.candles = candles
	s.engine.mu.Unlock()
	return s.engine.render()
}

func (s *series) SetMarkers(markers []chart.Marker) error {
	s.engine.mu.Lock()
	s.engine.markers = markers
	s.engine.mu.Unlock()
	return s.engine.render()
}

// render rebuilds the Kline document from the current data and publishes it.
func (e *engine) render() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	candles := e.candles
	markers := e.markers
	width, height := e.width, e.height
	e.mu.Unlock()

	if len(candles) == 0 {
		return nil
	}
	if width <= 0 {
		width = 960
	}
	if height <= 0 {
		height = 480
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: e.title}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", width),
			Height: fmt.Sprintf("%dpx", height),
		}),
	)

	x := make([]string, 0, len(candles))
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		x = append(x, axisLabel(c.Time))
		// echarts kline value order is open, close, low, high.
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(x).AddSeries("candles", data)

	if points := markPoints(candles, markers); len(points) > 0 {
		kline.SetSeriesOptions(charts.WithMarkPointNameCoordItemOpts(points...))
	}

	var buf bytes.Buffer
	if err := kline.Render(&buf); err != nil {
		return fmt.Errorf("failed to render kline: %w", err)
	}

	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return nil
	}
	e.renderer.publish(e, buf.Bytes())
	return nil
}

// markPoints anchors each marker to its nearest candle: above-bar markers
// to the high, others to the low.
func markPoints(candles []chart.Candle, markers []chart.Marker) []opts.MarkPointNameCoordItem {
	points := make([]opts.MarkPointNameCoordItem, 0, len(markers))
	for _, m := range markers {
		c := nearestCandle(candles, m.Time)
		value := c.Low
		if m.Position == chart.AboveBar {
			value = c.High
		}
		name := m.Text
		if m.Tooltip != "" {
			name = m.Tooltip
		}
		points = append(points, opts.MarkPointNameCoordItem{
			Name:       name,
			Coordinate: []interface{}{axisLabel(c.Time), value},
			ItemStyle:  &opts.ItemStyle{Color: m.Color},
		})
	}
	return points
}

func nearestCandle(candles []chart.Candle, t int64) chart.Candle {
	best := candles[0]
	bestDiff := absDiff(best.Time, t)
	for _, c := range candles[1:] {
		if d := absDiff(c.Time, t); d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func axisLabel(t int64) string {
	return time.Unix(t, 0).UTC().Format("2006-01-02 15:04")
}
