package chart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// minHeightFloor is the smallest height a chart surface renders at.
const minHeightFloor = 220

// State is the lifecycle phase of a chart surface binding.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateBound
	StateDisposing
	// StateErrored is a per-cycle leaf: the engine failed to load or
	// construct. The next Bind re-attempts from scratch.
	StateErrored
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateBound:
		return "bound"
	case StateDisposing:
		return "disposing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ManagerConfig represents the configuration for a chart lifecycle manager.
type ManagerConfig struct {
	// Factory loads and constructs the charting engine.
	Factory EngineFactory
	// Surface is the render slot the chart binds to.
	Surface Surface
	// MinHeight overrides the default height floor when positive.
	MinHeight int
	// Logger represents the application logger.
	Logger *zap.Logger
}

// cycle is the state owned by one binding attempt. The disposed flag is
// checked after every suspension point so a superseded or torn-down cycle
// never attaches to the surface.
type cycle struct {
	disposed    bool
	engine      Engine
	unsubscribe func()
}

// Manager owns the binding of one candle series to one surface. Rebinding
// always disposes the previous cycle first: resize subscriptions are
// released before the engine instance so no resize callback can fire
// against a disposed engine.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	state   State
	cycle   *cycle
	lastErr string
}

// NewManager initializes a chart lifecycle manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("chart manager requires an engine factory")
	}
	if cfg.Surface == nil {
		return nil, fmt.Errorf("chart manager requires a surface")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = minHeightFloor
	}
	return &Manager{cfg: cfg}, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the fallback message of the last failed cycle, or "".
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Bind replaces the surface's binding with the given normalized candles and
// markers. Any previous or in-flight cycle is superseded: it observes its
// disposed flag at the next suspension point and releases its resources
// without attaching. Empty candle data unbinds the surface and is not an
// error.
func (m *Manager) Bind(ctx context.Context, candles []Candle, markers []Marker) error {
	if len(candles) == 0 {
		m.Dispose()
		return nil
	}

	cy := m.begin()

	engine, err := m.cfg.Factory(ctx)
	if err != nil {
		m.fail(cy, nil, "chart engine unavailable")
		return fmt.Errorf("failed to load chart engine: %w", err)
	}

	m.mu.Lock()
	if cy.disposed {
		m.mu.Unlock()
		engine.Dispose()
		m.cfg.Logger.Debug("Discarded stale chart engine load")
		return nil
	}
	cy.engine = engine
	m.mu.Unlock()

	series, err := engine.CreateSeries()
	if err != nil {
		m.fail(cy, engine, "chart series construction failed")
		return fmt.Errorf("failed to create series: %w", err)
	}
	if err := series.SetData(candles); err != nil {
		m.fail(cy, engine, "chart data binding failed")
		return fmt.Errorf("failed to set series data: %w", err)
	}
	if len(markers) > 0 {
		if err := series.SetMarkers(markers); err != nil {
			m.fail(cy, engine, "chart marker binding failed")
			return fmt.Errorf("failed to set markers: %w", err)
		}
	}

	resize := func() {
		w, h := m.cfg.Surface.Bounds()
		if w < 0 {
			w = 0
		}
		if h < m.cfg.MinHeight {
			h = m.cfg.MinHeight
		}
		engine.Resize(w, h)
	}
	resize()
	unsubscribe := m.cfg.Surface.SubscribeResize(resize)

	m.mu.Lock()
	if cy.disposed {
		m.mu.Unlock()
		unsubscribe()
		engine.Dispose()
		m.cfg.Logger.Debug("Discarded superseded chart binding")
		return nil
	}
	cy.unsubscribe = unsubscribe
	// Fit while still holding the lock: a concurrent supersede or teardown
	// waits here and disposes only after the fit completes.
	engine.FitContent()
	m.state = StateBound
	m.mu.Unlock()

	m.cfg.Logger.Debug("Chart bound",
		zap.Int("candles", len(candles)),
		zap.Int("markers", len(markers)))
	return nil
}

// Dispose tears the current binding down: resize subscription first, then
// the engine. Safe to call in any state, idempotent.
func (m *Manager) Dispose() {
	m.mu.Lock()
	cy := m.cycle
	m.cycle = nil
	var engine Engine
	var unsubscribe func()
	if cy != nil && !cy.disposed {
		cy.disposed = true
		engine = cy.engine
		unsubscribe = cy.unsubscribe
		m.state = StateDisposing
	}
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if engine != nil {
		engine.Dispose()
	}

	m.mu.Lock()
	if m.cycle == nil {
		m.state = StateUninitialized
	}
	m.mu.Unlock()
}

// begin supersedes the current cycle, releases its resources and installs
// a fresh one in StateInitializing.
func (m *Manager) begin() *cycle {
	m.mu.Lock()
	old := m.cycle
	var engine Engine
	var unsubscribe func()
	if old != nil && !old.disposed {
		old.disposed = true
		engine = old.engine
		unsubscribe = old.unsubscribe
		m.state = StateDisposing
	}
	cy := &cycle{}
	m.cycle = cy
	m.lastErr = ""
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if engine != nil {
		engine.Dispose()
	}

	m.mu.Lock()
	if m.cycle == cy {
		m.state = StateInitializing
	}
	m.mu.Unlock()
	return cy
}

// fail moves a still-current cycle to the Errored leaf with a user-facing
// fallback message and releases the engine if one was constructed.
func (m *Manager) fail(cy *cycle, engine Engine, msg string) {
	m.mu.Lock()
	if m.cycle == cy && !cy.disposed {
		cy.disposed = true
		cy.engine = nil
		m.state = StateErrored
		m.lastErr = msg
	}
	m.mu.Unlock()

	if engine != nil {
		engine.Dispose()
	}
	m.cfg.Logger.Warn("Chart binding failed", zap.String("reason", msg))
}
