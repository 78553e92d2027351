package generic

import (
	"sync"
	"time"
)

// =============================================================================
// TICKER - periodic tick source with a single subscriber
// =============================================================================

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

// NewTicker is the production TickerFactory backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualTicker fires only when Tick is called. Used in tests.
// Each ticker handed out by Factory re-arms it, so one ManualTicker can
// serve several start/stop cycles.
type ManualTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped chan struct{}
}

func NewManualTicker() *ManualTicker {
	m := &ManualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	close(m.stopped)
	return m
}

// Factory returns a TickerFactory that re-arms and hands out this ticker.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker {
		m.mu.Lock()
		m.stopped = make(chan struct{})
		m.mu.Unlock()
		return m
	}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
	}
}

// Tick delivers t and blocks until the receiver has taken it.
// Returns false if the ticker is stopped.
func (m *ManualTicker) Tick(t time.Time) bool {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	select {
	case m.ch <- t:
		return true
	case <-stopped:
		return false
	}
}

// Stopped reports whether the ticker is currently stopped.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}
