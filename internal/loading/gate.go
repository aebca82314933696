// Package loading smooths a flickering "loading" flag so an indicator stays
// visible for a minimum duration once shown.
package loading

import (
	"sync"
	"time"
)

// DefaultMinimum is used when New is given no positive minimum.
const DefaultMinimum = 2000 * time.Millisecond

// Gate turns a raw loading flag into a display flag. Once visible, the display
// flag stays true for at least the minimum duration measured from the moment
// the raw flag went true.
type Gate struct {
	mu        sync.Mutex
	clock     Clock
	minimum   time.Duration
	loading   bool
	visible   bool
	startedAt time.Time
	timer     Timer
	gen       uint64
	closed    bool
	listeners []func(bool)

	// notifyMu serializes listener delivery; notified is the last value
	// delivered and is guarded by mu.
	notifyMu sync.Mutex
	notified bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(g *Gate) { g.clock = c }
}

// New creates a gate whose raw input starts at initial. A minimum of zero or
// less selects DefaultMinimum.
func New(initial bool, minimum time.Duration, opts ...Option) *Gate {
	if minimum <= 0 {
		minimum = DefaultMinimum
	}
	g := &Gate{clock: realClock{}, minimum: minimum}
	for _, opt := range opts {
		opt(g)
	}
	if initial {
		g.loading = true
		g.visible = true
		g.startedAt = g.clock.Now()
	}
	g.notified = g.visible
	return g
}

// Minimum returns the minimum visible duration.
func (g *Gate) Minimum() time.Duration { return g.minimum }

// Visible reports whether the loading indicator should be shown.
func (g *Gate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// OnChange registers fn to be called after every change of Visible.
// fn runs outside the gate's lock, possibly on a timer goroutine. Calls are
// never concurrent, consecutive values always differ, and the last value
// delivered matches Visible once the gate settles.
func (g *Gate) OnChange(fn func(bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Set feeds the raw loading flag.
func (g *Gate) Set(loading bool) {
	g.mu.Lock()
	if g.closed || loading == g.loading {
		g.mu.Unlock()
		return
	}
	g.loading = loading

	if loading {
		// A pending drain is interrupted: restart the cycle from now.
		g.cancelTimerLocked()
		g.startedAt = g.clock.Now()
		g.visible = true
		g.unlockAndNotify()
		return
	}

	if g.startedAt.IsZero() {
		g.mu.Unlock()
		return
	}
	remaining := g.minimum - g.clock.Now().Sub(g.startedAt)
	if remaining <= 0 {
		g.toIdleLocked()
		g.unlockAndNotify()
		return
	}
	gen := g.gen
	g.timer = g.clock.AfterFunc(remaining, func() { g.expire(gen) })
	g.mu.Unlock()
}

// Close cancels any pending timer. Later calls to Set are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cancelTimerLocked()
}

func (g *Gate) expire(gen uint64) {
	g.mu.Lock()
	if g.closed || gen != g.gen {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.toIdleLocked()
	g.unlockAndNotify()
}

func (g *Gate) toIdleLocked() {
	g.visible = false
	g.startedAt = time.Time{}
}

// cancelTimerLocked stops the pending timer and invalidates its callback in
// case it is already running.
func (g *Gate) cancelTimerLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// unlockAndNotify releases mu and delivers the current Visible value to the
// listeners if it differs from the last one delivered. A caller that finds
// delivery already in progress (another goroutine, or a listener calling Set)
// leaves the change to the active deliverer, which re-checks before leaving.
func (g *Gate) unlockAndNotify() {
	g.mu.Unlock()
	for {
		if !g.notifyMu.TryLock() {
			return
		}
		g.mu.Lock()
		visible := g.visible
		var listeners []func(bool)
		if visible != g.notified {
			g.notified = visible
			listeners = append(listeners, g.listeners...)
		}
		g.mu.Unlock()

		for _, fn := range listeners {
			fn(visible)
		}
		g.notifyMu.Unlock()

		g.mu.Lock()
		pending := g.visible != g.notified
		g.mu.Unlock()
		if !pending {
			return
		}
	}
}
