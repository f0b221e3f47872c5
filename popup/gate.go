package popup

import (
	"sync"
	"time"
)

// State tracks a gate's progress through a single page view.
type State int

const (
	// Unchecked is the initial state of every page view.
	Unchecked State = iota
	// Suppressed means a non-expired marker was found; terminal for this view.
	Suppressed
	// Armed means the display timer is running.
	Armed
	// Displayed means the overlay has been handed to the renderer.
	Displayed
	// MarkerWritten means the shown callback fired and the marker was stored.
	MarkerWritten
	// Cancelled means the page unloaded while the timer was still armed.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Suppressed:
		return "suppressed"
	case Armed:
		return "armed"
	case Displayed:
		return "displayed"
	case MarkerWritten:
		return "marker-written"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Options configures a Gate. Zero values fall back to the package defaults;
// only Key is required.
type Options struct {
	Key      string        // marker key, e.g. MarkerKey("spring-sale")
	Value    string        // marker value; opaque, defaults to "true"
	Delay    time.Duration // wait after page-ready before showing (default 30s)
	Cooldown time.Duration // marker TTL once shown (default 7 days)
	Overlay  Overlay       // presentational config passed through to the renderer
}

// Gate runs the suppression decision for one page view. Create a fresh Gate
// per view; a gate never re-evaluates once it has left Unchecked.
type Gate struct {
	store MarkerStore
	sched Scheduler
	rend  Renderer
	opts  Options

	mu     sync.Mutex
	state  State
	cancel CancelFunc
}

// NewGate creates a gate over the given collaborators.
func NewGate(store MarkerStore, sched Scheduler, rend Renderer, opts Options) *Gate {
	if opts.Value == "" {
		opts.Value = "true"
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	return &Gate{store: store, sched: sched, rend: rend, opts: opts}
}

// State returns the gate's current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// OnPageReady is the single entry point, called once by the host when the
// page is ready. If a non-expired marker exists the gate goes quiet;
// otherwise it arms the display timer. Calling it again is a no-op.
func (g *Gate) OnPageReady() {
	g.mu.Lock()
	if g.state != Unchecked {
		g.mu.Unlock()
		return
	}

	// A read error fails open: a broken store must never permanently
	// suppress the overlay, so it reads as "marker absent".
	if _, found, err := g.store.Get(g.opts.Key); err == nil && found {
		g.state = Suppressed
		g.mu.Unlock()
		return
	}

	g.state = Armed
	g.cancel = g.sched.Schedule(g.opts.Delay, g.display)
	g.mu.Unlock()
}

// Unload cancels a pending display. The marker stays unwritten, so the
// visitor is re-evaluated fresh on the next page view. Called on page unload
// or test teardown; a no-op in any state but Armed.
func (g *Gate) Unload() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Armed {
		return
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.state = Cancelled
}

// display runs when the timer fires. The marker is written by markShown, not
// here: scheduling and even rendering must not suppress future views until
// the overlay has actually become visible.
func (g *Gate) display() {
	g.mu.Lock()
	if g.state != Armed {
		g.mu.Unlock()
		return
	}
	g.state = Displayed
	g.mu.Unlock()

	g.rend.Show(g.opts.Overlay, g.markShown)
}

// markShown is the renderer's completion callback. Write failures are
// swallowed: the overlay reappearing on every view is degraded but safe.
func (g *Gate) markShown() {
	g.mu.Lock()
	if g.state != Displayed {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	_ = g.store.Set(g.opts.Key, g.opts.Value, g.opts.Cooldown)

	g.mu.Lock()
	g.state = MarkerWritten
	g.mu.Unlock()
}

// ShouldShow is the read-only half of the gate, for hosts that run the check
// server-side and leave the timer to a client runtime. It reports whether the
// overlay should be scheduled for this view, with the same fail-open
// semantics as OnPageReady.
func ShouldShow(store MarkerStore, key string) bool {
	_, found, err := store.Get(key)
	return err != nil || !found
}
