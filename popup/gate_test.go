package popup

import (
	"errors"
	"testing"
	"time"
)

// manualScheduler captures scheduled tasks so tests fire or cancel them
// deterministically.
type manualScheduler struct {
	delay     time.Duration
	fn        func()
	scheduled int
	cancelled int
}

func (m *manualScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	m.delay = d
	m.fn = fn
	m.scheduled++
	return func() { m.cancelled++ }
}

func (m *manualScheduler) fire(t *testing.T) {
	t.Helper()
	if m.fn == nil {
		t.Fatal("no task scheduled")
	}
	m.fn()
}

// recordingRenderer shows overlays immediately unless held back.
type recordingRenderer struct {
	shows   int
	overlay Overlay
	onShown func()
	hold    bool // when true, keep onShown for the test to invoke later
}

func (r *recordingRenderer) Show(o Overlay, onShown func()) {
	r.shows++
	r.overlay = o
	if r.hold {
		r.onShown = onShown
		return
	}
	onShown()
}

// countingStore wraps a MarkerStore and counts operations; it can also be
// forced to fail reads or writes.
type countingStore struct {
	inner    MarkerStore
	gets     int
	sets     int
	failGet  bool
	failSet  bool
}

func (c *countingStore) Get(key string) (string, bool, error) {
	c.gets++
	if c.failGet {
		return "", false, errors.New("storage unavailable")
	}
	return c.inner.Get(key)
}

func (c *countingStore) Set(key, value string, ttl time.Duration) error {
	c.sets++
	if c.failSet {
		return errors.New("storage unavailable")
	}
	return c.inner.Set(key, value, ttl)
}

func TestGateArmsWhenMarkerAbsent(t *testing.T) {
	store := NewMemoryStore()
	sched := &manualScheduler{}
	rend := &recordingRenderer{}

	g := NewGate(store, sched, rend, Options{Key: MarkerKey("launch")})
	g.OnPageReady()

	if g.State() != Armed {
		t.Fatalf("state = %v, want armed", g.State())
	}
	if sched.scheduled != 1 {
		t.Fatalf("scheduled = %d, want 1", sched.scheduled)
	}
	if sched.delay != DefaultDelay {
		t.Errorf("delay = %v, want %v", sched.delay, DefaultDelay)
	}
	if rend.shows != 0 {
		t.Errorf("renderer invoked before timer fired")
	}
}

func TestGateSuppressedWhenMarkerPresent(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(MarkerKey("launch"), "true", time.Hour); err != nil {
		t.Fatal(err)
	}
	sched := &manualScheduler{}

	g := NewGate(store, sched, &recordingRenderer{}, Options{Key: MarkerKey("launch")})
	g.OnPageReady()
	g.OnPageReady() // re-running the gate must stay a no-op

	if g.State() != Suppressed {
		t.Fatalf("state = %v, want suppressed", g.State())
	}
	if sched.scheduled != 0 {
		t.Errorf("scheduled = %d, want 0", sched.scheduled)
	}
}

func TestGateMarkerWrittenOnlyOnShow(t *testing.T) {
	key := MarkerKey("launch")
	store := &countingStore{inner: NewMemoryStore()}
	sched := &manualScheduler{}
	rend := &recordingRenderer{hold: true}

	g := NewGate(store, sched, rend, Options{Key: key})
	g.OnPageReady()

	// Arming alone must not write.
	if store.sets != 0 {
		t.Fatalf("marker written at arm time")
	}

	sched.fire(t)
	if g.State() != Displayed {
		t.Fatalf("state = %v, want displayed", g.State())
	}
	// Rendering started but the overlay is not visible yet.
	if store.sets != 0 {
		t.Fatalf("marker written before overlay visible")
	}

	rend.onShown()
	if g.State() != MarkerWritten {
		t.Fatalf("state = %v, want marker-written", g.State())
	}
	if store.sets != 1 {
		t.Fatalf("sets = %d, want 1", store.sets)
	}
	if _, found, _ := store.Get(key); !found {
		t.Fatal("marker absent after shown callback")
	}
}

func TestGateUnloadBeforeFireWritesNothing(t *testing.T) {
	key := MarkerKey("launch")
	store := &countingStore{inner: NewMemoryStore()}
	sched := &manualScheduler{}

	g := NewGate(store, sched, &recordingRenderer{}, Options{Key: key})
	g.OnPageReady()
	g.Unload()

	if g.State() != Cancelled {
		t.Fatalf("state = %v, want cancelled", g.State())
	}
	if sched.cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", sched.cancelled)
	}

	// A host scheduler may still fire the callback after cancellation raced;
	// the gate must ignore it.
	sched.fire(t)
	if store.sets != 0 {
		t.Fatalf("marker written despite unload")
	}
}

func TestGateFailsOpenOnReadError(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore(), failGet: true}
	sched := &manualScheduler{}

	g := NewGate(store, sched, &recordingRenderer{}, Options{Key: MarkerKey("launch")})
	g.OnPageReady()

	if g.State() != Armed {
		t.Fatalf("state = %v, want armed (fail open)", g.State())
	}
	if sched.scheduled != 1 {
		t.Errorf("scheduled = %d, want 1", sched.scheduled)
	}
}

func TestGateSwallowsWriteError(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore(), failSet: true}
	sched := &manualScheduler{}
	rend := &recordingRenderer{}

	g := NewGate(store, sched, rend, Options{Key: MarkerKey("launch")})
	g.OnPageReady()
	sched.fire(t)

	// The shown callback ran, the write failed, and nothing blew up.
	if g.State() != MarkerWritten {
		t.Fatalf("state = %v, want marker-written", g.State())
	}
	if rend.shows != 1 {
		t.Errorf("shows = %d, want 1", rend.shows)
	}
}

func TestGateSingleWritePerCooldownWindow(t *testing.T) {
	key := MarkerKey("launch")
	store := &countingStore{inner: NewMemoryStore()}

	// First page view: shown, marker written.
	sched := &manualScheduler{}
	g := NewGate(store, sched, &recordingRenderer{}, Options{Key: key})
	g.OnPageReady()
	sched.fire(t)

	// Views 2..N inside the window: suppressed, never re-armed, never re-written.
	for i := 0; i < 5; i++ {
		s := &manualScheduler{}
		next := NewGate(store, s, &recordingRenderer{}, Options{Key: key})
		next.OnPageReady()
		if next.State() != Suppressed {
			t.Fatalf("view %d: state = %v, want suppressed", i+2, next.State())
		}
		if s.scheduled != 0 {
			t.Fatalf("view %d: re-armed inside cooldown window", i+2)
		}
	}
	if store.sets != 1 {
		t.Fatalf("sets = %d, want 1", store.sets)
	}
}

func TestGatePassesOverlayThrough(t *testing.T) {
	overlay := Overlay{
		Width:    "600px",
		Height:   "300px",
		Position: "left",
		Variant:  10,
		Slide:    1,
		Content:  `<a href="/sale"><img src="/public/sale.jpg" alt="Sale"></a>`,
	}
	sched := &manualScheduler{}
	rend := &recordingRenderer{}

	g := NewGate(NewMemoryStore(), sched, rend, Options{Key: MarkerKey("sale"), Overlay: overlay})
	g.OnPageReady()
	sched.fire(t)

	if rend.overlay != overlay {
		t.Errorf("overlay = %+v, want %+v", rend.overlay, overlay)
	}
}

func TestShouldShow(t *testing.T) {
	key := MarkerKey("launch")
	store := &countingStore{inner: NewMemoryStore()}

	if !ShouldShow(store, key) {
		t.Fatal("ShouldShow = false with no marker")
	}
	if err := store.Set(key, "true", time.Hour); err != nil {
		t.Fatal(err)
	}
	if ShouldShow(store, key) {
		t.Fatal("ShouldShow = true with live marker")
	}

	store.failGet = true
	if !ShouldShow(store, key) {
		t.Fatal("ShouldShow = false on read error, want fail open")
	}
}

func TestTimerSchedulerCancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	cancel := TimerScheduler{}.Schedule(10*time.Millisecond, func() {
		fired <- struct{}{}
	})
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerSchedulerFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	TimerScheduler{}.Schedule(5*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
}
