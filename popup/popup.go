// Package popup implements cookie-gated, once-per-cooldown display
// suppression for promotional overlays.
//
// A Gate decides, once per page view, whether a promotional overlay should be
// shown: it reads a durable suppression marker, and if the marker is absent it
// arms a cancellable one-shot timer. When the timer fires the host's overlay
// renderer is invoked, and the moment the overlay becomes visible the marker
// is written back with the cooldown TTL so subsequent page views stay quiet
// until the marker expires.
//
// The gate never blocks and never fails the page: storage read errors are
// treated as "marker absent" (the overlay is shown), write errors are silently
// dropped (worst case the overlay reappears on the next view).
package popup

import "time"

// Default timing for gates that don't override them.
const (
	DefaultDelay    = 30 * time.Second
	DefaultCooldown = 7 * 24 * time.Hour
)

// markerPrefix namespaces suppression cookies per campaign so a new campaign
// is never hidden by the marker of an old one.
const markerPrefix = "popup-seen-"

// MarkerKey returns the suppression marker key for a campaign slug.
func MarkerKey(slug string) string {
	return markerPrefix + slug
}

// MarkerStore is durable, per-visitor keyed storage with TTL semantics.
// Entries older than their TTL must read as absent; the store, not the gate,
// enforces expiry. Implementations are not required to be safe for use from
// multiple goroutines unless documented otherwise.
type MarkerStore interface {
	// Get returns the stored value for key and whether a non-expired entry
	// exists. An error is a storage failure, not absence.
	Get(key string) (value string, found bool, err error)

	// Set stores value under key, replacing any prior entry, expiring after ttl.
	Set(key, value string, ttl time.Duration) error
}

// Overlay is the purely presentational configuration handed to a Renderer.
// The gate passes it through untouched; none of it affects the decision to show.
type Overlay struct {
	Width    string
	Height   string
	Position string // display edge: "left", "right", "top", "bottom"
	Variant  int    // entrance animation variant
	Slide    int    // slide direction
	Content  string // opaque HTML payload
}

// Renderer is the host's overlay-rendering primitive. Show must invoke
// onShown exactly once, at the moment the overlay becomes visible to the
// user, not at scheduling time. A renderer that fails to show simply never
// calls onShown; the gate treats that as "try again next page view".
type Renderer interface {
	Show(o Overlay, onShown func())
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(o Overlay, onShown func())

// Show calls f.
func (f RendererFunc) Show(o Overlay, onShown func()) { f(o, onShown) }
