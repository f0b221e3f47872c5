package popup

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryStoreCooldownWindow(t *testing.T) {
	// Manual clock so the 7-day window can be stepped through directly.
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	key := MarkerKey("launch")

	if err := store.Set(key, "true", DefaultCooldown); err != nil {
		t.Fatal(err)
	}

	// 6 days 23 hours in: still suppressed.
	now = now.Add(6*24*time.Hour + 23*time.Hour)
	if _, found, _ := store.Get(key); !found {
		t.Fatal("marker absent at 6d23h, want present")
	}

	// 7 days 1 hour in: expired, reads as absent.
	now = now.Add(2 * time.Hour)
	if _, found, _ := store.Get(key); found {
		t.Fatal("marker present at 7d1h, want absent")
	}

	// Expiry deletes the entry outright.
	if store.Len() != 0 {
		t.Errorf("entries = %d after expiry, want 0", store.Len())
	}
}

func TestMemoryStoreReplaceRefreshesExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	key := MarkerKey("launch")

	if err := store.Set(key, "a", time.Hour); err != nil {
		t.Fatal(err)
	}
	now = now.Add(50 * time.Minute)
	if err := store.Set(key, "b", time.Hour); err != nil {
		t.Fatal(err)
	}

	// 70 minutes after the first write the first entry would be gone, but the
	// replacement's window started fresh.
	now = now.Add(20 * time.Minute)
	v, found, _ := store.Get(key)
	if !found || v != "b" {
		t.Fatalf("Get = (%q, %v), want (\"b\", true)", v, found)
	}
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Set(MarkerKey("spring"), "true", time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Get(MarkerKey("summer")); found {
		t.Fatal("marker for a different campaign read as present")
	}
}

func TestCookieMarkerStoreSet(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/popup/launch/seen/", nil)
	store := &CookieMarkerStore{Request: req, Writer: rec}

	if err := store.Set(MarkerKey("launch"), "launch", DefaultCooldown); err != nil {
		t.Fatal(err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "popup-seen-launch" {
		t.Errorf("name = %q, want popup-seen-launch", c.Name)
	}
	if c.Value != "launch" {
		t.Errorf("value = %q, want launch", c.Value)
	}
	if c.Path != "/" {
		t.Errorf("path = %q, want /", c.Path)
	}
	if want := int(DefaultCooldown / time.Second); c.MaxAge != want {
		t.Errorf("max-age = %d, want %d", c.MaxAge, want)
	}
	if c.HttpOnly {
		t.Error("marker cookie must be readable by the client runtime")
	}
}

func TestCookieMarkerStoreGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: MarkerKey("launch"), Value: "launch"})
	store := &CookieMarkerStore{Request: req, Writer: httptest.NewRecorder()}

	v, found, err := store.Get(MarkerKey("launch"))
	if err != nil {
		t.Fatal(err)
	}
	if !found || v != "launch" {
		t.Fatalf("Get = (%q, %v), want (\"launch\", true)", v, found)
	}

	// Absence is not an error.
	_, found, err = store.Get(MarkerKey("other"))
	if err != nil {
		t.Fatalf("missing cookie returned error: %v", err)
	}
	if found {
		t.Fatal("missing cookie read as present")
	}
}
