package popup

import (
	"net/http"
	"time"
)

// CookieMarkerStore is a MarkerStore over one HTTP request/response pair.
// Reads come from the request's Cookie header, writes become Set-Cookie
// headers with MaxAge as the TTL, so expiry is enforced by the browser's
// cookie jar. Create one per request; it is not reusable across requests.
//
// The cookie is intentionally not HttpOnly: the client runtime reads it to
// skip the config fetch entirely on suppressed views.
type CookieMarkerStore struct {
	Request *http.Request
	Writer  http.ResponseWriter
	Path    string // cookie path scope, default "/"
	Secure  bool   // set for HTTPS sites
}

// Get reports whether the marker cookie is present on the request. A missing
// cookie is absence, not an error.
func (s *CookieMarkerStore) Get(key string) (string, bool, error) {
	c, err := s.Request.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false, nil
	}
	return c.Value, true, nil
}

// Set writes the marker cookie, replacing any prior value and expiry.
func (s *CookieMarkerStore) Set(key, value string, ttl time.Duration) error {
	path := s.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(s.Writer, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Secure,
	})
	return nil
}
