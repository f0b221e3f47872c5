package promopress

import "time"

// SiteConfig holds all configuration for a promopress site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL time.Duration // Post cache TTL (default 5min)

	// Popup campaign settings. Per-campaign delay/cooldown override these
	// defaults when set on the campaign row. The subsystem is on by default;
	// see WithoutPopup.
	PopupDelay              time.Duration // Default wait after page-ready (default 30s)
	PopupCooldown           time.Duration // Default suppression window once shown (default 7 days)
	ImpressionRetentionDays int           // Impressions older than this are purged (default 365)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PopupDelay == 0 {
		c.PopupDelay = 30 * time.Second
	}
	if c.PopupCooldown == 0 {
		c.PopupCooldown = 7 * 24 * time.Hour
	}
	if c.ImpressionRetentionDays == 0 {
		c.ImpressionRetentionDays = 365
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithoutPopup disables the popup subsystem: no API routes, no client
// runtime, no impression cleanup.
func WithoutPopup() Option {
	return func(a *App) {
		a.popupDisabled = true
	}
}
