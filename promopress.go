// Package promopress is a blog publishing engine built with Go, Echo, and
// templ, with built-in promotional overlay campaigns. It provides blog CRUD,
// an admin dashboard, RSS, sitemap, and a cookie-gated popup subsystem that
// shows the active campaign at most once per cooldown window per visitor.
//
// Users provide their own templ templates via the ViewFuncs struct, and
// promopress handles all the handler logic, middleware, and database
// operations. The popup decision core lives in the popup subpackage and is
// usable on its own.
package promopress

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home             func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	HomePartial      func(posts []BlogPost, activeTag string, tags []string, siteURL string) templ.Component
	BlogSection      func(posts []BlogPost, activeTag string, tags []string) templ.Component
	Post             func(post BlogPost, posts []BlogPost, siteURL string) templ.Component
	PostPartial      func(post BlogPost, posts []BlogPost, siteURL string) templ.Component
	AdminLogin       func(showError bool, csrfToken string) templ.Component
	AdminDashboard   func(posts []BlogPost, message string, csrfToken string) templ.Component
	AdminFormPartial func(post BlogPost, csrfToken string) templ.Component
	AdminImages      func(images []Image, csrfToken string) templ.Component
	AdminCampaigns   func(campaigns []Campaign, impressions map[string]int, message string, csrfToken string) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

// App is the central promopress application. It wires together the store,
// caches, handlers, middleware, the popup subsystem, and user-provided
// templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Cache     *PostCache
	Campaigns *CampaignCache
	Views     ViewFuncs

	loginLimiter  *RateLimiter
	popupLimiter  *RateLimiter
	customRoutes  []func(*App)
	staticDir     string
	popupDisabled bool
	stopCleanup   func()
}

// New creates a new promopress App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, caches, middleware, routes, and starts the server.
func (a *App) Start() error {
	// Validate required config
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("promopress: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("promopress: SessionSecret is required")
	}

	// Initialize store
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("promopress: init store: %w", err)
	}
	a.Store = store

	// Initialize caches
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.Campaigns = NewCampaignCache(a.Store, a.Config.PostCacheTTL)

	// Initialize limiters
	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.popupLimiter = NewRateLimiter(30, time.Minute)

	// Impression retention cleanup
	if !a.popupDisabled {
		a.stopCleanup = a.Store.StartCleanupScheduler(a.Config.ImpressionRetentionDays, 24*time.Hour)
	}

	// Setup middleware
	a.setupMiddleware()

	// Setup routes
	a.setupRoutes()

	// Apply custom routes
	for _, fn := range a.customRoutes {
		fn(a)
	}

	// Start server
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Serve the embedded popup client runtime under /public/; everything else
	// under /public/ falls through to the user's static dir.
	e.GET("/public/popup.js", a.handlePopupScript)

	// User's static assets
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)

	// Popup API: the server-side half of the display gate. The config check
	// runs per page view; the seen endpoint is the overlay's onShown callback
	// arriving over HTTP.
	if !a.popupDisabled {
		e.GET("/api/popup/", a.handlePopupConfig)
		e.POST("/api/popup/:slug/seen/", a.handlePopupSeen)
	}

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/post/:slug/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:slug/", a.handleAdminDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)
	e.GET("/admin/campaigns/", a.handleAdminCampaigns)
	e.POST("/admin/campaigns/save/", a.handleAdminCampaignSave)
	e.DELETE("/admin/campaigns/:slug/", a.handleAdminCampaignDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
// This is a convenience function for use in scaffolded main.go files.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("promopress: required environment variable %s is not set", key)
	}
	return v
}
