package promopress

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eringen/promopress/popup"
)

func (a *App) handleHome(c echo.Context) error {
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	if c.Request().Header.Get("HX-Request") == "true" {
		partial := c.QueryParam("partial")
		switch partial {
		case "blog":
			return Render(c, a.Views.BlogSection(posts, tag, tags))
		case "home":
			return Render(c, a.Views.HomePartial(posts, tag, tags, a.Config.URL))
		}
	}
	return Render(c, a.Views.Home(posts, tag, tags, a.Config.URL))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Cache.GetPost(slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	if c.Request().Header.Get("HX-Request") == "true" && c.QueryParam("partial") == "post" {
		return Render(c, a.Views.PostPartial(post, posts, a.Config.URL))
	}
	return Render(c, a.Views.Post(post, posts, a.Config.URL))
}

// popupConfig is the wire form of the gate decision. When Show is false the
// remaining fields are omitted.
type popupConfig struct {
	Show     bool   `json:"show"`
	Slug     string `json:"slug,omitempty"`
	DelayMs  int    `json:"delayMs,omitempty"`
	Width    string `json:"width,omitempty"`
	Height   string `json:"height,omitempty"`
	Position string `json:"position,omitempty"`
	Variant  int    `json:"variant,omitempty"`
	Slide    int    `json:"slide,omitempty"`
	Content  string `json:"content,omitempty"`
}

// handlePopupConfig runs the read half of the display gate server-side: if
// the visitor carries a live suppression marker for the active campaign, the
// client runtime is told to stay quiet; otherwise it receives the overlay
// configuration and arms its timer.
func (a *App) handlePopupConfig(c echo.Context) error {
	campaign, found, err := a.Campaigns.Active()
	if err != nil {
		// A broken campaign store must not break the page; the overlay just
		// doesn't show this view.
		c.Logger().Errorf("popup: active campaign lookup: %v", err)
		return c.JSON(http.StatusOK, popupConfig{Show: false})
	}
	if !found {
		return c.JSON(http.StatusOK, popupConfig{Show: false})
	}

	markers := &popup.CookieMarkerStore{
		Request: c.Request(),
		Writer:  c.Response(),
		Secure:  a.Config.CookieSecure,
	}
	if !popup.ShouldShow(markers, popup.MarkerKey(campaign.Slug)) {
		return c.JSON(http.StatusOK, popupConfig{Show: false})
	}

	delayMs := campaign.DelayMs
	if delayMs <= 0 {
		delayMs = int(a.Config.PopupDelay / time.Millisecond)
	}
	return c.JSON(http.StatusOK, popupConfig{
		Show:     true,
		Slug:     campaign.Slug,
		DelayMs:  delayMs,
		Width:    campaign.Width,
		Height:   campaign.Height,
		Position: campaign.Position,
		Variant:  campaign.Variant,
		Slide:    campaign.Slide,
		Content:  campaign.Content,
	})
}

// handlePopupSeen is the overlay's onShown completion callback arriving over
// HTTP. It writes the suppression marker cookie with the campaign's cooldown
// and records an impression. The marker is written here, at display time,
// never at config time. A visitor who navigates away before the delay
// elapses is re-evaluated fresh on the next page view.
func (a *App) handlePopupSeen(c echo.Context) error {
	if !a.popupLimiter.Allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	slug := c.Param("slug")
	campaign, err := a.Store.GetCampaign(slug)
	if err != nil {
		if err == ErrNotFound {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}

	cooldown := time.Duration(campaign.CooldownDays) * 24 * time.Hour
	if cooldown <= 0 {
		cooldown = a.Config.PopupCooldown
	}
	markers := &popup.CookieMarkerStore{
		Request: c.Request(),
		Writer:  c.Response(),
		Secure:  a.Config.CookieSecure,
	}
	// A failed marker write only means the overlay may reappear next view.
	_ = markers.Set(popup.MarkerKey(campaign.Slug), campaign.Slug, cooldown)

	imp := Impression{
		ID:           uuid.NewString(),
		CampaignSlug: campaign.Slug,
		ShownAt:      time.Now().UTC(),
	}
	if err := a.Store.SaveImpression(imp); err != nil {
		c.Logger().Errorf("popup: save impression: %v", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// handlePopupScript serves the embedded client runtime.
func (a *App) handlePopupScript(c echo.Context) error {
	script, err := EmbeddedAssets.ReadFile("embedded/popup.js")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", script)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
