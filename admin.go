package promopress

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	post, err := a.Store.GetPostAny(slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.AdminFormPartial(post, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Slug+is+required.+Add+a+title+or+slug.")
	}
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Invalid+date+format.+Use+YYYY-MM-DD.")
	}
	tags := strings.Split(c.FormValue("tags"), ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	tags = FilterEmpty(tags)
	summary := c.FormValue("summary")
	content := c.FormValue("content")
	published := c.FormValue("published") != ""
	if err := a.Store.SavePost(BlogPost{
		Slug:      slug,
		Title:     title,
		Date:      date,
		Tags:      tags,
		Summary:   summary,
		Content:   content,
		Published: published,
	}); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	if err := a.Store.DeletePost(slug); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}

func (a *App) handleAdminCampaigns(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return a.renderCampaignList(c, c.QueryParam("msg"))
}

func (a *App) handleAdminCampaignSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	name := strings.TrimSpace(c.FormValue("name"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/campaigns/?msg=Slug+is+required.+Add+a+name+or+slug.")
	}
	campaign := Campaign{
		Slug:         slug,
		Name:         name,
		Content:      c.FormValue("content"),
		Width:        strings.TrimSpace(c.FormValue("width")),
		Height:       strings.TrimSpace(c.FormValue("height")),
		Position:     strings.TrimSpace(c.FormValue("position")),
		Variant:      formInt(c, "variant"),
		Slide:        formInt(c, "slide"),
		DelayMs:      formInt(c, "delay_ms"),
		CooldownDays: formInt(c, "cooldown_days"),
		Active:       c.FormValue("active") != "",
	}
	// Preserve the creation date across edits; SaveCampaign stamps new rows.
	if existing, err := a.Store.GetCampaign(slug); err == nil {
		campaign.Created = existing.Created
	}
	if err := a.Store.SaveCampaign(campaign); err != nil {
		return err
	}
	a.Campaigns.Invalidate()
	return a.renderCampaignList(c, "saved")
}

func (a *App) handleAdminCampaignDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	slug := c.Param("slug")
	if err := a.Store.DeleteCampaign(slug); err != nil {
		return err
	}
	a.Campaigns.Invalidate()
	return a.renderCampaignList(c, "deleted")
}

func (a *App) renderCampaignList(c echo.Context, msg string) error {
	campaigns, err := a.Store.ListCampaigns()
	if err != nil {
		return err
	}
	impressions, err := a.Store.CountImpressions()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminCampaigns(campaigns, impressions, msg, CsrfToken(c)))
}

func formInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(c.FormValue(name)))
	return n
}
