package promopress

import "time"

// BlogPost is the core content type stored in SQLite and rendered by templates.
type BlogPost struct {
	Title     string
	Date      string
	Tags      []string
	Summary   string
	Link      string
	Slug      string
	Content   string
	Published bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Image is an uploaded asset, resized and stored under the static uploads dir.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// Campaign is a promotional overlay campaign. Content is an opaque HTML
// payload (typically an anchor-wrapped image) handed to the client runtime
// untouched; the overlay fields are purely presentational. The suppression
// marker is keyed by Slug, so replacing a campaign re-arms the overlay for
// visitors who only saw the previous one.
type Campaign struct {
	Slug         string
	Name         string
	Content      string
	Width        string // e.g. "600px"
	Height       string // e.g. "300px"
	Position     string // display edge: "left", "right", "top", "bottom"
	Variant      int    // entrance animation variant
	Slide        int    // slide direction
	DelayMs      int    // wait after page-ready before showing; 0 = site default
	CooldownDays int    // suppression window once shown; 0 = site default
	Active       bool
	Created      string // YYYY-MM-DD
}

// Impression records one overlay display, written when the client runtime
// reports that the overlay became visible.
type Impression struct {
	ID           string // uuid
	CampaignSlug string
	ShownAt      time.Time
}
