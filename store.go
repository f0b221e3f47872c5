package promopress

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database and provides CRUD operations for posts,
// campaigns, images, and popup impressions.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent read/write access, set a busy timeout
	// so writers wait instead of returning SQLITE_BUSY immediately, and tune
	// performance: synchronous=NORMAL is safe with WAL and avoids an fsync
	// per transaction; larger cache and mmap reduce disk I/O.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL,
    summary TEXT NOT NULL,
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS campaigns (
    slug TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    content TEXT NOT NULL,
    width TEXT NOT NULL DEFAULT '600px',
    height TEXT NOT NULL DEFAULT '300px',
    position TEXT NOT NULL DEFAULT 'left',
    variant INTEGER NOT NULL DEFAULT 10,
    slide INTEGER NOT NULL DEFAULT 1,
    delay_ms INTEGER NOT NULL DEFAULT 0,
    cooldown_days INTEGER NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 0,
    created TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS impressions (
    id TEXT PRIMARY KEY,
    campaign_slug TEXT NOT NULL,
    shown_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_impressions_shown_at ON impressions(shown_at);
CREATE INDEX IF NOT EXISTS idx_impressions_campaign ON impressions(campaign_slug);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate applies incremental schema migrations based on a version stored in
// the settings table.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}

	if version < 1 {
		version = 1
	}

	return s.SetSetting("schema_version", strconv.Itoa(version))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ListPosts returns all published posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(tag string) ([]BlogPost, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.Query(`SELECT slug, title, date, tags, summary, content, published FROM posts WHERE published = 1 ORDER BY date DESC`)
	} else {
		normalizedTag := strings.ToLower(strings.TrimSpace(tag))
		rows, err = s.db.Query(`SELECT slug, title, date, tags, summary, content, published FROM posts WHERE published = 1 AND instr(lower(tags), ',' || ? || ',') > 0 ORDER BY date DESC`, normalizedTag)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(rows *sql.Rows) (BlogPost, error) {
	var slug, title, date, tags, summary, content string
	var published int
	if err := rows.Scan(&slug, &title, &date, &tags, &summary, &content, &published); err != nil {
		return BlogPost{}, err
	}
	return BlogPost{
		Slug:      slug,
		Title:     title,
		Date:      date,
		Tags:      ParseTags(tags),
		Summary:   summary,
		Content:   content,
		Link:      "/blog/" + slug,
		Published: published == 1,
	}, nil
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM posts WHERE published = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []string
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(slug string) (BlogPost, error) {
	return s.getPost(slug, true)
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(slug string) (BlogPost, error) {
	return s.getPost(slug, false)
}

func (s *Store) getPost(slug string, publishedOnly bool) (BlogPost, error) {
	query := `SELECT title, date, tags, summary, content, published FROM posts WHERE slug = ?`
	if publishedOnly {
		query += ` AND published = 1`
	}
	var title, date, tags, summary, content string
	var published int
	err := s.db.QueryRow(query, slug).
		Scan(&title, &date, &tags, &summary, &content, &published)
	if err != nil {
		return BlogPost{}, err
	}
	return BlogPost{
		Slug:      slug,
		Title:     title,
		Date:      date,
		Tags:      ParseTags(tags),
		Summary:   summary,
		Content:   content,
		Link:      "/blog/" + slug,
		Published: published == 1,
	}, nil
}

// ListAllPosts returns every post (published and drafts) ordered by date descending.
func (s *Store) ListAllPosts() ([]BlogPost, error) {
	rows, err := s.db.Query(`SELECT slug, title, date, tags, summary, content, published FROM posts ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SavePost upserts a blog post. Tags are normalized to lowercase.
func (s *Store) SavePost(p BlogPost) error {
	normalizedTags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		normalizedTags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	tagString := "," + strings.Join(normalizedTags, ",") + ","
	published := 0
	if p.Published {
		published = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO posts (slug, title, date, tags, summary, content, published) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Date, tagString, p.Summary, p.Content, published)
	return err
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ListCampaigns returns every campaign ordered by creation date descending.
func (s *Store) ListCampaigns() ([]Campaign, error) {
	rows, err := s.db.Query(`SELECT slug, name, content, width, height, position, variant, slide, delay_ms, cooldown_days, active, created FROM campaigns ORDER BY created DESC, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetCampaign returns a single campaign by slug.
func (s *Store) GetCampaign(slug string) (Campaign, error) {
	row := s.db.QueryRow(`SELECT slug, name, content, width, height, position, variant, slide, delay_ms, cooldown_days, active, created FROM campaigns WHERE slug = ?`, slug)
	return scanCampaign(row.Scan)
}

// ActiveCampaign returns the newest active campaign, or ErrNotFound when no
// campaign is active.
func (s *Store) ActiveCampaign() (Campaign, error) {
	row := s.db.QueryRow(`SELECT slug, name, content, width, height, position, variant, slide, delay_ms, cooldown_days, active, created FROM campaigns WHERE active = 1 ORDER BY created DESC, slug LIMIT 1`)
	return scanCampaign(row.Scan)
}

func scanCampaign(scan func(dest ...any) error) (Campaign, error) {
	var c Campaign
	var active int
	if err := scan(&c.Slug, &c.Name, &c.Content, &c.Width, &c.Height, &c.Position, &c.Variant, &c.Slide, &c.DelayMs, &c.CooldownDays, &active, &c.Created); err != nil {
		return Campaign{}, err
	}
	c.Active = active == 1
	return c, nil
}

// SaveCampaign upserts a campaign.
func (s *Store) SaveCampaign(c Campaign) error {
	if c.Width == "" {
		c.Width = "600px"
	}
	if c.Height == "" {
		c.Height = "300px"
	}
	if c.Position == "" {
		c.Position = "left"
	}
	if c.Created == "" {
		c.Created = time.Now().Format("2006-01-02")
	}
	active := 0
	if c.Active {
		active = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO campaigns (slug, name, content, width, height, position, variant, slide, delay_ms, cooldown_days, active, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Slug, c.Name, c.Content, c.Width, c.Height, c.Position, c.Variant, c.Slide, c.DelayMs, c.CooldownDays, active, c.Created)
	return err
}

// DeleteCampaign removes a campaign by slug. Its impressions are kept for
// reporting until retention cleanup ages them out.
func (s *Store) DeleteCampaign(slug string) error {
	_, err := s.db.Exec(`DELETE FROM campaigns WHERE slug = ?`, slug)
	return err
}

// SaveImpression stores one overlay display event.
func (s *Store) SaveImpression(imp Impression) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO impressions (id, campaign_slug, shown_at) VALUES (?, ?, ?)`,
		imp.ID, imp.CampaignSlug, imp.ShownAt.UTC())
	return err
}

// CountImpressions returns the number of recorded displays per campaign slug.
func (s *Store) CountImpressions() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT campaign_slug, COUNT(*) FROM impressions GROUP BY campaign_slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slug string
		var n int
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, err
		}
		counts[slug] = n
	}
	return counts, rows.Err()
}

// CleanupOldImpressions deletes impressions older than retentionDays.
func (s *Store) CleanupOldImpressions(retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	_, err := s.db.Exec(`DELETE FROM impressions WHERE shown_at < ?`, cutoff)
	return err
}

// StartCleanupScheduler runs periodic cleanup of old impressions. Returns a
// stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldImpressions(retentionDays); err != nil {
					fmt.Printf("impression cleanup error: %v\n", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

// ListImages returns all uploaded images, newest first.
func (s *Store) ListImages() ([]Image, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveImage records an uploaded image's metadata.
func (s *Store) SaveImage(img Image) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// DeleteImage removes an image record by filename.
func (s *Store) DeleteImage(filename string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE filename = ?`, filename)
	return err
}
