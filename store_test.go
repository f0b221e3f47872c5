package promopress

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_blog.db")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(path)
	})
	return s
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)

	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	ver, err := s.GetSetting("schema_version")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if ver != "1" {
		t.Errorf("schema_version = %q, want \"1\"", ver)
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)

	post := BlogPost{
		Slug:      "test-post",
		Title:     "Test Post",
		Date:      "2024-01-15",
		Tags:      []string{"go", "testing"},
		Summary:   "A test post summary",
		Content:   "# Test Content\n\nThis is test content.",
		Published: true,
	}

	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost("test-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Link != "/blog/test-post" {
		t.Errorf("Link = %q, want %q", got.Link, "/blog/test-post")
	}
	if !got.Published {
		t.Error("Published should be true")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "testing" {
		t.Errorf("Tags = %v, want [go testing]", got.Tags)
	}
}

func TestGetPostUnpublished(t *testing.T) {
	s := setupTestStore(t)

	post := BlogPost{
		Slug:      "unpublished-post",
		Title:     "Unpublished Post",
		Date:      "2024-01-01",
		Tags:      []string{"draft"},
		Summary:   "Draft summary",
		Content:   "Draft content",
		Published: false,
	}

	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	// GetPost should not find unpublished posts
	if _, err := s.GetPost("unpublished-post"); err != sql.ErrNoRows {
		t.Errorf("GetPost should return ErrNoRows for unpublished, got %v", err)
	}

	// GetPostAny should find unpublished posts
	got, err := s.GetPostAny("unpublished-post")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if got.Published {
		t.Error("Published should be false")
	}
}

func TestListPosts(t *testing.T) {
	s := setupTestStore(t)

	posts := []BlogPost{
		{Slug: "post-1", Title: "Post 1", Date: "2024-01-01", Tags: []string{"go"}, Summary: "s1", Content: "c1", Published: true},
		{Slug: "post-2", Title: "Post 2", Date: "2024-01-02", Tags: []string{"go", "web"}, Summary: "s2", Content: "c2", Published: true},
		{Slug: "post-3", Title: "Post 3", Date: "2024-01-03", Tags: []string{"rust"}, Summary: "s3", Content: "c3", Published: true},
		{Slug: "post-4", Title: "Post 4", Date: "2024-01-04", Tags: []string{"go"}, Summary: "s4", Content: "c4", Published: false},
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("ListPosts count = %d, want 3 (excluding unpublished)", len(got))
	}
	if got[0].Slug != "post-3" {
		t.Errorf("first post should be post-3 (latest), got %s", got[0].Slug)
	}

	got, err = s.ListPosts("go")
	if err != nil {
		t.Fatalf("ListPosts with tag failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListPosts(go) count = %d, want 2", len(got))
	}
}

func TestListTags(t *testing.T) {
	s := setupTestStore(t)

	posts := []BlogPost{
		{Slug: "p1", Title: "P1", Date: "2024-01-01", Tags: []string{"Go", "Web"}, Summary: "s1", Content: "c1", Published: true},
		{Slug: "p2", Title: "P2", Date: "2024-01-02", Tags: []string{"go", "api"}, Summary: "s2", Content: "c2", Published: true},
		{Slug: "p3", Title: "P3", Date: "2024-01-03", Tags: []string{"rust"}, Summary: "s3", Content: "c3", Published: false},
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	expected := []string{"api", "go", "web"}
	if len(got) != len(expected) {
		t.Fatalf("ListTags = %v, want %v", got, expected)
	}
	for i, tag := range expected {
		if got[i] != tag {
			t.Errorf("ListTags[%d] = %q, want %q", i, got[i], tag)
		}
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)

	post := BlogPost{Slug: "to-delete", Title: "To Delete", Date: "2024-01-01", Tags: []string{"delete"}, Summary: "s", Content: "c", Published: true}
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.DeletePost("to-delete"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost("to-delete"); err != sql.ErrNoRows {
		t.Errorf("post should not exist after delete, got err: %v", err)
	}

	// Deleting a nonexistent post is not an error
	if err := s.DeletePost("nonexistent"); err != nil {
		t.Errorf("DeletePost on nonexistent should not error, got: %v", err)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{",", nil},
		{",go,", []string{"go"}},
		{",go,web,", []string{"go", "web"}},
		{",go, web ,rust,", []string{"go", "web", "rust"}},
	}

	for _, tt := range tests {
		got := ParseTags(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSaveAndGetCampaign(t *testing.T) {
	s := setupTestStore(t)

	campaign := Campaign{
		Slug:         "spring-sale",
		Name:         "Spring Sale",
		Content:      `<a href="/sale"><img src="/public/uploads/sale.jpg" alt="Spring Sale"></a>`,
		Width:        "600px",
		Height:       "300px",
		Position:     "left",
		Variant:      10,
		Slide:        1,
		DelayMs:      30000,
		CooldownDays: 7,
		Active:       true,
		Created:      "2024-03-01",
	}

	if err := s.SaveCampaign(campaign); err != nil {
		t.Fatalf("SaveCampaign failed: %v", err)
	}

	got, err := s.GetCampaign("spring-sale")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got != campaign {
		t.Errorf("GetCampaign = %+v, want %+v", got, campaign)
	}
}

func TestSaveCampaignDefaults(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveCampaign(Campaign{Slug: "bare", Name: "Bare", Content: "<p>hi</p>"}); err != nil {
		t.Fatalf("SaveCampaign failed: %v", err)
	}
	got, err := s.GetCampaign("bare")
	if err != nil {
		t.Fatalf("GetCampaign failed: %v", err)
	}
	if got.Width != "600px" || got.Height != "300px" || got.Position != "left" {
		t.Errorf("presentational defaults not applied: %+v", got)
	}
	if got.Created == "" {
		t.Error("Created should be stamped on save")
	}
}

func TestActiveCampaign(t *testing.T) {
	s := setupTestStore(t)

	// No campaigns at all
	if _, err := s.ActiveCampaign(); err != ErrNotFound {
		t.Fatalf("ActiveCampaign with no rows = %v, want ErrNotFound", err)
	}

	campaigns := []Campaign{
		{Slug: "old-active", Name: "Old", Content: "a", Active: true, Created: "2024-01-01"},
		{Slug: "inactive", Name: "Inactive", Content: "b", Active: false, Created: "2024-06-01"},
		{Slug: "new-active", Name: "New", Content: "c", Active: true, Created: "2024-03-01"},
	}
	for _, c := range campaigns {
		if err := s.SaveCampaign(c); err != nil {
			t.Fatalf("SaveCampaign failed: %v", err)
		}
	}

	got, err := s.ActiveCampaign()
	if err != nil {
		t.Fatalf("ActiveCampaign failed: %v", err)
	}
	if got.Slug != "new-active" {
		t.Errorf("ActiveCampaign = %s, want new-active (newest active)", got.Slug)
	}
}

func TestDeleteCampaign(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveCampaign(Campaign{Slug: "gone", Name: "Gone", Content: "x", Active: true}); err != nil {
		t.Fatalf("SaveCampaign failed: %v", err)
	}
	if err := s.DeleteCampaign("gone"); err != nil {
		t.Fatalf("DeleteCampaign failed: %v", err)
	}
	if _, err := s.GetCampaign("gone"); err != sql.ErrNoRows {
		t.Errorf("campaign should not exist after delete, got err: %v", err)
	}
}

func TestImpressions(t *testing.T) {
	s := setupTestStore(t)

	imps := []Impression{
		{ID: "a", CampaignSlug: "spring-sale", ShownAt: time.Now().UTC()},
		{ID: "b", CampaignSlug: "spring-sale", ShownAt: time.Now().UTC()},
		{ID: "c", CampaignSlug: "launch", ShownAt: time.Now().UTC()},
	}
	for _, imp := range imps {
		if err := s.SaveImpression(imp); err != nil {
			t.Fatalf("SaveImpression failed: %v", err)
		}
	}

	counts, err := s.CountImpressions()
	if err != nil {
		t.Fatalf("CountImpressions failed: %v", err)
	}
	if counts["spring-sale"] != 2 || counts["launch"] != 1 {
		t.Errorf("CountImpressions = %v, want spring-sale:2 launch:1", counts)
	}
}

func TestCleanupOldImpressions(t *testing.T) {
	s := setupTestStore(t)

	old := Impression{ID: "old", CampaignSlug: "spring-sale", ShownAt: time.Now().UTC().AddDate(0, 0, -400)}
	fresh := Impression{ID: "fresh", CampaignSlug: "spring-sale", ShownAt: time.Now().UTC()}
	for _, imp := range []Impression{old, fresh} {
		if err := s.SaveImpression(imp); err != nil {
			t.Fatalf("SaveImpression failed: %v", err)
		}
	}

	if err := s.CleanupOldImpressions(365); err != nil {
		t.Fatalf("CleanupOldImpressions failed: %v", err)
	}

	counts, err := s.CountImpressions()
	if err != nil {
		t.Fatalf("CountImpressions failed: %v", err)
	}
	if counts["spring-sale"] != 1 {
		t.Errorf("impressions after cleanup = %d, want 1", counts["spring-sale"])
	}
}

func TestSettings(t *testing.T) {
	s := setupTestStore(t)

	// Missing key reads as empty, not an error
	val, err := s.GetSetting("nope")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if val != "" {
		t.Errorf("GetSetting(nope) = %q, want empty", val)
	}

	if err := s.SetSetting("greeting", "hello"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.SetSetting("greeting", "hi"); err != nil {
		t.Fatalf("SetSetting upsert failed: %v", err)
	}
	val, err = s.GetSetting("greeting")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if val != "hi" {
		t.Errorf("GetSetting = %q, want \"hi\"", val)
	}
}
