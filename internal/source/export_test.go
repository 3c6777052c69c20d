package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/perch-labs/leadscout/internal/model"
)

func TestParseExportArray(t *testing.T) {
	data := []byte(`[
		{"postContent": "Looking for a PR agency", "postUrl": "https://www.linkedin.com/posts/jane-doe-activity-7301234567890123456", "profileName": "Jane Doe", "headline": "CMO at Acme Corp", "likes": 12, "comments": 3},
		{"text": "Unrelated post", "url": "https://twitter.com/bob/status/1881234567890123456", "author": "Bob"}
	]`)

	batch, err := parseExport(data, model.PlatformLinkedIn)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	if len(batch.Posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(batch.Posts))
	}

	p := batch.Posts[0]
	if p.Content != "Looking for a PR agency" {
		t.Errorf("content = %q", p.Content)
	}
	if p.AuthorName != "Jane Doe" || p.AuthorTitle != "CMO at Acme Corp" {
		t.Errorf("author = %q / %q", p.AuthorName, p.AuthorTitle)
	}
	if p.ExternalID != "7301234567890123456" {
		t.Errorf("external id = %q", p.ExternalID)
	}
	if p.Stats.Likes != 12 || p.Stats.Comments != 3 {
		t.Errorf("stats = %+v", p.Stats)
	}
	if p.RawJSON == "" {
		t.Error("raw payload must be preserved")
	}
}

func TestParseExportContainerWrapper(t *testing.T) {
	data := []byte(`{
		"container_id": "pb-8812",
		"job_key": "ln-export-weekly",
		"posts": [
			{"text": "need press coverage", "url": "https://www.linkedin.com/posts/x-activity-7300000000000000001"}
		]
	}`)

	batch, err := parseExport(data, model.PlatformLinkedIn)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	if batch.ContainerID != "pb-8812" {
		t.Errorf("container id = %q", batch.ContainerID)
	}
	if batch.JobKey != "ln-export-weekly" {
		t.Errorf("job key = %q", batch.JobKey)
	}
	if len(batch.Posts) != 1 {
		t.Fatalf("posts = %d", len(batch.Posts))
	}
}

func TestParseExportJSONL(t *testing.T) {
	data := []byte(`{"text": "post one", "url": "https://bsky.app/profile/a.com/post/abc123"}
{"text": "post two", "url": "https://bsky.app/profile/b.com/post/def456"}
`)
	batch, err := parseExport(data, model.PlatformBluesky)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	if len(batch.Posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(batch.Posts))
	}
	if batch.Posts[0].ExternalID != "abc123" {
		t.Errorf("external id = %q", batch.Posts[0].ExternalID)
	}
}

func TestParseExportStructuredAuthor(t *testing.T) {
	data := []byte(`[{"text": "hello", "url": "https://x.com/a/status/1", "author": {"name": "Ana", "title": "Founder at Glow Labs"}}]`)
	batch, err := parseExport(data, model.PlatformTwitter)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	p := batch.Posts[0]
	if p.AuthorName != "Ana" || p.AuthorTitle != "Founder at Glow Labs" {
		t.Errorf("author = %q / %q", p.AuthorName, p.AuthorTitle)
	}
}

func TestParseExportStringAuthor(t *testing.T) {
	data := []byte(`[{"text": "hello", "url": "https://x.com/a/status/1", "author": "Plain Name", "author_title": "CEO at Widgets"}]`)
	batch, err := parseExport(data, model.PlatformTwitter)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	p := batch.Posts[0]
	if p.AuthorName != "Plain Name" || p.AuthorTitle != "CEO at Widgets" {
		t.Errorf("author = %q / %q", p.AuthorName, p.AuthorTitle)
	}
}

func TestParseExportEmpty(t *testing.T) {
	batch, err := parseExport([]byte("  \n"), model.PlatformLinkedIn)
	if err != nil {
		t.Fatalf("parseExport: %v", err)
	}
	if len(batch.Posts) != 0 {
		t.Errorf("posts = %d, want 0", len(batch.Posts))
	}
}

func TestParseExportGarbage(t *testing.T) {
	if _, err := parseExport([]byte("not json"), model.PlatformLinkedIn); err == nil {
		t.Error("expected format error")
	}
}

func TestExportSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	content := `[{"text": "need a pr firm", "url": "https://www.linkedin.com/posts/x-activity-7300000000000000002"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &ExportSource{Path: path, Platform: model.PlatformLinkedIn}
	batches, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Posts) != 1 {
		t.Fatalf("batches = %+v", batches)
	}
}
