// Package model defines the core data types shared across the qualification
// pipeline: raw scraped posts, filter matches, classifier verdicts, leads,
// and run summaries.
package model

import "time"

// Platform identifies the social network a post was scraped from.
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformBluesky  Platform = "bluesky"
)

// AllPlatforms returns every supported platform tag.
func AllPlatforms() []Platform {
	return []Platform{PlatformLinkedIn, PlatformTwitter, PlatformBluesky}
}

// PostStats holds engagement counters reported by the source.
type PostStats struct {
	Likes    int `json:"likes,omitempty"`
	Comments int `json:"comments,omitempty"`
	Shares   int `json:"shares,omitempty"`
}

// RawPost is a scraped social post as produced by an ingestion connector.
// Author fields are normalized at ingestion: connectors that return a
// structured author object and connectors that return a bare string both
// map to AuthorName/AuthorTitle before the post enters the pipeline.
// Immutable once ingested.
type RawPost struct {
	Platform    Platform  `json:"platform"`
	ExternalID  string    `json:"external_id,omitempty"`
	AuthorName  string    `json:"author_name"`
	AuthorTitle string    `json:"author_title,omitempty"`
	Content     string    `json:"content"`
	Permalink   string    `json:"permalink"`
	PostedAt    time.Time `json:"posted_at,omitempty"`
	Stats       PostStats `json:"stats,omitempty"`
	RawJSON     string    `json:"raw_json,omitempty"`
}

// FilterMatch records which configured terms literally occurred in a post,
// preserving configured list order.
type FilterMatch struct {
	Keywords   []string `json:"keywords"`
	Roles      []string `json:"roles"`
	Categories []string `json:"categories"`
}

// Empty reports whether no term from any list matched.
func (m FilterMatch) Empty() bool {
	return len(m.Keywords) == 0 && len(m.Roles) == 0 && len(m.Categories) == 0
}
