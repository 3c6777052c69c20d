package model

import "time"

// Lead is the persisted output of the qualification pipeline. Unique per
// (platform, external_id); written once and never overwritten except for
// the dismissed flag, which the review surface toggles.
type Lead struct {
	ID            string      `json:"id"`
	Platform      Platform    `json:"platform"`
	ExternalID    string      `json:"external_id"`
	AuthorName    string      `json:"author_name"`
	AuthorTitle   string      `json:"author_title,omitempty"`
	Company       string      `json:"company,omitempty"`
	Content       string      `json:"content"`
	Permalink     string      `json:"permalink"`
	PostedAt      time.Time   `json:"posted_at,omitempty"`
	ScrapedAt     time.Time   `json:"scraped_at"`
	BudgetMention string      `json:"budget_mention,omitempty"`
	Match         FilterMatch `json:"match"`
	Verdict       Verdict     `json:"verdict"`
	Dismissed     bool        `json:"dismissed"`
	RawJSON       string      `json:"-"`
}
