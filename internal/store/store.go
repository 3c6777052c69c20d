// Package store persists leads, dedup state, and run summaries. Two
// backends implement the same interface: SQLite for single-host setups and
// Postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/perch-labs/leadscout/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Platform         model.Platform    `json:"platform,omitempty"`
	Quality          model.LeadQuality `json:"quality,omitempty"`
	MinConfidence    float64           `json:"min_confidence,omitempty"`
	Since            time.Time         `json:"since,omitempty"`
	IncludeDismissed bool              `json:"include_dismissed,omitempty"`
	Limit            int               `json:"limit,omitempty"`
	Offset           int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the qualification pipeline.
type Store interface {
	// Dedup registry. RegisterActivity records the post's permalink and
	// returns true when the activity should be processed: either never
	// seen before, or seen but never fully processed (so a crash or
	// invalid item gets another chance).
	RegisterActivity(ctx context.Context, platform model.Platform, externalID, url string) (bool, error)
	MarkActivityDone(ctx context.Context, platform model.Platform, externalID string) error

	// Container registry, for sources that deliver posts in batches keyed
	// by an upstream job id. The source job key and item count are stored
	// alongside the id for audit.
	IsContainerDone(ctx context.Context, platform model.Platform, containerID string) (bool, error)
	RegisterContainerDone(ctx context.Context, platform model.Platform, containerID, jobKey string, itemCount int) error

	// Leads. SaveLead is idempotent on (platform, external_id); it returns
	// true when the lead was newly inserted.
	SaveLead(ctx context.Context, lead model.Lead) (bool, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	CountLeads(ctx context.Context, filter LeadFilter) (int, error)
	DismissLead(ctx context.Context, id string) error

	// Run summaries.
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	ListRunSummaries(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
