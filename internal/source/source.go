// Package source ingests scraped posts. The only built-in connector reads
// export files (JSON or JSONL) dumped by an upstream scraping job, but the
// Source contract lets live connectors plug into the same pipeline.
package source

import (
	"context"

	"github.com/perch-labs/leadscout/internal/model"
)

// Batch is one ingestion unit: the posts plus the upstream job container
// they came from, when the connector reports one. ContainerID lets the
// pipeline skip a batch it has fully processed before; JobKey identifies
// the scraping job that produced the container.
type Batch struct {
	Platform    model.Platform
	ContainerID string
	JobKey      string
	Posts       []model.RawPost
}

// Source produces batches of raw posts for the pipeline.
type Source interface {
	Fetch(ctx context.Context) ([]Batch, error)
}
