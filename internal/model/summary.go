package model

import "time"

// ItemStatus is the terminal state of one post inside a run.
type ItemStatus string

const (
	ItemQualified ItemStatus = "qualified"
	ItemDuplicate ItemStatus = "duplicate"
	ItemInvalid   ItemStatus = "invalid"
	ItemFiltered  ItemStatus = "filtered"
	ItemRejected  ItemStatus = "rejected"
	ItemFailed    ItemStatus = "failed"
)

// RunSummary aggregates the outcome of one pipeline run over one batch.
type RunSummary struct {
	RunID            string        `json:"run_id"`
	Total            int           `json:"total"`
	Saved            int           `json:"saved"`
	SkippedDuplicate int           `json:"skipped_duplicate"`
	SkippedFiltered  int           `json:"skipped_filtered"`
	SkippedRejected  int           `json:"skipped_rejected"`
	Failed           int           `json:"failed"`
	TotalCost        float64       `json:"total_cost"`
	Aborted          bool          `json:"aborted"`
	AbortReason      string        `json:"abort_reason,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}

// Record increments the counter for one item outcome.
func (s *RunSummary) Record(status ItemStatus) {
	switch status {
	case ItemQualified:
		s.Saved++
	case ItemDuplicate:
		s.SkippedDuplicate++
	case ItemFiltered:
		s.SkippedFiltered++
	case ItemRejected:
		s.SkippedRejected++
	case ItemInvalid, ItemFailed:
		s.Failed++
	}
}

// UsageStats is the observability snapshot exposed to surrounding tooling.
type UsageStats struct {
	DailyCalls          int     `json:"daily_calls"`
	DailyLimit          int     `json:"daily_limit"`
	CircuitOpen         bool    `json:"circuit_open"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	RunCost             float64 `json:"run_cost"`
}
