package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/leadscout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testLead(externalID string) model.Lead {
	return model.Lead{
		ID:          "lead-" + externalID,
		Platform:    model.PlatformLinkedIn,
		ExternalID:  externalID,
		AuthorName:  "Jane Doe",
		AuthorTitle: "CMO at Acme Corp",
		Company:     "Acme Corp",
		Content:     "Looking for a PR agency",
		Permalink:   "https://linkedin.com/posts/" + externalID,
		PostedAt:    time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
		ScrapedAt:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Match:       model.FilterMatch{Keywords: []string{"pr agency"}},
		Verdict: model.Verdict{
			IsLead:     true,
			Confidence: 85,
			Quality:    model.QualityHot,
			HiringType: model.HiringAgency,
			Reasoning:  "Explicit agency search from a decision maker.",
		},
	}
}

// --- Activity registry ---

func TestSQLite_RegisterActivity_FirstTime(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fresh, err := st.RegisterActivity(ctx, model.PlatformLinkedIn, "7301234567890123456",
		"https://linkedin.com/posts/jane-7301234567890123456")
	require.NoError(t, err)
	assert.True(t, fresh)

	var url string
	err = st.db.QueryRow(
		`SELECT original_url FROM processed_activities WHERE platform = ? AND activity_id = ?`,
		"linkedin", "7301234567890123456",
	).Scan(&url)
	require.NoError(t, err)
	assert.Equal(t, "https://linkedin.com/posts/jane-7301234567890123456", url)
}

func TestSQLite_RegisterActivity_DuplicateAfterDone(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	fresh, err := st.RegisterActivity(ctx, model.PlatformLinkedIn, "act-1", "https://linkedin.com/posts/act-1")
	require.NoError(t, err)
	require.True(t, fresh)

	require.NoError(t, st.MarkActivityDone(ctx, model.PlatformLinkedIn, "act-1"))

	fresh, err = st.RegisterActivity(ctx, model.PlatformLinkedIn, "act-1", "https://linkedin.com/posts/act-1")
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestSQLite_RegisterActivity_RetriedWhenNotDone(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// First sighting registered but never marked done (e.g. the item
	// failed validation); the next run should pick it up again.
	fresh, err := st.RegisterActivity(ctx, model.PlatformLinkedIn, "act-2", "https://linkedin.com/posts/act-2")
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = st.RegisterActivity(ctx, model.PlatformLinkedIn, "act-2", "https://linkedin.com/posts/act-2")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestSQLite_RegisterActivity_PlatformScoped(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RegisterActivity(ctx, model.PlatformLinkedIn, "same-id", "https://linkedin.com/posts/same-id")
	require.NoError(t, err)
	require.NoError(t, st.MarkActivityDone(ctx, model.PlatformLinkedIn, "same-id"))

	fresh, err := st.RegisterActivity(ctx, model.PlatformTwitter, "same-id", "https://twitter.com/someone/status/1")
	require.NoError(t, err)
	assert.True(t, fresh, "same id on a different platform is a different activity")
}

func TestSQLite_MarkActivityDone_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.MarkActivityDone(context.Background(), model.PlatformLinkedIn, "never-registered")
	assert.Error(t, err)
}

// --- Container registry ---

func TestSQLite_ContainerRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	done, err := st.IsContainerDone(ctx, model.PlatformLinkedIn, "container-9")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, st.RegisterContainerDone(ctx, model.PlatformLinkedIn, "container-9", "job-abc", 42))
	// Re-registering the same container is a no-op, not an error.
	require.NoError(t, st.RegisterContainerDone(ctx, model.PlatformLinkedIn, "container-9", "job-other", 7))

	done, err = st.IsContainerDone(ctx, model.PlatformLinkedIn, "container-9")
	require.NoError(t, err)
	assert.True(t, done)

	// The first registration's job key and item count stick.
	var jobKey string
	var itemCount int
	err = st.db.QueryRow(
		`SELECT job_key, item_count FROM processed_containers WHERE platform = ? AND container_id = ?`,
		"linkedin", "container-9",
	).Scan(&jobKey, &itemCount)
	require.NoError(t, err)
	assert.Equal(t, "job-abc", jobKey)
	assert.Equal(t, 42, itemCount)
}

// --- Leads ---

func TestSQLite_SaveLead_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := st.SaveLead(ctx, testLead("ext-1"))
	require.NoError(t, err)
	assert.True(t, saved)

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	got := leads[0]
	assert.Equal(t, "Acme Corp", got.Company)
	assert.Equal(t, model.QualityHot, got.Verdict.Quality)
	assert.Equal(t, []string{"pr agency"}, got.Match.Keywords)
	assert.False(t, got.Dismissed)
}

func TestSQLite_SaveLead_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := st.SaveLead(ctx, testLead("ext-2"))
	require.NoError(t, err)
	require.True(t, saved)

	dup := testLead("ext-2")
	dup.ID = "different-uuid"
	saved, err = st.SaveLead(ctx, dup)
	require.NoError(t, err)
	assert.False(t, saved, "second insert with the same (platform, external_id) is ignored")

	n, err := st.CountLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_ListLeads_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	hot := testLead("hot-1")
	_, err := st.SaveLead(ctx, hot)
	require.NoError(t, err)

	cold := testLead("cold-1")
	cold.ID = "lead-cold-1"
	cold.Platform = model.PlatformTwitter
	cold.Verdict.Quality = model.QualityCold
	cold.Verdict.Confidence = 30
	_, err = st.SaveLead(ctx, cold)
	require.NoError(t, err)

	leads, err := st.ListLeads(ctx, LeadFilter{Quality: model.QualityHot})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "hot-1", leads[0].ExternalID)

	leads, err = st.ListLeads(ctx, LeadFilter{Platform: model.PlatformTwitter})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "cold-1", leads[0].ExternalID)

	leads, err = st.ListLeads(ctx, LeadFilter{MinConfidence: 60})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "hot-1", leads[0].ExternalID)
}

func TestSQLite_DismissLead(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lead := testLead("ext-3")
	_, err := st.SaveLead(ctx, lead)
	require.NoError(t, err)

	require.NoError(t, st.DismissLead(ctx, lead.ID))

	leads, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads, "dismissed leads are hidden by default")

	leads, err = st.ListLeads(ctx, LeadFilter{IncludeDismissed: true})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.True(t, leads[0].Dismissed)
}

func TestSQLite_DismissLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.DismissLead(context.Background(), "no-such-lead")
	assert.Error(t, err)
}

// --- Run summaries ---

func TestSQLite_RunSummaryRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sm := model.RunSummary{
		RunID:            "run-1",
		Total:            3,
		Saved:            1,
		SkippedDuplicate: 1,
		Failed:           1,
		TotalCost:        0.0123,
		StartedAt:        time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Duration:         4200 * time.Millisecond,
	}
	require.NoError(t, st.SaveRunSummary(ctx, sm))

	got, err := st.ListRunSummaries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sm.Total, got[0].Total)
	assert.Equal(t, sm.TotalCost, got[0].TotalCost)
	assert.Equal(t, sm.Duration, got[0].Duration)
	assert.False(t, got[0].Aborted)
}

func TestSQLite_RunSummaryAborted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sm := model.RunSummary{
		RunID:       "run-2",
		Total:       10,
		Aborted:     true,
		AbortReason: "run cost limit exceeded",
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveRunSummary(ctx, sm))

	got, err := st.ListRunSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Aborted)
	assert.Equal(t, "run cost limit exceeded", got[0].AbortReason)
}
