package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/perch-labs/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed_activities (
	platform     TEXT NOT NULL,
	activity_id  TEXT NOT NULL,
	original_url TEXT,
	done         INTEGER NOT NULL DEFAULT 0,
	first_seen   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (platform, activity_id)
);

CREATE TABLE IF NOT EXISTS processed_containers (
	platform     TEXT NOT NULL,
	container_id TEXT NOT NULL,
	job_key      TEXT,
	item_count   INTEGER NOT NULL DEFAULT 0,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (platform, container_id)
);

CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	platform       TEXT NOT NULL,
	external_id    TEXT NOT NULL,
	author_name    TEXT NOT NULL,
	author_title   TEXT,
	company        TEXT,
	content        TEXT NOT NULL,
	permalink      TEXT NOT NULL,
	posted_at      DATETIME,
	scraped_at     DATETIME NOT NULL,
	budget_mention TEXT,
	match          TEXT NOT NULL,
	verdict        TEXT NOT NULL,
	dismissed      INTEGER NOT NULL DEFAULT 0,
	raw_json       TEXT,
	UNIQUE (platform, external_id)
);

CREATE TABLE IF NOT EXISTS run_summaries (
	run_id            TEXT PRIMARY KEY,
	total             INTEGER NOT NULL,
	saved             INTEGER NOT NULL,
	skipped_duplicate INTEGER NOT NULL,
	skipped_filtered  INTEGER NOT NULL,
	skipped_rejected  INTEGER NOT NULL,
	failed            INTEGER NOT NULL,
	total_cost        REAL NOT NULL,
	aborted           INTEGER NOT NULL DEFAULT 0,
	abort_reason      TEXT,
	started_at        DATETIME NOT NULL,
	duration_ms       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_platform ON leads(platform);
CREATE INDEX IF NOT EXISTS idx_leads_scraped_at ON leads(scraped_at);
CREATE INDEX IF NOT EXISTS idx_leads_dismissed ON leads(dismissed);
CREATE INDEX IF NOT EXISTS idx_run_summaries_started_at ON run_summaries(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RegisterActivity(ctx context.Context, platform model.Platform, externalID, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_activities (platform, activity_id, original_url, done, first_seen) VALUES (?, ?, ?, 0, ?)`,
		string(platform), externalID, url, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: register activity %s/%s", platform, externalID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return true, nil
	}

	// Already registered: process again only if a prior run never
	// finished it.
	var done int
	err = s.db.QueryRowContext(ctx,
		`SELECT done FROM processed_activities WHERE platform = ? AND activity_id = ?`,
		string(platform), externalID,
	).Scan(&done)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check activity %s/%s", platform, externalID)
	}
	return done == 0, nil
}

func (s *SQLiteStore) MarkActivityDone(ctx context.Context, platform model.Platform, externalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processed_activities SET done = 1 WHERE platform = ? AND activity_id = ?`,
		string(platform), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark activity done %s/%s", platform, externalID)
	}
	return checkRowsAffected(res, "activity", externalID)
}

func (s *SQLiteStore) IsContainerDone(ctx context.Context, platform model.Platform, containerID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_containers WHERE platform = ? AND container_id = ?`,
		string(platform), containerID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check container %s/%s", platform, containerID)
	}
	return true, nil
}

func (s *SQLiteStore) RegisterContainerDone(ctx context.Context, platform model.Platform, containerID, jobKey string, itemCount int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_containers (platform, container_id, job_key, item_count, processed_at) VALUES (?, ?, ?, ?, ?)`,
		string(platform), containerID, jobKey, itemCount, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: register container %s/%s", platform, containerID)
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead model.Lead) (bool, error) {
	matchJSON, err := json.Marshal(lead.Match)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal match")
	}
	verdictJSON, err := json.Marshal(lead.Verdict)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal verdict")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, platform, external_id, author_name, author_title, company,
			content, permalink, posted_at, scraped_at, budget_mention, match, verdict, dismissed, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT (platform, external_id) DO NOTHING`,
		lead.ID, string(lead.Platform), lead.ExternalID, lead.AuthorName, lead.AuthorTitle,
		lead.Company, lead.Content, lead.Permalink, nullableTime(lead.PostedAt), lead.ScrapedAt,
		lead.BudgetMention, string(matchJSON), string(verdictJSON), lead.RawJSON,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: save lead %s/%s", lead.Platform, lead.ExternalID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

const leadColumns = `id, platform, external_id, author_name, author_title, company,
	content, permalink, posted_at, scraped_at, budget_mention, match, verdict, dismissed`

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	query, args := appendLeadFilter(query, nil, filter, "?")
	query += ` ORDER BY scraped_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context, filter LeadFilter) (int, error) {
	query := `SELECT COUNT(*) FROM leads WHERE 1=1`
	query, args := appendLeadFilter(query, nil, filter, "?")

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count leads")
	}
	return n, nil
}

func (s *SQLiteStore) DismissLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET dismissed = 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: dismiss lead %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) SaveRunSummary(ctx context.Context, summary model.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_summaries (run_id, total, saved, skipped_duplicate, skipped_filtered,
			skipped_rejected, failed, total_cost, aborted, abort_reason, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Total, summary.Saved, summary.SkippedDuplicate, summary.SkippedFiltered,
		summary.SkippedRejected, summary.Failed, summary.TotalCost, boolToInt(summary.Aborted),
		summary.AbortReason, summary.StartedAt, summary.Duration.Milliseconds(),
	)
	return eris.Wrapf(err, "sqlite: save run summary %s", summary.RunID)
}

func (s *SQLiteStore) ListRunSummaries(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, total, saved, skipped_duplicate, skipped_filtered, skipped_rejected,
			failed, total_cost, aborted, abort_reason, started_at, duration_ms
		 FROM run_summaries ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list run summaries")
	}
	defer rows.Close()

	var summaries []model.RunSummary
	for rows.Next() {
		sm, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *sm)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list run summaries iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// appendLeadFilter adds WHERE clauses for the given filter. placeholder is
// "?" for SQLite; the Postgres backend numbers its own placeholders and
// does not use this helper.
func appendLeadFilter(query string, args []any, filter LeadFilter, placeholder string) (string, []any) {
	if filter.Platform != "" {
		query += ` AND platform = ` + placeholder
		args = append(args, string(filter.Platform))
	}
	if filter.Quality != "" {
		query += ` AND json_extract(verdict, '$.quality') = ` + placeholder
		args = append(args, string(filter.Quality))
	}
	if filter.MinConfidence > 0 {
		query += ` AND json_extract(verdict, '$.confidence') >= ` + placeholder
		args = append(args, filter.MinConfidence)
	}
	if !filter.Since.IsZero() {
		query += ` AND scraped_at >= ` + placeholder
		args = append(args, filter.Since)
	}
	if !filter.IncludeDismissed {
		query += ` AND dismissed = 0`
	}
	return query, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var authorTitle, company, budgetMention sql.NullString
	var postedAt sql.NullTime
	var matchJSON, verdictJSON string
	var dismissed int

	err := row.Scan(&l.ID, &l.Platform, &l.ExternalID, &l.AuthorName, &authorTitle, &company,
		&l.Content, &l.Permalink, &postedAt, &l.ScrapedAt, &budgetMention, &matchJSON, &verdictJSON, &dismissed)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.AuthorTitle = authorTitle.String
	l.Company = company.String
	l.BudgetMention = budgetMention.String
	l.Dismissed = dismissed != 0
	if postedAt.Valid {
		l.PostedAt = postedAt.Time
	}
	if err := json.Unmarshal([]byte(matchJSON), &l.Match); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal match")
	}
	if err := json.Unmarshal([]byte(verdictJSON), &l.Verdict); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal verdict")
	}
	return &l, nil
}

func scanRunSummary(row scannable) (*model.RunSummary, error) {
	var sm model.RunSummary
	var aborted int
	var abortReason sql.NullString
	var durationMS int64

	err := row.Scan(&sm.RunID, &sm.Total, &sm.Saved, &sm.SkippedDuplicate, &sm.SkippedFiltered,
		&sm.SkippedRejected, &sm.Failed, &sm.TotalCost, &aborted, &abortReason, &sm.StartedAt, &durationMS)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run summary")
	}
	sm.Aborted = aborted != 0
	sm.AbortReason = abortReason.String
	sm.Duration = time.Duration(durationMS) * time.Millisecond
	return &sm, nil
}
