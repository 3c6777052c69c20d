package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/perch-labs/leadscout/internal/model"
)

// Pool abstracts the pgxpool methods the store uses, so tests can swap in
// pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"register_activity":  `INSERT INTO processed_activities (platform, activity_id, original_url, done, first_seen) VALUES ($1, $2, $3, false, $4) ON CONFLICT (platform, activity_id) DO NOTHING`,
	"check_activity":     `SELECT done FROM processed_activities WHERE platform = $1 AND activity_id = $2`,
	"mark_activity_done": `UPDATE processed_activities SET done = true WHERE platform = $1 AND activity_id = $2`,
	"check_container":    `SELECT 1 FROM processed_containers WHERE platform = $1 AND container_id = $2`,
	"register_container": `INSERT INTO processed_containers (platform, container_id, job_key, item_count, processed_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (platform, container_id) DO NOTHING`,
	"dismiss_lead":       `UPDATE leads SET dismissed = true WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS processed_activities (
	platform     TEXT NOT NULL,
	activity_id  TEXT NOT NULL,
	original_url TEXT,
	done         BOOLEAN NOT NULL DEFAULT false,
	first_seen   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (platform, activity_id)
);

CREATE TABLE IF NOT EXISTS processed_containers (
	platform     TEXT NOT NULL,
	container_id TEXT NOT NULL,
	job_key      TEXT,
	item_count   INTEGER NOT NULL DEFAULT 0,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	posted_at      TIMESTAMPTZ,
	scraped_at     TIMESTAMPTZ NOT NULL,
	budget_mention TEXT,
	match          JSONB NOT NULL,
	verdict        JSONB NOT NULL,
	dismissed      BOOLEAN NOT NULL DEFAULT false,
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
	total_cost        DOUBLE PRECISION NOT NULL,
	aborted           BOOLEAN NOT NULL DEFAULT false,
	abort_reason      TEXT,
	started_at        TIMESTAMPTZ NOT NULL,
	duration_ms       BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_platform ON leads(platform);
CREATE INDEX IF NOT EXISTS idx_leads_scraped_at ON leads(scraped_at);
CREATE INDEX IF NOT EXISTS idx_leads_dismissed ON leads(dismissed);
CREATE INDEX IF NOT EXISTS idx_leads_verdict_quality ON leads((verdict->>'quality'));
CREATE INDEX IF NOT EXISTS idx_run_summaries_started_at ON run_summaries(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RegisterActivity(ctx context.Context, platform model.Platform, externalID, url string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processed_activities (platform, activity_id, original_url, done, first_seen) VALUES ($1, $2, $3, false, $4)
		 ON CONFLICT (platform, activity_id) DO NOTHING`,
		string(platform), externalID, url, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: register activity %s/%s", platform, externalID)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var done bool
	err = s.pool.QueryRow(ctx,
		`SELECT done FROM processed_activities WHERE platform = $1 AND activity_id = $2`,
		string(platform), externalID,
	).Scan(&done)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check activity %s/%s", platform, externalID)
	}
	return !done, nil
}

func (s *PostgresStore) MarkActivityDone(ctx context.Context, platform model.Platform, externalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE processed_activities SET done = true WHERE platform = $1 AND activity_id = $2`,
		string(platform), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark activity done %s/%s", platform, externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("activity not found: %s", externalID)
	}
	return nil
}

func (s *PostgresStore) IsContainerDone(ctx context.Context, platform model.Platform, containerID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM processed_containers WHERE platform = $1 AND container_id = $2`,
		string(platform), containerID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check container %s/%s", platform, containerID)
	}
	return true, nil
}

func (s *PostgresStore) RegisterContainerDone(ctx context.Context, platform model.Platform, containerID, jobKey string, itemCount int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_containers (platform, container_id, job_key, item_count, processed_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (platform, container_id) DO NOTHING`,
		string(platform), containerID, jobKey, itemCount, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: register container %s/%s", platform, containerID)
}

func (s *PostgresStore) SaveLead(ctx context.Context, lead model.Lead) (bool, error) {
	matchJSON, err := json.Marshal(lead.Match)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal match")
	}
	verdictJSON, err := json.Marshal(lead.Verdict)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal verdict")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, platform, external_id, author_name, author_title, company,
			content, permalink, posted_at, scraped_at, budget_mention, match, verdict, dismissed, raw_json)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, $14)
		 ON CONFLICT (platform, external_id) DO NOTHING`,
		lead.ID, string(lead.Platform), lead.ExternalID, lead.AuthorName, lead.AuthorTitle,
		lead.Company, lead.Content, lead.Permalink, nullableTime(lead.PostedAt), lead.ScrapedAt,
		lead.BudgetMention, string(matchJSON), string(verdictJSON), lead.RawJSON,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: save lead %s/%s", lead.Platform, lead.ExternalID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, platform, external_id, author_name, author_title, company,
		content, permalink, posted_at, scraped_at, budget_mention, match, verdict, dismissed
		FROM leads WHERE 1=1`
	query, args := appendPgLeadFilter(query, nil, filter)
	query += ` ORDER BY scraped_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context, filter LeadFilter) (int, error) {
	query := `SELECT COUNT(*) FROM leads WHERE 1=1`
	query, args := appendPgLeadFilter(query, nil, filter)

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count leads")
	}
	return n, nil
}

func (s *PostgresStore) DismissLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET dismissed = true WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: dismiss lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveRunSummary(ctx context.Context, summary model.RunSummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_summaries (run_id, total, saved, skipped_duplicate, skipped_filtered,
			skipped_rejected, failed, total_cost, aborted, abort_reason, started_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		summary.RunID, summary.Total, summary.Saved, summary.SkippedDuplicate, summary.SkippedFiltered,
		summary.SkippedRejected, summary.Failed, summary.TotalCost, summary.Aborted,
		summary.AbortReason, summary.StartedAt, summary.Duration.Milliseconds(),
	)
	return eris.Wrapf(err, "postgres: save run summary %s", summary.RunID)
}

func (s *PostgresStore) ListRunSummaries(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, total, saved, skipped_duplicate, skipped_filtered, skipped_rejected,
			failed, total_cost, aborted, abort_reason, started_at, duration_ms
		 FROM run_summaries ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list run summaries")
	}
	defer rows.Close()

	var summaries []model.RunSummary
	for rows.Next() {
		sm, err := scanPgRunSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *sm)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list run summaries iterate")
}

func appendPgLeadFilter(query string, args []any, filter LeadFilter) (string, []any) {
	if filter.Platform != "" {
		args = append(args, string(filter.Platform))
		query += fmt.Sprintf(` AND platform = $%d`, len(args))
	}
	if filter.Quality != "" {
		args = append(args, string(filter.Quality))
		query += fmt.Sprintf(` AND verdict->>'quality' = $%d`, len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(` AND (verdict->>'confidence')::float >= $%d`, len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(` AND scraped_at >= $%d`, len(args))
	}
	if !filter.IncludeDismissed {
		query += ` AND dismissed = false`
	}
	return query, args
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var authorTitle, company, budgetMention *string
	var postedAt *time.Time
	var matchJSON, verdictJSON []byte

	err := row.Scan(&l.ID, &l.Platform, &l.ExternalID, &l.AuthorName, &authorTitle, &company,
		&l.Content, &l.Permalink, &postedAt, &l.ScrapedAt, &budgetMention, &matchJSON, &verdictJSON, &l.Dismissed)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	if authorTitle != nil {
		l.AuthorTitle = *authorTitle
	}
	if company != nil {
		l.Company = *company
	}
	if budgetMention != nil {
		l.BudgetMention = *budgetMention
	}
	if postedAt != nil {
		l.PostedAt = *postedAt
	}
	if err := json.Unmarshal(matchJSON, &l.Match); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal match")
	}
	if err := json.Unmarshal(verdictJSON, &l.Verdict); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal verdict")
	}
	return &l, nil
}

func scanPgRunSummary(row pgx.Row) (*model.RunSummary, error) {
	var sm model.RunSummary
	var abortReason *string
	var durationMS int64

	err := row.Scan(&sm.RunID, &sm.Total, &sm.Saved, &sm.SkippedDuplicate, &sm.SkippedFiltered,
		&sm.SkippedRejected, &sm.Failed, &sm.TotalCost, &sm.Aborted, &abortReason, &sm.StartedAt, &durationMS)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run summary")
	}
	if abortReason != nil {
		sm.AbortReason = *abortReason
	}
	sm.Duration = time.Duration(durationMS) * time.Millisecond
	return &sm, nil
}
