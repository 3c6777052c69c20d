// Package pipeline runs the lead qualification flow over batches of scraped
// posts: dedup, keyword pre-filter, intent classification, and idempotent
// persistence. Items are processed strictly one at a time; each item either
// reaches a terminal status or fails without taking the run down, and only
// the run cost ceiling aborts the remaining batch.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/perch-labs/leadscout/internal/budget"
	"github.com/perch-labs/leadscout/internal/enrich"
	"github.com/perch-labs/leadscout/internal/matcher"
	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/source"
	"github.com/perch-labs/leadscout/internal/store"
)

// Classifier is the classification dependency; satisfied by
// classifier.Client.
type Classifier interface {
	Classify(ctx context.Context, content, authorName, authorTitle string) model.Verdict
}

// Pipeline wires the qualification stages together.
type Pipeline struct {
	store      store.Store
	classifier Classifier
	guard      *budget.Guard
	lists      matcher.TermLists

	nowFunc func() time.Time
}

// New builds a Pipeline.
func New(st store.Store, cl Classifier, guard *budget.Guard, lists matcher.TermLists) *Pipeline {
	return &Pipeline{
		store:      st,
		classifier: cl,
		guard:      guard,
		lists:      lists,
		nowFunc:    time.Now,
	}
}

// Run processes all batches and returns the run summary. The summary is
// persisted best-effort even when the run aborts on the cost ceiling; the
// returned error is non-nil only for that abort.
func (p *Pipeline) Run(ctx context.Context, batches []source.Batch) (model.RunSummary, error) {
	p.guard.BeginRun()

	summary := model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: p.nowFunc().UTC(),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID))

	var abortErr error

batches:
	for _, batch := range batches {
		if batch.ContainerID != "" {
			done, err := p.store.IsContainerDone(ctx, batch.Platform, batch.ContainerID)
			if err != nil {
				log.Error("container check failed, processing batch anyway",
					zap.String("container_id", batch.ContainerID),
					zap.Error(err),
				)
			} else if done {
				log.Info("skipping already-processed container",
					zap.String("container_id", batch.ContainerID),
					zap.Int("posts", len(batch.Posts)),
				)
				continue
			}
		}

		for _, post := range batch.Posts {
			summary.Total++

			status, err := p.processItem(ctx, post)
			if err != nil {
				if eris.Is(err, budget.ErrRunCostExceeded) {
					summary.Aborted = true
					summary.AbortReason = eris.Cause(err).Error()
					abortErr = err
					log.Warn("run aborted",
						zap.String("reason", summary.AbortReason),
						zap.Int("processed", summary.Total),
					)
					break batches
				}
				log.Warn("item failed",
					zap.String("external_id", post.ExternalID),
					zap.Error(err),
				)
				status = model.ItemFailed
			}
			summary.Record(status)
		}

		if batch.ContainerID != "" {
			if err := p.store.RegisterContainerDone(ctx, batch.Platform, batch.ContainerID, batch.JobKey, len(batch.Posts)); err != nil {
				log.Error("container registration failed",
					zap.String("container_id", batch.ContainerID),
					zap.Error(err),
				)
			}
		}
	}

	summary.TotalCost = p.guard.Stats().RunCost
	summary.Duration = p.nowFunc().UTC().Sub(summary.StartedAt)

	if err := p.store.SaveRunSummary(ctx, summary); err != nil {
		log.Error("run summary not persisted", zap.Error(err))
	}
	log.Info("run complete",
		zap.Int("total", summary.Total),
		zap.Int("saved", summary.Saved),
		zap.Int("skipped_duplicate", summary.SkippedDuplicate),
		zap.Int("skipped_filtered", summary.SkippedFiltered),
		zap.Int("skipped_rejected", summary.SkippedRejected),
		zap.Int("failed", summary.Failed),
		zap.Float64("total_cost", summary.TotalCost),
		zap.Bool("aborted", summary.Aborted),
	)
	return summary, abortErr
}

// processItem walks one post through the qualification stages and returns
// its terminal status. An error return means the item could not reach a
// terminal status; ErrRunCostExceeded aborts the whole run.
func (p *Pipeline) processItem(ctx context.Context, post model.RawPost) (model.ItemStatus, error) {
	externalID := post.ExternalID
	if externalID == "" {
		externalID = model.DeriveExternalID(post.Platform, post.Permalink)
	}
	if externalID == "" {
		zap.L().Debug("post has no derivable id", zap.String("permalink", post.Permalink))
		return model.ItemInvalid, nil
	}
	post.ExternalID = externalID

	fresh, err := p.store.RegisterActivity(ctx, post.Platform, externalID, post.Permalink)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: register activity")
	}
	if !fresh {
		return model.ItemDuplicate, nil
	}

	// Invalid posts stay registered but are not marked done, so a later
	// export carrying complete data gets another pass.
	if strings.TrimSpace(post.Content) == "" || strings.TrimSpace(post.AuthorName) == "" {
		zap.L().Warn("post missing required fields",
			zap.String("platform", string(post.Platform)),
			zap.String("external_id", externalID),
		)
		return model.ItemInvalid, nil
	}

	match := matcher.Match(post.Content, post.AuthorTitle, p.lists)
	if match.Empty() {
		if err := p.store.MarkActivityDone(ctx, post.Platform, externalID); err != nil {
			return "", eris.Wrap(err, "pipeline: mark filtered done")
		}
		return model.ItemFiltered, nil
	}

	verdict := p.classifier.Classify(ctx, post.Content, post.AuthorName, post.AuthorTitle)
	if err := p.guard.CheckRunCost(); err != nil {
		return "", err
	}

	if !verdict.IsLead {
		if err := p.store.MarkActivityDone(ctx, post.Platform, externalID); err != nil {
			return "", eris.Wrap(err, "pipeline: mark rejected done")
		}
		return model.ItemRejected, nil
	}

	lead := enrich.BuildLead(post, match, verdict, p.nowFunc())
	saved, err := p.store.SaveLead(ctx, lead)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: save lead")
	}
	if err := p.store.MarkActivityDone(ctx, post.Platform, externalID); err != nil {
		return "", eris.Wrap(err, "pipeline: mark qualified done")
	}
	if !saved {
		// Lead row already existed from an earlier run that crashed
		// between insert and the done marker.
		return model.ItemDuplicate, nil
	}
	return model.ItemQualified, nil
}

// UsageStats exposes the guard's observability snapshot.
func (p *Pipeline) UsageStats() model.UsageStats {
	return p.guard.Stats()
}
