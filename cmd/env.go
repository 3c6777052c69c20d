package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/perch-labs/leadscout/internal/budget"
	"github.com/perch-labs/leadscout/internal/classifier"
	"github.com/perch-labs/leadscout/internal/cost"
	"github.com/perch-labs/leadscout/internal/keywords"
	"github.com/perch-labs/leadscout/internal/matcher"
	"github.com/perch-labs/leadscout/internal/pipeline"
	"github.com/perch-labs/leadscout/internal/resilience"
	"github.com/perch-labs/leadscout/internal/store"
	"github.com/perch-labs/leadscout/pkg/anthropic"
)

// appEnv holds the initialized store, guard, and pipeline shared by the
// scan/serve/monitor commands.
type appEnv struct {
	Store    store.Store
	Guard    *budget.Guard
	Pipeline *pipeline.Pipeline
	Lists    matcher.TermLists
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config, opens the store, and wires the pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	lists := keywords.Defaults()
	if cfg.Keywords.Path != "" {
		lists, err = keywords.Load(cfg.Keywords.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	guard := budget.NewGuard(budget.Config{
		FailureThreshold: cfg.Budget.FailureThreshold,
		DailyCallLimit:   cfg.Budget.DailyCallLimit,
		RunCostLimit:     cfg.Budget.RunCostLimit,
	})

	cl := classifier.New(
		anthropic.NewClient(cfg.Anthropic.Key),
		guard,
		cost.NewCalculator(nil),
		classifier.Config{
			Model:          cfg.Anthropic.Model,
			MaxTokens:      cfg.Classifier.MaxTokens,
			Temperature:    cfg.Classifier.Temperature,
			AttemptTimeout: time.Duration(cfg.Classifier.AttemptTimeoutSecs) * time.Second,
			CallsPerSecond: cfg.Classifier.CallsPerSecond,
			Retry:          resilience.DefaultRetryConfig(),
		},
		classifier.Prompts{
			Keywords:   lists.Keywords,
			Roles:      lists.Roles,
			Categories: lists.Categories,
		},
	)

	return &appEnv{
		Store:    st,
		Guard:    guard,
		Pipeline: pipeline.New(st, cl, guard, lists),
		Lists:    lists,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		var poolCfg *store.PoolConfig
		if cfg.Store.Pool != nil {
			poolCfg = &store.PoolConfig{
				MaxConns: cfg.Store.Pool.MaxConns,
				MinConns: cfg.Store.Pool.MinConns,
			}
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
}
