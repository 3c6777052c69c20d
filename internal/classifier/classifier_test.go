package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"

	"github.com/perch-labs/leadscout/internal/budget"
	"github.com/perch-labs/leadscout/internal/cost"
	"github.com/perch-labs/leadscout/internal/resilience"
	"github.com/perch-labs/leadscout/pkg/anthropic"
)

// fakeAI is a scripted anthropic.Client: it returns responses (or errors)
// in order and records how many calls it received.
type fakeAI struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeAI) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	if r.err != nil {
		return nil, r.err
	}
	return &anthropic.MessageResponse{
		Model: "claude-haiku-4-5-20251001",
		Text:  r.text,
		Usage: anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}, nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		Multiplier:        2.0,
		RateLimitCooldown: time.Millisecond,
	}
}

func newTestClient(ai anthropic.Client, guard *budget.Guard) *Client {
	return New(ai, guard, cost.NewCalculator(nil), Config{Retry: fastRetry()}, Prompts{})
}

func TestClassifySuccess(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{{text: goodJSON}}}
	guard := budget.NewGuard(budget.Config{})
	guard.BeginRun()

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO at Acme")
	if !v.IsLead || v.Fallback {
		t.Fatalf("verdict = %+v, want genuine lead", v)
	}
	if ai.calls != 1 {
		t.Errorf("api calls = %d, want 1", ai.calls)
	}

	stats := guard.Stats()
	if stats.DailyCalls != 1 {
		t.Errorf("daily calls = %d, want 1", stats.DailyCalls)
	}
	if stats.RunCost <= 0 {
		t.Errorf("run cost = %v, want > 0", stats.RunCost)
	}
}

func TestClassifyRetriesThenFallback(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{{err: eris.New("upstream 500")}}}
	guard := budget.NewGuard(budget.Config{})
	guard.BeginRun()

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO")
	if !v.Fallback {
		t.Fatalf("verdict = %+v, want fallback", v)
	}
	if ai.calls != 3 {
		t.Errorf("api calls = %d, want 3", ai.calls)
	}
	if stats := guard.Stats(); stats.ConsecutiveFailures != 3 {
		t.Errorf("consecutive failures = %d, want 3", stats.ConsecutiveFailures)
	}
}

func TestClassifyCircuitOpenSkipsAPI(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{{text: goodJSON}}}
	guard := budget.NewGuard(budget.Config{FailureThreshold: 2})
	guard.RecordFailure()
	guard.RecordFailure()

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO")
	if !v.Fallback {
		t.Fatalf("verdict = %+v, want fallback", v)
	}
	if ai.calls != 0 {
		t.Errorf("api calls = %d, want 0 while circuit open", ai.calls)
	}
}

func TestClassifyDailyQuotaSkipsAPI(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{{text: goodJSON}}}
	guard := budget.NewGuard(budget.Config{DailyCallLimit: 1})
	guard.RecordSuccess(0.01)

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO")
	if !v.Fallback {
		t.Fatalf("verdict = %+v, want fallback", v)
	}
	if ai.calls != 0 {
		t.Errorf("api calls = %d, want 0 at daily quota", ai.calls)
	}
	if stats := guard.Stats(); stats.ConsecutiveFailures != 0 {
		t.Errorf("quota skip must not count as a failure, got %d", stats.ConsecutiveFailures)
	}
}

func TestClassifyInvalidResponseChargesCost(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{{text: "not json at all"}}}
	guard := budget.NewGuard(budget.Config{})
	guard.BeginRun()

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO")
	if !v.Fallback {
		t.Fatalf("verdict = %+v, want fallback", v)
	}
	if ai.calls != 3 {
		t.Errorf("api calls = %d, want 3", ai.calls)
	}

	stats := guard.Stats()
	if stats.RunCost <= 0 {
		t.Errorf("run cost = %v, invalid responses still consume tokens", stats.RunCost)
	}
	if stats.DailyCalls != 0 {
		t.Errorf("daily calls = %d, only validated successes count", stats.DailyCalls)
	}
}

func TestClassifySucceedsAfterTransientFailure(t *testing.T) {
	ai := &fakeAI{responses: []fakeResponse{
		{err: eris.New("upstream 503")},
		{text: goodJSON},
	}}
	guard := budget.NewGuard(budget.Config{})
	guard.BeginRun()

	v := newTestClient(ai, guard).Classify(context.Background(), "need a PR agency", "Jane", "CMO")
	if v.Fallback {
		t.Fatalf("verdict = %+v, want real verdict after recovery", v)
	}
	if ai.calls != 2 {
		t.Errorf("api calls = %d, want 2", ai.calls)
	}
	if stats := guard.Stats(); stats.ConsecutiveFailures != 0 {
		t.Errorf("success must reset failures, got %d", stats.ConsecutiveFailures)
	}
}
