// Package budget tracks the spend and failure ceilings for the external
// classifier: a two-state circuit breaker, a calendar-day call quota, and a
// per-run monetary cost ceiling.
package budget

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/perch-labs/leadscout/internal/model"
)

var (
	// ErrCircuitOpen is returned when repeated classifier failures have
	// opened the circuit; only a validated success closes it again.
	ErrCircuitOpen = eris.New("budget: classifier circuit open")

	// ErrDailyQuotaExceeded is returned when the calendar-day call cap has
	// been reached. Calls resume when the date advances.
	ErrDailyQuotaExceeded = eris.New("budget: daily call limit reached")

	// ErrRunCostExceeded is the only fatal budget error: it aborts the
	// remaining batch rather than a single item.
	ErrRunCostExceeded = eris.New("budget: run cost limit exceeded")
)

// Config holds the guard ceilings.
type Config struct {
	// FailureThreshold is the number of consecutive classifier failures
	// that opens the circuit. Default: 5.
	FailureThreshold int

	// DailyCallLimit caps classifier calls per calendar date. Default: 1000.
	DailyCallLimit int

	// RunCostLimit is the per-run spend ceiling in USD. Default: 5.00.
	RunCostLimit float64
}

// DefaultConfig returns the default guard ceilings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		DailyCallLimit:   1000,
		RunCostLimit:     5.00,
	}
}

// Guard is the budget/quota state machine for one process. It is not
// designed for concurrent runs sharing the same state; the mutex only
// protects against observer reads (Stats) racing the pipeline.
type Guard struct {
	cfg Config

	mu                  sync.Mutex
	consecutiveFailures int
	circuitOpen         bool
	dailyCalls          int
	lastResetDate       time.Time
	runCost             float64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewGuard creates a Guard with the given ceilings, applying defaults for
// zero values.
func NewGuard(cfg Config) *Guard {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.DailyCallLimit <= 0 {
		cfg.DailyCallLimit = 1000
	}
	if cfg.RunCostLimit <= 0 {
		cfg.RunCostLimit = 5.00
	}
	return &Guard{
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// BeginRun zeroes the run-scoped cost accumulator. Called once at the start
// of every pipeline invocation; daily and circuit state carry across runs.
func (g *Guard) BeginRun() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runCost = 0
}

// AllowCall checks, in order, the circuit state and the daily quota.
// Either failure short-circuits the classifier to its fallback verdict
// without consuming a retry attempt.
func (g *Guard) AllowCall() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.circuitOpen {
		return ErrCircuitOpen
	}

	g.maybeResetDailyLocked()
	if g.dailyCalls >= g.cfg.DailyCallLimit {
		return ErrDailyQuotaExceeded
	}
	return nil
}

// RecordFailure counts one failed classifier attempt. Crossing the
// threshold opens the circuit.
func (g *Guard) RecordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveFailures++
	if g.consecutiveFailures >= g.cfg.FailureThreshold && !g.circuitOpen {
		g.circuitOpen = true
		zap.L().Warn("classifier circuit opened",
			zap.Int("consecutive_failures", g.consecutiveFailures),
			zap.Int("threshold", g.cfg.FailureThreshold),
		)
	}
}

// RecordSuccess counts one validated classifier success: the failure
// counter zeroes, the circuit closes, the daily counter increments, and
// the call's cost is added to the run total.
func (g *Guard) RecordSuccess(cost float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.circuitOpen {
		zap.L().Info("classifier circuit closed after successful call")
	}
	g.consecutiveFailures = 0
	g.circuitOpen = false

	g.maybeResetDailyLocked()
	g.dailyCalls++
	if g.dailyCalls%100 == 0 {
		zap.L().Info("classifier daily call milestone",
			zap.Int("daily_calls", g.dailyCalls),
			zap.Int("daily_limit", g.cfg.DailyCallLimit),
		)
	}
	g.runCost += cost
}

// ChargeFailed adds token spend from an attempt that returned tokens but
// failed validation. Keeps run cost monotone without touching counters.
func (g *Guard) ChargeFailed(cost float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runCost += cost
}

// CheckRunCost returns ErrRunCostExceeded once the run's accumulated spend
// crosses the ceiling.
func (g *Guard) CheckRunCost() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runCost > g.cfg.RunCostLimit {
		return ErrRunCostExceeded
	}
	return nil
}

// Stats returns an observability snapshot.
func (g *Guard) Stats() model.UsageStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return model.UsageStats{
		DailyCalls:          g.dailyCalls,
		DailyLimit:          g.cfg.DailyCallLimit,
		CircuitOpen:         g.circuitOpen,
		ConsecutiveFailures: g.consecutiveFailures,
		RunCost:             g.runCost,
	}
}

// maybeResetDailyLocked zeroes the daily counter the first time the guard
// is consulted on a new calendar date. Caller holds g.mu.
func (g *Guard) maybeResetDailyLocked() {
	now := g.nowFunc()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !g.lastResetDate.Equal(today) {
		if !g.lastResetDate.IsZero() {
			zap.L().Info("daily classifier call count reset",
				zap.Time("date", today),
			)
		}
		g.dailyCalls = 0
		g.lastResetDate = today
	}
}
