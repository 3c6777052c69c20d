// Package classifier calls the Anthropic API to judge whether a post is a
// genuine agency-seeking lead. Every call runs under the budget guard and a
// bounded retry loop; when the classifier cannot answer, the post degrades
// to a permissive fallback verdict rather than being dropped.
package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/perch-labs/leadscout/internal/budget"
	"github.com/perch-labs/leadscout/internal/cost"
	"github.com/perch-labs/leadscout/internal/model"
	"github.com/perch-labs/leadscout/internal/resilience"
	"github.com/perch-labs/leadscout/pkg/anthropic"
)

const (
	defaultModel          = "claude-haiku-4-5-20251001"
	defaultMaxTokens      = 500
	defaultTemperature    = 0.1
	defaultAttemptTimeout = 30 * time.Second
)

// Config controls the classifier client.
type Config struct {
	// Model is the Anthropic model identifier.
	Model string

	// MaxTokens bounds the response length. Default: 500.
	MaxTokens int64

	// Temperature for the completion. Default: 0.1.
	Temperature float64

	// AttemptTimeout bounds each individual API attempt. Default: 30s.
	AttemptTimeout time.Duration

	// CallsPerSecond optionally paces outbound calls; zero disables pacing.
	CallsPerSecond float64

	// Retry overrides the retry policy; zero values take defaults.
	Retry resilience.RetryConfig
}

// Client classifies post content through the Anthropic API.
type Client struct {
	ai      anthropic.Client
	guard   *budget.Guard
	calc    *cost.Calculator
	cfg     Config
	prompts Prompts
	limiter *rate.Limiter
}

// New builds a classifier Client. The guard is consulted before every
// attempt; the calculator converts token usage into run cost.
func New(ai anthropic.Client, guard *budget.Guard, calc *cost.Calculator, cfg Config, prompts Prompts) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}

	c := &Client{
		ai:      ai,
		guard:   guard,
		calc:    calc,
		cfg:     cfg,
		prompts: prompts,
	}
	if cfg.CallsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1)
	}
	return c
}

// shortCircuitError marks a guard rejection: the attempt never went out, so
// the retry loop must stop immediately instead of burning attempts.
type shortCircuitError struct {
	err error
}

func (e *shortCircuitError) Error() string { return e.err.Error() }
func (e *shortCircuitError) Unwrap() error { return e.err }

// Classify judges one post. It returns a fallback verdict (never an error)
// when the circuit is open, the daily quota is spent, or all retry attempts
// fail; the caller checks the guard's run-cost ceiling separately.
func (c *Client) Classify(ctx context.Context, content, authorName, authorTitle string) model.Verdict {
	retryCfg := c.cfg.Retry
	retryCfg.ShouldRetry = func(err error) bool {
		var sc *shortCircuitError
		return !errors.As(err, &sc)
	}
	retryCfg.OnRetry = resilience.RetryLogger("classify")

	verdict, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (model.Verdict, error) {
		return c.attempt(ctx, content, authorName, authorTitle)
	})
	if err == nil {
		return verdict
	}

	var sc *shortCircuitError
	if errors.As(err, &sc) {
		zap.L().Warn("classification skipped, using fallback verdict",
			zap.Error(sc.err),
		)
		return FallbackVerdict("classification skipped: " + sc.err.Error())
	}

	zap.L().Warn("classification failed after retries, using fallback verdict",
		zap.Error(err),
	)
	return FallbackVerdict("classification failed: " + err.Error())
}

func (c *Client) attempt(ctx context.Context, content, authorName, authorTitle string) (model.Verdict, error) {
	if err := c.guard.AllowCall(); err != nil {
		return model.Verdict{}, &shortCircuitError{err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.Verdict{}, eris.Wrap(err, "classifier: rate limiter")
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	temp := c.cfg.Temperature
	resp, err := c.ai.CreateMessage(actx, anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(content, authorName, authorTitle, c.prompts)},
		},
	})
	if err != nil {
		c.guard.RecordFailure()
		return model.Verdict{}, resilience.NewCallError(callKind(err), err)
	}

	callCost := c.calc.Call(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	verdict, perr := parseVerdict(resp.Text)
	if perr != nil {
		// Tokens were consumed even though the response failed
		// validation; the spend still counts against the run.
		c.guard.RecordFailure()
		c.guard.ChargeFailed(callCost)
		return model.Verdict{}, resilience.NewCallError(resilience.KindBadResponse, perr)
	}

	c.guard.RecordSuccess(callCost)
	return verdict, nil
}

// callKind maps an API error to its transient-failure kind: HTTP status
// when the error carries one, transport classification otherwise.
func callKind(err error) resilience.Kind {
	if code, ok := anthropic.StatusCode(err); ok {
		return resilience.FromStatus(code)
	}
	return resilience.ClassifyTransport(err)
}
