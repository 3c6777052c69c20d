// Package resilience provides the structured error taxonomy and retry
// machinery for external classifier calls.
package resilience

import (
	"context"
	"errors"
	"net"
)

// Kind classifies a failed classifier call. The kind is decided once at the
// call boundary; downstream logic branches on it, never on message text.
type Kind int

const (
	// KindTimeout covers per-attempt deadline expiry and network timeouts.
	KindTimeout Kind = iota
	// KindRateLimited covers HTTP 429 and provider rate-limit signals.
	KindRateLimited
	// KindServerError covers 5xx and transport-level failures.
	KindServerError
	// KindBadResponse covers unparseable or shape-invalid responses.
	KindBadResponse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// CallError wraps a failed classifier attempt with its kind.
type CallError struct {
	Kind Kind
	Err  error
}

func (e *CallError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError wraps err with an explicit kind.
func NewCallError(kind Kind, err error) *CallError {
	return &CallError{Kind: kind, Err: err}
}

// KindOf returns the kind of a classified error, or (0, false) when err
// carries no CallError in its chain.
func KindOf(err error) (Kind, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// FromStatus maps an HTTP status code to a kind.
func FromStatus(code int) Kind {
	switch {
	case code == 429:
		return KindRateLimited
	case code == 408 || code == 504:
		return KindTimeout
	case code >= 500:
		return KindServerError
	default:
		return KindBadResponse
	}
}

// ClassifyTransport maps transport-level errors (no HTTP status available)
// to a kind: deadline and network timeouts become KindTimeout, everything
// else KindServerError.
func ClassifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindServerError
}
