package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/inboxplan/internal/mail"
)

// MethodHeuristic is the extraction method recorded when every provider
// failed and the deterministic heuristic produced the item.
const MethodHeuristic = "fallback-heuristic"

// Item is a raw extracted item as produced by a provider. It is transient:
// it exists only between extraction and normalization.
type Item struct {
	// Provider names the adapter that produced the item, or
	// MethodHeuristic.
	Provider string
	// Title is the free-text task title.
	Title string
	// Due is the due date string as emitted by the provider; may be empty.
	Due string
	// Priority is the provider's priority label; may be empty.
	Priority string
	// Confidence is the provider's confidence indicator; zero when absent.
	Confidence float64
}

// FailureClass categorizes provider failures. Every class advances the
// fallback chain to the next adapter; none is surfaced past it.
type FailureClass int

const (
	// Unavailable covers network and auth failures reaching the provider.
	Unavailable FailureClass = iota
	// RateLimited indicates the provider rejected the call for quota.
	RateLimited
	// MalformedResponse indicates the provider answered with output that
	// could not be parsed into items.
	MalformedResponse
	// Timeout indicates the per-call deadline elapsed.
	Timeout
)

// String returns the failure class label used in logs and metrics.
func (c FailureClass) String() string {
	switch c {
	case Unavailable:
		return "unavailable"
	case RateLimited:
		return "rate_limited"
	case MalformedResponse:
		return "malformed_response"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProviderError is the typed error returned by provider adapters.
type ProviderError struct {
	Provider string
	Class    FailureClass
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Class)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClassOf returns the failure class of a provider error, or Unavailable for
// anything else.
func ClassOf(err error) FailureClass {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return Unavailable
}

// Provider is the single capability every AI backend adapter implements.
// An empty item slice is a valid, successful result for an email that
// contains no tasks; it is distinct from failure.
type Provider interface {
	// Name identifies the adapter; it becomes the extraction method of
	// the tasks it produces.
	Name() string
	// Extract produces raw items for one message. Failures are
	// *ProviderError values.
	Extract(ctx context.Context, msg mail.Message) ([]Item, error)
}
