// Package embedding wraps the external embedding provider behind a client
// that owns the retry/backoff policy and absorbs failures.
//
// The contract the rest of the application relies on: Client.Embed returns
// either a vector of the configured dimensionality or an Unavailable result.
// It never returns an error. "The provider is down" is a valid, expected
// outcome here — the search orchestrator falls back to text search and the
// snippet write path records a non-fatal flag — so it must not look like a
// request failure to callers.
package embedding

import (
	"context"
	"time"
)

// Provider is the raw embedding backend: one text in, one vector out.
// Implementations may fail with transient network errors; the Client is
// responsible for retries and for converting total failure into an
// Unavailable result.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Result is the outcome of an embedding attempt.
//
// Exactly one of the two shapes is populated: a Vector of the configured
// dimensionality, or Unavailable=true with a nil Vector. Callers branch on
// Unavailable rather than nil-checking the slice.
type Result struct {
	Vector      []float32
	Unavailable bool
}

// SleepFunc waits for the given duration or until ctx is done. Injected so
// retry behaviour is testable without real delays.
type SleepFunc func(ctx context.Context, d time.Duration)

// RetryPolicy bounds how often the client re-attempts a failed provider
// call and how long it waits in between.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff holds the wait before each re-attempt: Backoff[0] before
	// attempt 2, Backoff[1] before attempt 3, and so on. When there are
	// more re-attempts than entries, the last entry repeats.
	Backoff []time.Duration
}

// DefaultRetryPolicy is the production policy: three attempts total, with
// 1s and then 2s between them. Worst case it adds ~3s of latency to the
// calling request, which is accepted — snippet writes and searches are not
// hard-real-time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{1 * time.Second, 2 * time.Second},
	}
}

// wait returns the backoff before re-attempt number attempt+1 (1-based).
func (p RetryPolicy) wait(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt-1 < len(p.Backoff) {
		return p.Backoff[attempt-1]
	}
	return p.Backoff[len(p.Backoff)-1]
}
