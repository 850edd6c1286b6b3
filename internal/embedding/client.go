package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Client turns a fallible Provider into the embed-or-unavailable contract
// the rest of the application consumes.
//
// A nil provider is valid and means "no credentials configured": every call
// reports Unavailable immediately. This lets the server run without an API
// key — semantic search silently serves text results instead.
type Client struct {
	provider   Provider
	dimensions int
	policy     RetryPolicy
	sleep      SleepFunc
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithSleep overrides how the client waits between attempts. Tests inject a
// recording no-op here so retry behaviour runs without real delays.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// WithDimensions overrides the expected vector length. The default matches
// model.EmbeddingDimensions for text-embedding-3-small (1536).
func WithDimensions(n int) Option {
	return func(c *Client) {
		c.dimensions = n
	}
}

// NewClient creates a Client around provider. provider may be nil when no
// embedding backend is configured.
func NewClient(provider Provider, dimensions int, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		provider:   provider,
		dimensions: dimensions,
		policy:     DefaultRetryPolicy(),
		sleep:      defaultSleep,
		logger:     logger.With(slog.String("component", "embedding")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed generates an embedding for text, retrying transient provider
// failures per the client's policy.
//
// Failure semantics: the provider's raw error is logged and absorbed, never
// propagated. Total failure — missing provider, exhausted retries, wrong
// dimensionality, cancelled context — yields Result{Unavailable: true}.
func (c *Client) Embed(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Unavailable: true}
	}

	if c.provider == nil {
		c.logger.Debug("no embedding provider configured, reporting unavailable")
		return Result{Unavailable: true}
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		vec, err := c.provider.EmbedText(ctx, text)
		if err == nil {
			if len(vec) != c.dimensions {
				// A wrong-sized vector would poison similarity ranking,
				// so it counts as a failed attempt.
				err = fmt.Errorf("provider returned %d dimensions, want %d", len(vec), c.dimensions)
			} else {
				return Result{Vector: vec}
			}
		}

		lastErr = err
		c.logger.Warn("embedding attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < c.policy.MaxAttempts {
			c.sleep(ctx, c.policy.wait(attempt))
		}
	}

	c.logger.Error("embedding unavailable after all attempts",
		slog.Int("attempts", c.policy.MaxAttempts),
		slog.Any("error", lastErr),
	)
	return Result{Unavailable: true}
}

// defaultSleep waits for d, returning early if ctx is cancelled.
func defaultSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
