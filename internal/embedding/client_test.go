package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"os"
	"testing"
	"time"
)

// fakeProvider scripts the outcome of each attempt: entries in errs are
// returned in order, a nil entry means success with a deterministic vector.
type fakeProvider struct {
	dims  int
	errs  []error
	calls int
}

func (f *fakeProvider) EmbedText(_ context.Context, text string) ([]float32, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return deterministicVector(text, f.dims), nil
}

// deterministicVector derives a stable pseudo-random vector from text, so
// tests can assert "same input, same vector" without a real provider.
func deterministicVector(text string, dims int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dims)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000.0
	}
	return vec
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// noSleep records requested backoff durations without waiting.
func noSleep(waits *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) {
		*waits = append(*waits, d)
	}
}

func TestEmbed_Success(t *testing.T) {
	provider := &fakeProvider{dims: 8}
	client := NewClient(provider, 8, testLogger())

	res := client.Embed(context.Background(), "binary search")
	if res.Unavailable {
		t.Fatal("Embed() reported unavailable, want vector")
	}
	if len(res.Vector) != 8 {
		t.Errorf("len(Vector) = %d, want 8", len(res.Vector))
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestEmbed_RetriesThenSucceeds(t *testing.T) {
	provider := &fakeProvider{
		dims: 8,
		errs: []error{errors.New("rate limited"), errors.New("rate limited"), nil},
	}
	var waits []time.Duration
	client := NewClient(provider, 8, testLogger(), WithSleep(noSleep(&waits)))

	res := client.Embed(context.Background(), "quick sort")
	if res.Unavailable {
		t.Fatal("Embed() reported unavailable after recoverable failures")
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}

	// Backoff schedule: 1s before the second attempt, 2s before the third.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("slept %d times, want %d", len(waits), len(want))
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestEmbed_UnavailableAfterAllAttempts(t *testing.T) {
	provider := &fakeProvider{
		dims: 8,
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	var waits []time.Duration
	client := NewClient(provider, 8, testLogger(), WithSleep(noSleep(&waits)))

	res := client.Embed(context.Background(), "merge sort")
	if !res.Unavailable {
		t.Fatal("Embed() returned a vector, want unavailable")
	}
	if res.Vector != nil {
		t.Error("unavailable result must carry a nil vector")
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}
}

func TestEmbed_NilProviderIsUnavailable(t *testing.T) {
	client := NewClient(nil, 8, testLogger())

	res := client.Embed(context.Background(), "anything")
	if !res.Unavailable {
		t.Fatal("Embed() with nil provider must report unavailable")
	}
}

func TestEmbed_EmptyTextIsUnavailable(t *testing.T) {
	provider := &fakeProvider{dims: 8}
	client := NewClient(provider, 8, testLogger())

	res := client.Embed(context.Background(), "   ")
	if !res.Unavailable {
		t.Fatal("Embed() with blank text must report unavailable")
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times for blank text, want 0", provider.calls)
	}
}

func TestEmbed_WrongDimensionalityIsFailure(t *testing.T) {
	// Provider consistently returns 4-dim vectors while the client expects 8.
	provider := &fakeProvider{dims: 4}
	var waits []time.Duration
	client := NewClient(provider, 8, testLogger(), WithSleep(noSleep(&waits)))

	res := client.Embed(context.Background(), "heap sort")
	if !res.Unavailable {
		t.Fatal("Embed() accepted a wrong-sized vector")
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3 (dimension mismatch retries)", provider.calls)
	}
}

func TestEmbed_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{
		dims: 8,
		errs: []error{errors.New("transient")},
	}
	client := NewClient(provider, 8, testLogger(), WithSleep(func(_ context.Context, _ time.Duration) {
		cancel()
	}))

	res := client.Embed(ctx, "dijkstra")
	if !res.Unavailable {
		t.Fatal("Embed() should report unavailable once the context is cancelled")
	}
	// First attempt failed, context cancelled during backoff: no retry.
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestRetryPolicy_WaitSchedule(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: []time.Duration{time.Second, 2 * time.Second}}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 2 * time.Second}, // last entry repeats
		{4, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := p.wait(tt.attempt); got != tt.want {
			t.Errorf("wait(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if got := (RetryPolicy{MaxAttempts: 3}).wait(1); got != 0 {
		t.Errorf("wait with empty backoff = %v, want 0", got)
	}
}
