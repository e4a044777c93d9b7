package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/issuescout/issuescout/internal/core"
)

// fakeClock advances only when the throttle sleeps, so timing tests run
// instantly and deterministically.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) wire(t *Throttle) {
	t.clock = func() time.Time { return f.now }
	t.sleep = func(_ context.Context, d time.Duration) error {
		f.now = f.now.Add(d)
		return nil
	}
}

func TestThrottleSpacing(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	th := NewThrottle(500 * time.Millisecond)
	clock.wire(th)

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		err := th.Dispatch(context.Background(), func(context.Context) error {
			stamps = append(stamps, clock.now)
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		require.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 500*time.Millisecond)
	}
}

func TestThrottleFirstDispatchImmediate(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Second)
	clock.wire(th)

	err := th.Dispatch(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Equal(t, start, clock.now)
}

func TestThrottleBackoffDelaysDispatch(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	deadline := start.Add(2 * time.Minute)
	th.Backoff(deadline)

	var dispatched time.Time
	err := th.Dispatch(context.Background(), func(context.Context) error {
		dispatched = clock.now
		return nil
	})
	require.NoError(t, err)
	require.False(t, dispatched.Before(deadline))
}

func TestThrottleBackoffNeverShortens(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	later := start.Add(5 * time.Minute)
	th.Backoff(later)
	th.Backoff(start.Add(time.Minute))

	require.Equal(t, later, th.BackoffUntil())
}

func TestThrottleBackoffUntilZeroWhenElapsed(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	require.True(t, th.BackoffUntil().IsZero())

	th.Backoff(start.Add(time.Minute))
	clock.now = start.Add(2 * time.Minute)
	require.True(t, th.BackoffUntil().IsZero())
}

func TestThrottleObservesRetryAfter(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	limitErr := &core.APIError{
		Category:   core.CategoryRateLimitPrimary,
		Message:    "API rate limit exceeded",
		StatusCode: http.StatusForbidden,
		RetryAfter: 30 * time.Second,
	}
	err := th.Dispatch(context.Background(), func(context.Context) error { return limitErr })
	require.ErrorIs(t, err, limitErr)

	require.Equal(t, start.Add(30*time.Second), th.BackoffUntil())
}

func TestThrottleObservesSecondaryDefault(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	limitErr := &core.APIError{
		Category:   core.CategoryRateLimitSecondary,
		Message:    "secondary rate limit",
		StatusCode: http.StatusForbidden,
	}
	err := th.Dispatch(context.Background(), func(context.Context) error { return limitErr })
	require.ErrorIs(t, err, limitErr)

	require.Equal(t, start.Add(DefaultSecondaryBackoff), th.BackoffUntil())
}

func TestThrottlePlainErrorNoBackoff(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	th := NewThrottle(time.Millisecond)
	clock.wire(th)

	err := th.Dispatch(context.Background(), func(context.Context) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	require.True(t, th.BackoffUntil().IsZero())
}

func TestThrottleContextCanceledWhileWaiting(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	th := NewThrottle(time.Millisecond)
	th.clock = func() time.Time { return start }
	th.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	th.Backoff(start.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := th.Dispatch(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
