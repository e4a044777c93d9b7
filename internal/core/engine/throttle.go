// Package engine holds the shared mechanics every outbound request
// passes through: the throttle that serializes dispatch and the
// TTL+revalidation cache in front of it.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/issuescout/issuescout/internal/core"
)

const (
	// DefaultSpacing keeps back-to-back requests far enough apart to
	// stay under GitHub's burst-sensitive secondary limit.
	DefaultSpacing = 500 * time.Millisecond

	// DefaultSecondaryBackoff applies when the API signals a secondary
	// limit without telling us how long to wait.
	DefaultSecondaryBackoff = 60 * time.Second
)

// Throttle serializes all outbound requests. Exactly one dispatch runs
// at a time; before each one the throttle waits out any active back-off
// deadline, then whatever remains of the minimum spacing gap since the
// previous dispatch. One instance per process, injected into every
// transport.
type Throttle struct {
	queue sync.Mutex // held across wait+dispatch, so dispatches run one at a time

	mu               sync.Mutex // guards the fields below
	lastDispatch     time.Time
	backoffUntil     time.Time
	spacing          time.Duration
	secondaryBackoff time.Duration

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle constructs a throttle with the given inter-request
// spacing. A non-positive spacing falls back to DefaultSpacing.
func NewThrottle(spacing time.Duration) *Throttle {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	return &Throttle{
		spacing:          spacing,
		secondaryBackoff: DefaultSecondaryBackoff,
	}
}

// Dispatch runs fn after the back-off deadline and spacing gap have
// both elapsed. Callers queue up behind one another; a failing fn is
// returned to its own caller and does not stall the queue. The context
// is honored while waiting, but fn itself is never cut short: aborting
// a dispatched request would falsify the spacing accounting.
func (t *Throttle) Dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	t.queue.Lock()
	defer t.queue.Unlock()

	for {
		wait := t.waitRequired()
		if wait <= 0 {
			break
		}
		if err := t.doSleep(ctx, wait); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.lastDispatch = t.now()
	t.mu.Unlock()

	err := fn(ctx)
	t.observe(err)
	return err
}

// Backoff moves the global back-off deadline forward to until. An
// earlier deadline never overwrites a later one.
func (t *Throttle) Backoff(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until.After(t.backoffUntil) {
		t.backoffUntil = until
	}
}

// BackoffUntil returns the current deadline, zero when none is active.
// Schedulers should consult this instead of keeping their own recovery
// timer.
func (t *Throttle) BackoffUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.now().After(t.backoffUntil) {
		return time.Time{}
	}
	return t.backoffUntil
}

// observe applies back-off signals carried by a classified error: any
// Retry-After hint sets the deadline outright, and a secondary limit
// without one gets the default pause.
func (t *Throttle) observe(err error) {
	apiErr, ok := core.AsAPIError(err)
	if !ok {
		return
	}

	now := t.now()
	if apiErr.RetryAfter > 0 {
		t.Backoff(now.Add(apiErr.RetryAfter))
		return
	}
	if apiErr.Category == core.CategoryRateLimitSecondary {
		t.Backoff(now.Add(t.secondaryBackoff))
	}
}

func (t *Throttle) waitRequired() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	wait := time.Duration(0)
	if t.backoffUntil.After(now) {
		wait = t.backoffUntil.Sub(now)
	}
	if !t.lastDispatch.IsZero() {
		if gap := t.lastDispatch.Add(t.spacing).Sub(now); gap > wait {
			wait = gap
		}
	}
	return wait
}

func (t *Throttle) doSleep(ctx context.Context, d time.Duration) error {
	if t.sleep != nil {
		return t.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Throttle) now() time.Time {
	if t.clock != nil {
		return t.clock()
	}
	return time.Now().UTC()
}
