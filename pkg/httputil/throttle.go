package httputil

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Throttle bounds the number of simultaneous callers of [Throttle.Do].
// It is safe for concurrent use. Waiters are admitted in FIFO order.
type Throttle struct {
	sem   *semaphore.Weighted
	limit int
}

// NewThrottle returns a Throttle admitting at most limit concurrent callers.
// A limit below 1 is treated as 1.
func NewThrottle(limit int) *Throttle {
	limit = max(limit, 1)
	return &Throttle{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit returns the configured concurrency bound.
func (t *Throttle) Limit() int { return t.limit }

// Do waits for a free slot, runs fn and releases the slot.
// If ctx is done before a slot frees up, Do returns ctx.Err() without
// calling fn.
func (t *Throttle) Do(ctx context.Context, fn func() error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)
	return fn()
}
