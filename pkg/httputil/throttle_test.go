package httputil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestThrottleBoundsConcurrency(t *testing.T) {
	const limit, callers = 3, 20
	th := NewThrottle(limit)

	var inFlight, peak, done atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = th.Do(context.Background(), func() error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				done.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > limit {
		t.Errorf("peak in-flight = %d, want <= %d", got, limit)
	}
	if got := done.Load(); got != callers {
		t.Errorf("completed = %d, want %d", got, callers)
	}
}

func TestThrottleReturnsFnError(t *testing.T) {
	th := NewThrottle(1)
	want := errors.New("boom")
	if err := th.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Do() = %v, want %v", err, want)
	}
}

func TestThrottleCancelledWhileWaiting(t *testing.T) {
	th := NewThrottle(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = th.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := th.Do(ctx, func() error { called = true; return nil })
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() = %v, want deadline exceeded", err)
	}
	if called {
		t.Error("fn should not run when the slot never frees")
	}
}

func TestNewThrottleMinimum(t *testing.T) {
	if got := NewThrottle(0).Limit(); got != 1 {
		t.Errorf("Limit() = %d, want 1", got)
	}
}
