package client

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
)

// Waiter blocks between two load status checks.
type Waiter interface {
	Wait(ctx context.Context) error
	Stop()
}

// WaiterFactory builds the waiter used by one PollStatus call.
type WaiterFactory func(interval time.Duration) Waiter

// NewTickerWaiter waits at least interval on every Wait, plus a small
// normal jitter. The delay is armed when Wait is called, so the time a
// status request takes never shortens the pause that follows it.
func NewTickerWaiter(interval time.Duration) Waiter {
	if interval <= 0 {
		return immediateWaiter{}
	}
	return &tickerWaiter{
		interval: interval,
		jitter:   atLeast{jitterbug.Norm{Stdev: 30 * time.Millisecond, Mean: 0}},
	}
}

type tickerWaiter struct {
	interval time.Duration
	jitter   jitterbug.Jitter
}

func (t *tickerWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(t.jitter.Jitter(t.interval))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *tickerWaiter) Stop() {}

// atLeast drops the negative half of the wrapped jitter.
type atLeast struct {
	base jitterbug.Jitter
}

func (a atLeast) Jitter(d time.Duration) time.Duration {
	return max(d, a.base.Jitter(d))
}

type immediateWaiter struct{}

func (immediateWaiter) Wait(ctx context.Context) error {
	return ctx.Err()
}

func (immediateWaiter) Stop() {}
