package candles

import (
	"context"
	"math/rand"
	"time"
)

// Clock abstracts wall-clock time so retry and rate-limit behaviour can be
// driven deterministically in tests without real waits.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled, in which case it returns
	// the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the real time package.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// Backoff computes retry delays: exponential growth from Base, capped at Cap,
// with up to Jitter (a 0..1 fraction) of each delay randomized so concurrent
// fetches against one account do not retry in lockstep.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}

	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Cap > 0 && d >= b.Cap {
			d = b.Cap
			break
		}
	}

	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}

	if b.Jitter > 0 {
		spread := time.Duration(float64(d) * b.Jitter)
		d = d - spread/2 + time.Duration(rand.Int63n(int64(spread)+1))
	}

	return d
}
