package candles

import (
	"sync"
	"time"
)

// AccountLimiter enforces a minimum spacing between calls issued against one
// exchange account. Exchanges meter per API key, not per request, so every
// fetch running against the same account must share one limiter.
type AccountLimiter struct {
	mu         sync.Mutex
	minSpacing time.Duration
	nextSlot   time.Time
}

// NewAccountLimiter returns a limiter that keeps at least minSpacing between
// consecutive calls. A zero or negative spacing disables limiting.
func NewAccountLimiter(minSpacing time.Duration) *AccountLimiter {
	return &AccountLimiter{minSpacing: minSpacing}
}

// Reserve claims the next call slot and returns how long the caller must wait
// before issuing it. Only the slot bookkeeping happens under the lock; the
// caller performs the wait itself, outside any critical section.
func (l *AccountLimiter) Reserve(now time.Time) time.Duration {
	if l.minSpacing <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nextSlot.Before(now) {
		l.nextSlot = now
	}

	wait := l.nextSlot.Sub(now)
	l.nextSlot = l.nextSlot.Add(l.minSpacing)

	return wait
}
