package llm

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter: at most max requests within
// any trailing window. Zero or negative max disables limiting.
type Limiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	requests []time.Time

	now func() time.Time // test hook
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window, now: time.Now}
}

// Wait blocks until a request slot is available (or ctx is done) and
// records the request.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.max <= 0 {
		return nil
	}
	for {
		d, ok := l.tryReserve()
		if ok {
			return nil
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// tryReserve records a request if capacity allows, otherwise returns how
// long to wait for the oldest request to leave the window.
func (l *Limiter) tryReserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	l.requests = l.requests[i:]
	if len(l.requests) < l.max {
		l.requests = append(l.requests, now)
		return 0, true
	}
	return l.requests[0].Sub(cutoff), false
}
