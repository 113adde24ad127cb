package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket that caps requests against the odds provider.
type Limiter struct {
	rate       float64 // tokens per second
	tokens     float64
	burst      float64
	lastUpdate time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// New creates a limiter allowing rps requests per second with a burst of one.
// A non-positive rps falls back to one request per second.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	l := &Limiter{
		rate:  rps,
		burst: 1,
		now:   time.Now,
	}
	l.tokens = l.burst
	l.lastUpdate = l.now()
	return l
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve takes a token and returns zero, or returns how long until one is due.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.lastUpdate).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastUpdate = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return 0
	}

	missing := 1.0 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}

// Sleep pauses for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
