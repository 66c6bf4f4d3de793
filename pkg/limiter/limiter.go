// Package limiter paces calls to an external system.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket that can additionally be paused when the
// remote side asks to slow down.
type Limiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// New allows one call per interval with bursts up to burst.
func New(interval time.Duration, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := time.Until(l.pausedUntil)
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Allow reports whether a call may happen now without waiting.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	paused := time.Now().Before(l.pausedUntil)
	l.mu.Unlock()

	return !paused && l.limiter.Allow()
}

// Pause holds every caller for d. Overlapping pauses extend each other.
func (l *Limiter) Pause(d time.Duration) {
	until := time.Now().Add(d)

	l.mu.Lock()
	defer l.mu.Unlock()

	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
}

// SetRate changes the pace for subsequent calls.
func (l *Limiter) SetRate(interval time.Duration, burst int) {
	l.limiter.SetLimit(rate.Every(interval))
	l.limiter.SetBurst(burst)
}
