// Package ratelimit provides token bucket rate limiters for outbound
// LINE API calls: one shared bucket and one bucket per chat.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket refilled continuously at a fixed rate.
// A request costs one token. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	burst  float64
	rate   float64 // tokens per second
	tokens float64
	last   time.Time
	now    func() time.Time
}

// New creates a limiter holding burst tokens that refills at rate per second.
//
//	// 100 requests per second, bursts of 100
//	limiter := ratelimit.New(100, 100)
func New(burst, rate float64) *Limiter {
	return newWithClock(burst, rate, time.Now)
}

func newWithClock(burst, rate float64, now func() time.Time) *Limiter {
	return &Limiter{burst: burst, rate: rate, tokens: burst, last: now(), now: now}
}

// advance credits the tokens earned since the last call. mu must be held.
func (l *Limiter) advance() {
	t := l.now()
	if d := t.Sub(l.last); d > 0 {
		l.tokens = min(l.burst, l.tokens+d.Seconds()*l.rate)
	}
	l.last = t
}

// take consumes a token when one is available. Otherwise it returns how
// long until the next whole token.
func (l *Limiter) take() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	return false, time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Allow consumes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	ok, _ := l.take()
	return ok
}

// Wait blocks until a token is consumed or ctx is done, in which case it
// returns ctx.Err().
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, wait := l.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.tokens
}

// IsFull reports whether the bucket is at capacity, i.e. the limiter is idle.
func (l *Limiter) IsFull() bool {
	return l.Available() >= l.burst
}
