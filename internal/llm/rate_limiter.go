package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimiter smooths request flow to the provider with a token bucket
// and caps in-flight calls. All agents in one process share a limiter so
// a batch fan-out cannot trip API throttling.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	inFlight      int
	maxConcurrent int
	waiters       []chan struct{}
}

// NewRateLimiter builds a limiter allowing requestsPerMinute sustained,
// burstSize immediate, and maxConcurrent parallel calls.
func NewRateLimiter(requestsPerMinute, burstSize, maxConcurrent int) *RateLimiter {
	if burstSize < 1 {
		burstSize = 1
	}
	return &RateLimiter{
		tokens:        float64(burstSize),
		maxTokens:     float64(burstSize),
		refillRate:    float64(requestsPerMinute) / 60.0,
		lastRefill:    time.Now(),
		maxConcurrent: maxConcurrent,
	}
}

// Acquire blocks until a request slot is available or the context ends.
// Every successful Acquire must be paired with a Release.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 && (r.maxConcurrent <= 0 || r.inFlight < r.maxConcurrent) {
			r.tokens--
			r.inFlight++
			r.mu.Unlock()
			return nil
		}
		wait := r.nextTokenDelay()
		ch := make(chan struct{})
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-ch:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Release frees a concurrency slot and wakes one waiter.
func (r *RateLimiter) Release() {
	r.mu.Lock()
	if r.inFlight > 0 {
		r.inFlight--
	}
	if len(r.waiters) > 0 {
		close(r.waiters[0])
		r.waiters = r.waiters[1:]
	}
	r.mu.Unlock()
}

func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now
}

func (r *RateLimiter) nextTokenDelay() time.Duration {
	if r.tokens >= 1 || r.refillRate <= 0 {
		return 10 * time.Millisecond
	}
	need := 1 - r.tokens
	return time.Duration(need / r.refillRate * float64(time.Second))
}
