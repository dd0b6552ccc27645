package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond keeps an authenticated token under 5000/hour.
	DefaultRequestsPerSecond = 1.2

	// MinBuffer is the number of remaining requests kept in reserve.
	MinBuffer = 10

	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// RateLimiter throttles requests and honours the API's own quota.
type RateLimiter struct {
	bucket *rate.Limiter
	now    func() time.Time

	mu        sync.Mutex
	limit     int
	remaining int // -1 until a response has been seen.
	reset     time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &RateLimiter{
		bucket:    rate.NewLimiter(rate.Limit(rps), 1),
		now:       time.Now,
		remaining: -1,
	}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	exhausted := r.remaining >= 0 && r.remaining < MinBuffer
	wait := r.reset.Sub(r.now())
	r.mu.Unlock()

	if !exhausted || wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Update records the quota headers of a response.
func (r *RateLimiter) Update(resp *http.Response) {
	if resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, err := strconv.Atoi(resp.Header.Get(headerRemaining)); err == nil {
		r.remaining = v
	}
	if v, err := strconv.Atoi(resp.Header.Get(headerLimit)); err == nil {
		r.limit = v
	}
	if v, err := strconv.ParseInt(resp.Header.Get(headerReset), 10, 64); err == nil {
		r.reset = time.Unix(v, 0)
	}
}

// Snapshot returns the last seen quota.
func (r *RateLimiter) Snapshot() (remaining, limit int, reset time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.limit, r.reset
}
