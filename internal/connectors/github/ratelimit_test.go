package github

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Update(t *testing.T) {
	r := NewRateLimiter(100)
	remaining, _, _ := r.Snapshot()
	assert.Equal(t, -1, remaining)

	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "42")
	resp.Header.Set("X-RateLimit-Limit", "5000")
	resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	r.Update(resp)

	remaining, limit, gotReset := r.Snapshot()
	assert.Equal(t, 42, remaining)
	assert.Equal(t, 5000, limit)
	assert.True(t, reset.Equal(gotReset))

	r.Update(nil)
}

func TestRateLimiter_WaitsForResetWhenExhausted(t *testing.T) {
	r := NewRateLimiter(1000)
	r.remaining = 0
	r.reset = time.Now().Add(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_PastResetDoesNotBlock(t *testing.T) {
	r := NewRateLimiter(1000)
	r.remaining = 0
	r.reset = time.Now().Add(-time.Minute)

	assert.NoError(t, r.Wait(context.Background()))
}
