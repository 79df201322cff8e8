package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/cove/pkg/httputil"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         1,
		MaxTrackedActors:  100,
	})

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))

	// Other keys have their own bucket.
	assert.True(t, rl.Allow("u2"))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Second,
		BurstSize:         0,
		MaxTrackedActors:  100,
	})

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("u1"))
	}
	assert.False(t, rl.Allow("u1"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
		BurstSize:         0,
		MaxTrackedActors:  100,
	})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/organizations", nil)
		if actor != "" {
			req.Header.Set(httputil.ActorHeader, actor)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, request("u1").Code)
	blocked := request("u1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	// A different actor is not affected.
	assert.Equal(t, http.StatusOK, request("u2").Code)
}
