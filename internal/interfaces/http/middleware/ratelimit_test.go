package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenDeny(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 3, 0)

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("client-a")
		assert.True(t, allowed, "request %d within burst", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	l := NewTokenBucketLimiter(100, 1, 0)

	allowed, _ := l.Allow("client-a")
	require.True(t, allowed)
	allowed, _ = l.Allow("client-a")
	require.False(t, allowed)

	time.Sleep(50 * time.Millisecond)

	allowed, _ = l.Allow("client-a")
	assert.True(t, allowed, "tokens refill over time")
}

func TestTokenBucketLimiter_PerKeyIsolation(t *testing.T) {
	l := NewTokenBucketLimiter(0.001, 1, 0)

	allowed, _ := l.Allow("client-a")
	require.True(t, allowed)
	allowed, _ = l.Allow("client-a")
	require.False(t, allowed)

	allowed, _ = l.Allow("client-b")
	assert.True(t, allowed, "exhausting one key leaves others untouched")
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l := NewTokenBucketLimiter(1000, 2, 20*time.Millisecond)
	defer l.Stop()

	l.Allow("client-a")
	require.Equal(t, 1, l.BucketCount())

	assert.Eventually(t, func() bool {
		return l.BucketCount() == 0
	}, time.Second, 10*time.Millisecond, "idle full buckets are swept")
}

func newRateLimitedEngine(limiter RateLimiter) *gin.Engine {
	engine := gin.New()
	engine.Use(RateLimit(limiter))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 2, 0)
	engine := newRateLimitedEngine(limiter)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_RejectsWhenExhausted(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	engine := newRateLimitedEngine(limiter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"COMMON_006"`)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}
