package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"actioncore/internal/config"
)

func newRouter(rl *IPRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestMiddleware_LimitsPerIP(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2, CleanupInterval: time.Hour})
	defer rl.Stop()
	r := newRouter(rl)

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.1:1234"))

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2:1234"))
	assert.Equal(t, 2, rl.Size())
}

func TestCleanup_DropsStaleClients(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.getLimiter("10.0.0.1")

	now = now.Add(30 * time.Second)
	rl.getLimiter("10.0.0.2")

	now = now.Add(45 * time.Second)
	rl.cleanup()
	assert.Equal(t, 1, rl.Size())
}

func TestStop_Idempotent(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1})
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.RateLimitConfig{RequestsPerSecond: 50, Burst: 80, CleanupMinutes: 2})
	assert.Equal(t, RateLimiterConfig{RequestsPerSecond: 50, BurstSize: 80, CleanupInterval: 2 * time.Minute}, got)
}
