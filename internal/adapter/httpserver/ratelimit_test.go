package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_AllowsBurst(t *testing.T) {
	l := newIPRateLimiter(60) // 1 req/s, burst 10

	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok, "request %d should be allowed", i)
	}
}

func TestIPRateLimiter_BlocksExcessRequests(t *testing.T) {
	l := newIPRateLimiter(60)

	for i := 0; i < 10; i++ {
		l.Allow("10.0.0.1")
	}

	ok, retryAfter := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, retryAfter.Seconds(), float64(0))
}

func TestIPRateLimiter_IndependentKeys(t *testing.T) {
	l := newIPRateLimiter(60)

	for i := 0; i < 10; i++ {
		l.Allow("10.0.0.1")
	}
	ok, _ := l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)
}

func TestIPRateLimiter_MinimumBurst(t *testing.T) {
	l := newIPRateLimiter(1)
	assert.Equal(t, 1, l.burst)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := newIPRateLimiter(6) // burst 1

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Same IP, different source port.
	req2 := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req2.RemoteAddr = "1.2.3.4:5678"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.NotEmpty(t, w2.Header().Get("Retry-After"))
	assert.Contains(t, w2.Body.String(), "rate limit exceeded")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:9000"
	assert.Equal(t, "::1", clientIP(r))

	r.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", clientIP(r))
}
