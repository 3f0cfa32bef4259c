package httpserver

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter is chi middleware holding one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newIPRateLimiter(reqPerMinute float64) *ipRateLimiter {
	burst := int(reqPerMinute / 6) // 10 seconds worth
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(reqPerMinute / 60),
		burst:    burst,
	}
}

func (l *ipRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow reports whether key may proceed, and if not, how long to wait.
func (l *ipRateLimiter) Allow(key string) (bool, time.Duration) {
	lim := l.limiter(key)
	if lim.Allow() {
		return true, 0
	}
	r := lim.Reserve()
	delay := r.Delay()
	r.Cancel()
	return false, delay
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.Allow(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port chi's RealIP leaves on RemoteAddr when no proxy
// header was present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
