package ratelimiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	LIMITER_RATE    rate.Limit = 5
	LIMITER_TOKENS             = 50
	LIMITER_TIMEOUT            = 5 * time.Minute
)

// LIMITER limit requests per client ip, abusers are banned for LIMITER_TIMEOUT
var LIMITER = func(next http.Handler) http.Handler {
	limiters := NewIPRateLimiter(LIMITER_RATE, LIMITER_TOKENS)
	banned := sync.Map{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if v, ok := banned.Load(ip); ok {
			if time.Since(v.(time.Time)) <= LIMITER_TIMEOUT {
				tooMany(w)
				return
			}
			banned.Delete(ip)
		}
		if !limiters.GetLimiter(ip).Allow() {
			banned.Store(ip, time.Now())
			tooMany(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooMany(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte("<h1>YOU DID TOO MANY REQUEST, YOU HAVE BEEN BANNED FOR 5 MINUTES </h1>"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

// GetLimiter returns the rate limiter for the provided IP address, creating it if needed
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}
