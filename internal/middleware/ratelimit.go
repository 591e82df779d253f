package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"caricagen/internal/i18n"
)

// RateLimit allows limit requests per window for each client IP using a
// token bucket. Idle buckets expire after a few windows.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 || per <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	every := rate.Every(per / time.Duration(limit))
	buckets := cache.New(3*per, 10*per)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			limiter := bucketFor(buckets, ip, every, limit)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(int((per/time.Duration(limit)).Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": i18n.T(LocaleFromContext(r.Context()), "Too many requests"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bucketFor(buckets *cache.Cache, ip string, every rate.Limit, burst int) *rate.Limiter {
	if v, ok := buckets.Get(ip); ok {
		buckets.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(every, burst)
	if err := buckets.Add(ip, limiter, cache.DefaultExpiration); err != nil {
		if v, ok := buckets.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
