// Package middleware provides HTTP middleware for the eventdash front-end.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/eventdash/internal/ratelimit"
)

// RateLimit throttles non-GET requests per client IP under the given scope.
// GET requests only render forms and always pass. Limiter errors fail open.
// window is the limiter's window and sets Retry-After on rejections.
func RateLimit(l ratelimit.Limiter, scope string, window time.Duration) func(http.Handler) http.Handler {
	retryAfter := int(window.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	msg := fmt.Sprintf("Too many attempts. Please try again in %d seconds.", retryAfter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			err := ratelimit.Check(r.Context(), l, scope+":"+ip)
			switch {
			case errors.Is(err, ratelimit.ErrRateLimited):
				slog.Info("Rate limit exceeded", "scope", scope, "ip", ip)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, msg, http.StatusTooManyRequests)
				return
			case err != nil:
				slog.Warn("Rate limiter unavailable, allowing request", "scope", scope, "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the remote IP; chi's RealIP middleware has already
// rewritten RemoteAddr from proxy headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
