// Package ratelimit throttles repeated submissions of the public auth forms.
package ratelimit

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited is returned when a key has exhausted its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Limiter decides whether another attempt is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Check consumes one attempt for key. It returns ErrRateLimited when the
// budget is exhausted and the limiter's own error when it cannot decide.
func Check(ctx context.Context, l Limiter, key string) error {
	ok, err := l.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
