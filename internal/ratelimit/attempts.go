package ratelimit

import (
	"context"
	"errors"
	"time"
)

var errInvalidScriptResponse = errors.New("invalid rate limit script response")

// AttemptLimiter allows at most max failures per key within a fixed window.
// The window starts with the first recorded failure.
type AttemptLimiter struct {
	store  AttemptStore
	prefix string
	max    int64
	window time.Duration
}

type AttemptStatus struct {
	Allowed    bool
	Failures   int64
	RetryAfter time.Duration
}

func NewAttemptLimiter(store AttemptStore, prefix string, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		store:  store,
		prefix: prefix,
		max:    int64(max),
		window: window,
	}
}

// Allowed reports whether key may attempt again.
func (l *AttemptLimiter) Allowed(ctx context.Context, key string) (AttemptStatus, error) {
	if l == nil || l.max <= 0 {
		return AttemptStatus{Allowed: true}, nil
	}
	count, ttl, err := l.store.Get(ctx, l.key(key))
	if err != nil {
		return AttemptStatus{}, err
	}
	status := AttemptStatus{Allowed: count < l.max, Failures: count}
	if !status.Allowed {
		status.RetryAfter = ttl
	}
	return status, nil
}

func (l *AttemptLimiter) RecordFailure(ctx context.Context, key string) (AttemptStatus, error) {
	if l == nil || l.max <= 0 {
		return AttemptStatus{Allowed: true}, nil
	}
	count, ttl, err := l.store.Incr(ctx, l.key(key), l.window)
	if err != nil {
		return AttemptStatus{}, err
	}
	status := AttemptStatus{Allowed: count < l.max, Failures: count}
	if !status.Allowed {
		status.RetryAfter = ttl
	}
	return status, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	return l.store.Delete(ctx, l.key(key))
}

func (l *AttemptLimiter) key(key string) string {
	return l.prefix + key
}
