// Package ratelimit implements fixed-window admission control keyed by client.
//
// Counters live in an injected Store. MemoryStore is process-local: every API
// instance counts on its own, so the effective quota grows with the number of
// instances. Use RedisStore when the limit must hold across instances.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultWindow = 15 * time.Minute
	DefaultLimit  = 100

	UnknownClient = "unknown"
)

var ErrRateLimited = errors.New("rate limited")

// Store counts hits per key inside a fixed window. Increment starts a new window
// when none is open for the key.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

type Result struct {
	Allowed    bool
	Limit      int
	Count      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds.
func (r Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

type Limiter struct {
	store  Store
	window time.Duration
	limit  int
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store Store, window time.Duration, limit int, opts ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{store: store, window: window, limit: limit, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) Limit() int            { return l.limit }

// Allow records one request for key. Concurrent requests for the same key may
// each observe the same count, so the bound is approximate.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	count, resetAt, err := l.store.Increment(ctx, key, l.window, now)
	if err != nil {
		return Result{}, fmt.Errorf("increment %s: %w", key, err)
	}

	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Count:     count,
		Remaining: max(l.limit-count, 0),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		wait := resetAt.Sub(now)
		if wait > l.window {
			wait = l.window
		}
		if wait < time.Second {
			wait = time.Second
		}
		res.RetryAfter = wait
	}
	return res, nil
}

// ClientKey derives the limiter key from forwarding headers.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return UnknownClient
}
