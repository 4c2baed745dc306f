package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// KeyedThrottle is a token bucket per key, used to slow down password guessing
// against a single account. The least recently used keys are forgotten once
// maxKeys is reached.
type KeyedThrottle struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func NewKeyedThrottle(perSecond float64, burst, maxKeys int) (*KeyedThrottle, error) {
	if burst <= 0 {
		burst = 1
	}
	cache, err := lru.New[string, *rate.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("throttle cache: %w", err)
	}
	return &KeyedThrottle{limiters: cache, rate: rate.Limit(perSecond), burst: burst}, nil
}

func (t *KeyedThrottle) Allow(key string) bool {
	return t.AllowAt(key, time.Now())
}

func (t *KeyedThrottle) AllowAt(key string, now time.Time) bool {
	key = strings.ToLower(strings.TrimSpace(key))

	t.mu.Lock()
	limiter, ok := t.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(t.rate, t.burst)
		t.limiters.Add(key, limiter)
	}
	t.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Interval is how long a drained bucket takes to earn one attempt back.
func (t *KeyedThrottle) Interval() time.Duration {
	if t.rate <= 0 || t.rate == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(t.rate))
}
