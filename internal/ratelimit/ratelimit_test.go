package ratelimit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	window := 15 * time.Minute
	limiter := NewLimiter(NewMemoryStore(), window, 3, WithClock(clk.Now))

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 3-i, res.Remaining)
	}

	clk.Advance(5 * time.Minute)
	res, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 600, res.RetryAfterSeconds())
	assert.LessOrEqual(t, res.RetryAfter, window)

	other, err := limiter.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	clk.Advance(10*time.Minute + time.Millisecond)
	res, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "first request of the next window")
	assert.Equal(t, 1, res.Count)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	ctx := context.Background()

	_, _, _ = store.Increment(ctx, "a", time.Minute, now)
	_, _, _ = store.Increment(ctx, "b", time.Hour, now)
	require.Equal(t, 2, store.Len())

	assert.Equal(t, 1, store.Sweep(now.Add(2*time.Minute)))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Increment(context.Background(), "k", time.Minute, now)
		}()
	}
	wg.Wait()

	count, _, err := store.Increment(context.Background(), "k", time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, 51, count)
}

func TestRedisStoreSharedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	window := time.Minute
	a := NewLimiter(NewRedisStore(client), window, 2)
	b := NewLimiter(NewRedisStore(client), window, 2)

	res, err := a.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = b.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = a.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, res.Allowed, "limit is shared across limiters")
	assert.Greater(t, res.RetryAfterSeconds(), 0)
	assert.LessOrEqual(t, res.RetryAfter, window)

	mr.FastForward(window + time.Second)

	res, err = a.Allow(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Count)
}

func TestRedisStoreRepairsMissingExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(redisKeyPrefix+"k", "7"))

	count, _, err := NewRedisStore(client).Increment(context.Background(), "k", time.Minute, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 8, count)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"k"))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}, "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.2"}, "10.0.0.2"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "10.0.0.3", "X-Real-IP": "10.0.0.4"}, "10.0.0.3"},
		{"no headers", nil, UnknownClient},
		{"blank forwarded", map[string]string{"X-Forwarded-For": " , 1.1.1.1"}, UnknownClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientKey(req))
		})
	}
}

func TestKeyedThrottle(t *testing.T) {
	throttle, err := NewKeyedThrottle(1, 2, 10)
	require.NoError(t, err)
	now := time.Now()

	assert.True(t, throttle.AllowAt("Admin@Example.com", now))
	assert.True(t, throttle.AllowAt("admin@example.com", now))
	assert.False(t, throttle.AllowAt("admin@example.com", now))
	assert.True(t, throttle.AllowAt("other@example.com", now))

	assert.True(t, throttle.AllowAt("admin@example.com", now.Add(1500*time.Millisecond)))
}
