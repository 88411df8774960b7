package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(limit int, d time.Duration) (*FixedWindow, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewFixedWindow(limit, d)
	l.now = clock.Now
	return l, clock
}

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other keys have their own window")
}

func TestFixedWindowResetsAfterDuration(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	clock.Advance(time.Minute)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestFixedWindowSweepsExpiredKeys(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, _ = l.Allow(ctx, k)
	}
	require.Len(t, l.windows, 3)

	clock.Advance(3 * time.Second)
	_, _ = l.Allow(ctx, "d")
	assert.Len(t, l.windows, 1)
	assert.Contains(t, l.windows, "d")
}

func TestFixedWindowConcurrentCallers(t *testing.T) {
	l, _ := newTestLimiter(50, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestRedisWindowKeyChangesPerWindow(t *testing.T) {
	l := NewRedisLimiter(nil, "circles:rl", 10, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	k1 := l.windowKey("1.2.3.4", base)
	k2 := l.windowKey("1.2.3.4", base.Add(59*time.Second))
	k3 := l.windowKey("1.2.3.4", base.Add(61*time.Second))

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "circles:rl:1.2.3.4:")
}
