package healthcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestAllHealthy(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	h.SetCacheTTL(0)
	h.Register("db", CheckerFunc(func(context.Context) error { return nil }))
	h.Register("cache", CheckerFunc(func(context.Context) error { return nil }))

	resp := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.True(t, h.Ready(context.Background()))
}

func TestUnhealthyDominates(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	h.SetCacheTTL(0)
	h.Register("db", CheckerFunc(func(context.Context) error { return nil }))
	h.Register("cache", CheckerFunc(func(context.Context) error { return errors.New("refused") }))

	resp := h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.False(t, h.Ready(context.Background()))

	for _, c := range resp.Checks {
		if c.Name == "cache" {
			assert.Equal(t, StatusUnhealthy, c.Status)
			assert.Equal(t, "refused", c.Message)
		}
	}
}

func TestResultsAreCached(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	h.SetCacheTTL(time.Minute)

	calls := 0
	h.Register("db", CheckerFunc(func(context.Context) error {
		calls++
		return nil
	}))

	h.Check(context.Background())
	h.Check(context.Background())
	assert.Equal(t, 1, calls)
}

func TestCacheRoundTrip(t *testing.T) {
	probe := CacheRoundTrip(&fakeCache{data: map[string][]byte{}})
	check := probe.Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)

	probe = CacheRoundTrip(nil)
	check = probe.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
}

type fakeCache struct {
	data map[string][]byte
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	return f.data[key], nil
}
