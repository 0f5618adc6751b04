package healthcheck

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CheckerFunc adapts a plain probe function into a Checker. A nil error is
// healthy, anything else unhealthy.
type CheckerFunc func(ctx context.Context) error

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{Status: StatusHealthy, LastChecked: start}
	if err := f(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	check.Duration = time.Since(start)
	return check
}

// Database probes a SQL connection with a ping.
func Database(db *sql.DB) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("no database configured")
		}
		return db.PingContext(ctx)
	})
}

// byteCache is the cache surface the round-trip probe needs.
type byteCache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// CacheRoundTrip probes a cache with a short-lived write-then-read.
func CacheRoundTrip(cache byteCache) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		if cache == nil {
			return fmt.Errorf("no cache configured")
		}
		key := "healthcheck:probe"
		if err := cache.Set(ctx, key, []byte("ok"), 10*time.Second); err != nil {
			return fmt.Errorf("cache write: %w", err)
		}
		data, err := cache.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("cache read: %w", err)
		}
		if string(data) != "ok" {
			return fmt.Errorf("cache read back %q", data)
		}
		return nil
	})
}
