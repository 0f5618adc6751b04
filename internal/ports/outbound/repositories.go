// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/domain/quota"
)

// QuotaStore holds per (clientID, day) usage records. Reading a key that
// does not exist yet creates a zeroed record instead of failing. The store
// is process-scoped and not durable; a restart loses all counts, which is an
// accepted constraint for this single-node usage counter.
//
// Implementations must make each operation atomic per store: "check cap"
// and "increment" race on the same counter under concurrent requests, so
// check-then-act has to happen inside one critical section.
type QuotaStore interface {
	// GetCount reads the current count for a client and day bucket.
	GetCount(clientID, day string) (int, error)

	// Increment adds one unconditionally and returns the new count. Used by
	// the per-query counting granularity.
	Increment(clientID, day string) (int, error)

	// AllowAndIncrement increments only when the count is still under cap,
	// as a single atomic step. Used by the count-at-chain-start flow.
	AllowAndIncrement(clientID, day string, cap quota.Cap) (allowed bool, count int, err error)

	// EndChain marks the chain counted and increments, at most once per
	// chainID per day and only while under cap. Returns whether this call
	// actually incremented, plus the resulting count.
	EndChain(clientID, day, chainID string, cap quota.Cap) (counted bool, count int, err error)

	// MarkChainCounted inserts the chainID into the counted set without
	// touching the count, reporting whether it was newly marked.
	MarkChainCounted(clientID, day, chainID string) (bool, error)

	// ResetDay zeroes a single day bucket. Dev/test utility.
	ResetDay(clientID, day string) error
}

// ChainStore tracks the active chain pointer per client for the
// server-observed flow. At most one chain is active per client; beginning a
// new one supersedes the old.
type ChainStore interface {
	PutChain(clientID string, chain *quota.ChainState) error
	GetChain(clientID string) (*quota.ChainState, error)
	DeleteChain(clientID string) error
}

// AnalyticsRepository persists usage, feedback and survey rows and serves
// the admin dashboard queries.
type AnalyticsRepository interface {
	InsertUsageEvent(ctx context.Context, event *analytics.UsageEvent) error
	InsertFeedback(ctx context.Context, fb *analytics.Feedback) error
	InsertSurveyResponse(ctx context.Context, sr *analytics.SurveyResponse) error

	RecentSearches(ctx context.Context, limit int) ([]analytics.UsageEvent, error)
	RecentFeedback(ctx context.Context, limit int) ([]analytics.Feedback, error)
	EventsSince(ctx context.Context, since time.Time) ([]analytics.UsageEvent, error)
	FeedbackSince(ctx context.Context, since time.Time) ([]analytics.Feedback, error)
	LatestUsage(ctx context.Context, limit int) ([]analytics.UsageEvent, error)

	GetTokens(ctx context.Context, userID string) (int, error)
	UpsertTokens(ctx context.Context, userID string, count int) error
}

// CacheRepository is the narrow cache surface used to memoize
// recommendation responses.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
