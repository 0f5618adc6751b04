// Package analytics records usage, feedback and survey rows and serves the
// admin dashboard aggregations.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	apperrors "github.com/rekomendr/rekomendr/pkg/errors"
	"go.uber.org/zap"
)

// StatsWindowDays is the admin dashboard lookback.
const StatsWindowDays = 14

// Totals sums the stats window.
type Totals struct {
	Searches int `json:"searches"`
	Votes    int `json:"votes"`
}

// Stats is the admin dashboard payload: newest-first day buckets plus
// totals.
type Stats struct {
	Totals Totals                `json:"totals"`
	Days   []analytics.DayBucket `json:"days"`
}

// Service wraps the analytics repository.
type Service struct {
	repo   outbound.AnalyticsRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the analytics service.
func NewService(repo outbound.AnalyticsRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Track records an arbitrary usage event for a client.
func (s *Service) Track(ctx context.Context, clientID, event, prompt string) error {
	if event == "" {
		event = "unknown"
	}
	now := s.now()
	return s.repo.InsertUsageEvent(ctx, &analytics.UsageEvent{
		ID:        uuid.New(),
		ClientID:  clientID,
		Event:     event,
		Prompt:    prompt,
		Day:       quota.DayKey(now),
		CreatedAt: now,
	})
}

// RecordFeedback validates and persists one vote.
func (s *Service) RecordFeedback(ctx context.Context, fb *analytics.Feedback) error {
	if !fb.Vote.Valid() {
		return apperrors.NewValidationError("missing or invalid vote")
	}
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.Tier == "" {
		fb.Tier = string(quota.TierGuest)
	}
	fb.CreatedAt = s.now()
	return s.repo.InsertFeedback(ctx, fb)
}

// RecordSurvey persists a survey response, filling usage_date and
// created_at server-side.
func (s *Service) RecordSurvey(ctx context.Context, answers map[string]interface{}) error {
	if answers == nil {
		answers = map[string]interface{}{}
	}
	now := s.now()
	return s.repo.InsertSurveyResponse(ctx, &analytics.SurveyResponse{
		ID:        uuid.New(),
		Answers:   answers,
		UsageDate: quota.DayKey(now),
		CreatedAt: now,
	})
}

// Stats aggregates searches and votes per UTC day over the stats window,
// newest first, including empty days.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	since := now.Add(-StatsWindowDays * 24 * time.Hour)

	events, err := s.repo.EventsSince(ctx, since)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query usage events", err)
	}
	feedback, err := s.repo.FeedbackSince(ctx, since)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query feedback", err)
	}

	buckets := make(map[string]*analytics.DayBucket)
	ensure := func(key string) *analytics.DayBucket {
		b, ok := buckets[key]
		if !ok {
			b = &analytics.DayBucket{Date: key}
			buckets[key] = b
		}
		return b
	}

	for _, e := range events {
		if e.Event == analytics.EventSearch {
			ensure(quota.DayKey(e.CreatedAt)).Searches++
		}
	}
	for _, f := range feedback {
		ensure(quota.DayKey(f.CreatedAt)).Votes++
	}

	stats := &Stats{Days: make([]analytics.DayBucket, 0, StatsWindowDays)}
	for i := 0; i < StatsWindowDays; i++ {
		key := quota.DayKey(now.Add(-time.Duration(i) * 24 * time.Hour))
		b := ensure(key)
		stats.Days = append(stats.Days, *b)
		stats.Totals.Searches += b.Searches
		stats.Totals.Votes += b.Votes
	}
	return stats, nil
}

// Recent merges the latest searches and votes into one newest-first feed of
// at most limit rows.
func (s *Service) Recent(ctx context.Context, limit int) ([]analytics.RecentRow, error) {
	if limit <= 0 {
		limit = 20
	}

	searches, err := s.repo.RecentSearches(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query recent searches", err)
	}
	votes, err := s.repo.RecentFeedback(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query recent feedback", err)
	}

	rows := make([]analytics.RecentRow, 0, len(searches)+len(votes))
	for _, e := range searches {
		rows = append(rows, analytics.RecentRow{
			Type:      "search",
			ID:        e.ID,
			CreatedAt: e.CreatedAt,
			Prompt:    e.Prompt,
		})
	}
	for _, f := range votes {
		rows = append(rows, analytics.RecentRow{
			Type:      "vote",
			ID:        f.ID,
			CreatedAt: f.CreatedAt,
			Prompt:    f.Prompt,
			Vote:      f.Vote,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// LatestUsage returns the newest usage rows for the usage list view.
func (s *Service) LatestUsage(ctx context.Context, limit int) ([]analytics.UsageEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.LatestUsage(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query usage list", err)
	}
	return rows, nil
}

// Tokens reads a user's token balance.
func (s *Service) Tokens(ctx context.Context, userID string) (int, error) {
	return s.repo.GetTokens(ctx, userID)
}

// SetTokens upserts a user's token balance.
func (s *Service) SetTokens(ctx context.Context, userID string, count int) error {
	return s.repo.UpsertTokens(ctx, userID, count)
}
