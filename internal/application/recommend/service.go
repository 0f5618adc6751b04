// Package recommend orchestrates recommendation fetches: it calls the model
// service and logs a fire-and-forget usage event on success.
package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"go.uber.org/zap"
)

// Service fetches recommendation sets and records usage.
type Service struct {
	recs      outbound.RecommendationService
	analytics outbound.AnalyticsRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the recommendation service. analytics may be nil when
// no sink is configured.
func NewService(recs outbound.RecommendationService, repo outbound.AnalyticsRepository, logger *zap.Logger) *Service {
	return &Service{recs: recs, analytics: repo, logger: logger, now: time.Now}
}

// Recommend fetches five cards for the prompt. The usage event is emitted
// asynchronously; a failed insert never fails the request.
func (s *Service) Recommend(ctx context.Context, clientID string, req outbound.RecommendationRequest) (*outbound.RecommendationSet, error) {
	set, err := s.recs.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.analytics != nil {
		event := &analytics.UsageEvent{
			ID:        uuid.New(),
			ClientID:  clientID,
			Event:     analytics.EventSearch,
			Prompt:    req.Prompt,
			Day:       quota.DayKey(s.now()),
			CreatedAt: s.now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.analytics.InsertUsageEvent(ctx, event); err != nil {
				s.logger.Warn("usage event insert failed", zap.Error(err))
			}
		}()
	}

	return set, nil
}
