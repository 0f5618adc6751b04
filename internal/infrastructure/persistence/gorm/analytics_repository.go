package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository implements outbound.AnalyticsRepository with GORM.
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) outbound.AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Migrate creates the analytics tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UsageEventModel{},
		&FeedbackModel{},
		&SurveyResponseModel{},
		&TokenBalanceModel{},
	)
}

// InsertUsageEvent persists one usage event row.
func (r *AnalyticsRepository) InsertUsageEvent(ctx context.Context, event *analytics.UsageEvent) error {
	model := &UsageEventModel{
		ID:        event.ID,
		ClientID:  event.ClientID,
		Event:     event.Event,
		Prompt:    event.Prompt,
		Day:       event.Day,
		CreatedAt: event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// InsertFeedback persists one vote row.
func (r *AnalyticsRepository) InsertFeedback(ctx context.Context, fb *analytics.Feedback) error {
	model := &FeedbackModel{
		ID:          fb.ID,
		Vote:        string(fb.Vote),
		ItemID:      fb.ItemID,
		ItemTitle:   fb.ItemTitle,
		ItemSummary: fb.ItemSummary,
		Prompt:      fb.Prompt,
		Tier:        fb.Tier,
		CreatedAt:   fb.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// InsertSurveyResponse persists one survey response row.
func (r *AnalyticsRepository) InsertSurveyResponse(ctx context.Context, sr *analytics.SurveyResponse) error {
	model := &SurveyResponseModel{
		ID:        sr.ID,
		Answers:   JSONField(sr.Answers),
		UsageDate: sr.UsageDate,
		CreatedAt: sr.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// RecentSearches returns the newest search events, newest first.
func (r *AnalyticsRepository) RecentSearches(ctx context.Context, limit int) ([]analytics.UsageEvent, error) {
	var models []UsageEventModel
	err := r.db.WithContext(ctx).
		Where("event = ?", analytics.EventSearch).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toUsageEvents(models), nil
}

// RecentFeedback returns the newest votes, newest first.
func (r *AnalyticsRepository) RecentFeedback(ctx context.Context, limit int) ([]analytics.Feedback, error) {
	var models []FeedbackModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toFeedback(models), nil
}

// EventsSince returns all usage events created at or after since.
func (r *AnalyticsRepository) EventsSince(ctx context.Context, since time.Time) ([]analytics.UsageEvent, error) {
	var models []UsageEventModel
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toUsageEvents(models), nil
}

// FeedbackSince returns all votes created at or after since.
func (r *AnalyticsRepository) FeedbackSince(ctx context.Context, since time.Time) ([]analytics.Feedback, error) {
	var models []FeedbackModel
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toFeedback(models), nil
}

// LatestUsage returns the newest usage events of any kind.
func (r *AnalyticsRepository) LatestUsage(ctx context.Context, limit int) ([]analytics.UsageEvent, error) {
	var models []UsageEventModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toUsageEvents(models), nil
}

// GetTokens reads a user's token balance; missing users have zero tokens.
func (r *AnalyticsRepository) GetTokens(ctx context.Context, userID string) (int, error) {
	var model TokenBalanceModel
	err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.Count, nil
}

// UpsertTokens writes a user's token balance.
func (r *AnalyticsRepository) UpsertTokens(ctx context.Context, userID string, count int) error {
	model := &TokenBalanceModel{UserID: userID, Count: count, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
		}).
		Create(model).Error
}

func toUsageEvents(models []UsageEventModel) []analytics.UsageEvent {
	events := make([]analytics.UsageEvent, len(models))
	for i, m := range models {
		events[i] = analytics.UsageEvent{
			ID:        m.ID,
			ClientID:  m.ClientID,
			Event:     m.Event,
			Prompt:    m.Prompt,
			Day:       m.Day,
			CreatedAt: m.CreatedAt,
		}
	}
	return events
}

func toFeedback(models []FeedbackModel) []analytics.Feedback {
	feedback := make([]analytics.Feedback, len(models))
	for i, m := range models {
		feedback[i] = analytics.Feedback{
			ID:          m.ID,
			Vote:        analytics.Vote(m.Vote),
			ItemID:      m.ItemID,
			ItemTitle:   m.ItemTitle,
			ItemSummary: m.ItemSummary,
			Prompt:      m.Prompt,
			Tier:        m.Tier,
			CreatedAt:   m.CreatedAt,
		}
	}
	return feedback
}
