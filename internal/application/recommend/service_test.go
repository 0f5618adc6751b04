package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixedModel struct {
	set *outbound.RecommendationSet
	err error
}

func (m fixedModel) Recommend(_ context.Context, _ outbound.RecommendationRequest) (*outbound.RecommendationSet, error) {
	return m.set, m.err
}

// eventSink records usage events and signals each insert.
type eventSink struct {
	inserted chan *analytics.UsageEvent
}

func newEventSink() *eventSink {
	return &eventSink{inserted: make(chan *analytics.UsageEvent, 1)}
}

func (s *eventSink) InsertUsageEvent(_ context.Context, e *analytics.UsageEvent) error {
	s.inserted <- e
	return nil
}

func (s *eventSink) InsertFeedback(context.Context, *analytics.Feedback) error { return nil }
func (s *eventSink) InsertSurveyResponse(context.Context, *analytics.SurveyResponse) error {
	return nil
}
func (s *eventSink) RecentSearches(context.Context, int) ([]analytics.UsageEvent, error) {
	return nil, nil
}
func (s *eventSink) RecentFeedback(context.Context, int) ([]analytics.Feedback, error) {
	return nil, nil
}
func (s *eventSink) EventsSince(context.Context, time.Time) ([]analytics.UsageEvent, error) {
	return nil, nil
}
func (s *eventSink) FeedbackSince(context.Context, time.Time) ([]analytics.Feedback, error) {
	return nil, nil
}
func (s *eventSink) LatestUsage(context.Context, int) ([]analytics.UsageEvent, error) {
	return nil, nil
}
func (s *eventSink) GetTokens(context.Context, string) (int, error)  { return 0, nil }
func (s *eventSink) UpsertTokens(context.Context, string, int) error { return nil }

func cannedSet() *outbound.RecommendationSet {
	items := make([]outbound.Recommendation, 5)
	for i := range items {
		items[i] = outbound.Recommendation{ID: "pick", Title: "Pick", Summary: "A pick."}
	}
	return &outbound.RecommendationSet{Items: items}
}

func TestRecommendEmitsUsageEvent(t *testing.T) {
	sink := newEventSink()
	svc := NewService(fixedModel{set: cannedSet()}, sink, zaptest.NewLogger(t))

	set, err := svc.Recommend(context.Background(), "rex_abc", outbound.RecommendationRequest{Prompt: "cozy mysteries"})
	require.NoError(t, err)
	assert.Len(t, set.Items, 5)

	select {
	case e := <-sink.inserted:
		assert.Equal(t, "rex_abc", e.ClientID)
		assert.Equal(t, analytics.EventSearch, e.Event)
		assert.Equal(t, "cozy mysteries", e.Prompt)
		assert.NotEmpty(t, e.Day)
	case <-time.After(2 * time.Second):
		t.Fatal("usage event was never inserted")
	}
}

func TestRecommendModelErrorSkipsEvent(t *testing.T) {
	sink := newEventSink()
	svc := NewService(fixedModel{err: errors.New("upstream down")}, sink, zaptest.NewLogger(t))

	_, err := svc.Recommend(context.Background(), "rex_abc", outbound.RecommendationRequest{Prompt: "anything"})
	require.Error(t, err)

	select {
	case <-sink.inserted:
		t.Fatal("no usage event expected on failure")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecommendWithoutSink(t *testing.T) {
	svc := NewService(fixedModel{set: cannedSet()}, nil, zaptest.NewLogger(t))

	set, err := svc.Recommend(context.Background(), "rex_abc", outbound.RecommendationRequest{Prompt: "anything"})
	require.NoError(t, err)
	assert.Len(t, set.Items, 5)
}
