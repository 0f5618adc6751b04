package outbound

import "context"

// RecommendationRequest is the prompt plus optional steering context sent to
// the model.
type RecommendationRequest struct {
	Prompt   string   `json:"prompt"`
	Hints    []string `json:"hints,omitempty"`
	Category string   `json:"category,omitempty"`
	Refiners []string `json:"refiners,omitempty"`
}

// Recommendation is one rendered card: slug id, title, one-sentence summary.
type Recommendation struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// RecommendationSet is the strict five-item payload the model must return.
type RecommendationSet struct {
	Items []Recommendation `json:"items"`
}

// RecommendationService turns a prompt into five ranked cards. The model,
// prompt shaping and caching are implementation details behind this port.
type RecommendationService interface {
	Recommend(ctx context.Context, req RecommendationRequest) (*RecommendationSet, error)
}
