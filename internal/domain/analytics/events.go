// Package analytics contains the domain model for usage and feedback
// records that feed the admin dashboard.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// EventSearch is the usage event emitted for every successful
// recommendation fetch. Other event names pass through unchanged.
const EventSearch = "search"

// UsageEvent is one fire-and-forget usage record. It is returned verbatim
// by the usage list endpoint.
type UsageEvent struct {
	ID        uuid.UUID `json:"id"`
	ClientID  string    `json:"clientId"`
	Event     string    `json:"event"`
	Prompt    string    `json:"prompt,omitempty"`
	Day       string    `json:"day"`
	CreatedAt time.Time `json:"createdAt"`
}

// Vote is a thumbs up/down on a recommendation card.
type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// Valid reports whether the vote is one of the two accepted values.
func (v Vote) Valid() bool { return v == VoteUp || v == VoteDown }

// Feedback is one vote on a rendered recommendation.
type Feedback struct {
	ID          uuid.UUID
	Vote        Vote
	ItemID      string
	ItemTitle   string
	ItemSummary string
	Prompt      string
	Tier        string
	CreatedAt   time.Time
}

// SurveyResponse is a completed soft-wall survey; answers are stored as
// opaque JSON. UsageDate is filled server-side.
type SurveyResponse struct {
	ID        uuid.UUID
	Answers   map[string]interface{}
	UsageDate string
	CreatedAt time.Time
}

// DayBucket aggregates one calendar day for the admin stats view.
type DayBucket struct {
	Date     string `json:"date"`
	Searches int    `json:"searches"`
	Votes    int    `json:"votes"`
}

// RecentRow is one row of the merged recent-activity feed.
type RecentRow struct {
	Type      string    `json:"type"` // "search" or "vote"
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Prompt    string    `json:"prompt,omitempty"`
	Vote      Vote      `json:"vote,omitempty"`
}
