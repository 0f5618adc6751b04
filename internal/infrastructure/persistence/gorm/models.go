// Package gorm provides GORM model definitions and the analytics
// repository.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageEventModel represents the GORM model for usage events
type UsageEventModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	ClientID  string    `gorm:"type:varchar(128);index"`
	Event     string    `gorm:"type:varchar(64);index;not null"`
	Prompt    string    `gorm:"type:text"`
	Day       string    `gorm:"type:char(10);index"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName overrides the default table name
func (UsageEventModel) TableName() string { return "usage_events" }

// FeedbackModel represents the GORM model for recommendation votes
type FeedbackModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Vote        string    `gorm:"type:varchar(8);not null"`
	ItemID      string    `gorm:"type:varchar(255)"`
	ItemTitle   string    `gorm:"type:varchar(255)"`
	ItemSummary string    `gorm:"type:text"`
	Prompt      string    `gorm:"type:text"`
	Tier        string    `gorm:"type:varchar(16);default:'guest'"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName overrides the default table name
func (FeedbackModel) TableName() string { return "feedback" }

// SurveyResponseModel represents the GORM model for survey responses
type SurveyResponseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Answers   JSONField `gorm:"type:json"`
	UsageDate string    `gorm:"type:char(10);index"`
	CreatedAt time.Time
}

// TableName overrides the default table name
func (SurveyResponseModel) TableName() string { return "survey_responses" }

// TokenBalanceModel represents the GORM model for per-user token balances
type TokenBalanceModel struct {
	UserID    string `gorm:"type:varchar(128);primaryKey"`
	Count     int    `gorm:"default:0"`
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (TokenBalanceModel) TableName() string { return "tokens" }

// JSONField stores arbitrary JSON objects
type JSONField map[string]interface{}

// Value implements driver.Valuer
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = JSONField{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONField: %T", value)
	}
	return json.Unmarshal(data, j)
}
