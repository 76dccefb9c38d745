package audience

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoundStatusCreated         = "created"
	RoundStatusExecuting       = "executing"
	RoundStatusCompleted       = "completed"
	RoundStatusExecutionFailed = "execution_failed"
)

// QueryRound is one generate -> execute -> summarise cycle for a profile. Query is written once.
type QueryRound struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID   uuid.UUID      `gorm:"type:uuid;column:profile_id;not null;index" json:"profileId"`
	PriorID     *uuid.UUID     `gorm:"type:uuid;column:prior_round_id;index" json:"priorQueryId,omitempty"`
	Query       string         `gorm:"column:query;type:text;not null" json:"queryText"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Summary     datatypes.JSON `gorm:"column:summary;type:jsonb" json:"summary,omitempty"`
	TotalCount  *int           `gorm:"column:total_count" json:"totalCount,omitempty"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	PromptHash  string         `gorm:"column:prompt_hash" json:"-"`
	Model       string         `gorm:"column:model" json:"model,omitempty"`
	ExecutedAt  *time.Time     `gorm:"column:executed_at" json:"executedAt,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updatedAt"`
}

func (QueryRound) TableName() string { return "audience_query_round" }

func (r *QueryRound) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DecodeSummary returns the stored summary, or nil when the round has none yet.
func (r *QueryRound) DecodeSummary() (Summary, error) {
	if r == nil || len(r.Summary) == 0 || string(r.Summary) == "null" {
		return nil, nil
	}
	var s Summary
	if err := json.Unmarshal(r.Summary, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *QueryRound) Terminal() bool {
	return r.Status == RoundStatusCompleted || r.Status == RoundStatusExecutionFailed
}
