package audience

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JudgementApprove = "approve"
	JudgementReject  = "reject"
)

// NormalizeJudgement accepts approve/reject and the legacy upvote/downvote spellings.
func NormalizeJudgement(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case JudgementApprove, "upvote", "up":
		return JudgementApprove, true
	case JudgementReject, "downvote", "down":
		return JudgementReject, true
	default:
		return "", false
	}
}

// Feedback is the per (profile, round) feedback record.
type Feedback struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID       uuid.UUID      `gorm:"type:uuid;column:profile_id;not null;uniqueIndex:idx_feedback_profile_round,priority:1" json:"audienceListId"`
	RoundID         uuid.UUID      `gorm:"type:uuid;column:round_id;not null;uniqueIndex:idx_feedback_profile_round,priority:2;index" json:"audienceQueryId"`
	OverallFeedback *string        `gorm:"column:overall_feedback;type:text" json:"overallFeedback,omitempty"`
	Rows            []*RowFeedback `gorm:"-" json:"contactFeedback"`
	CreatedAt       time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updatedAt"`
}

func (Feedback) TableName() string { return "audience_feedback" }

func (f *Feedback) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Overall returns the overall text or "".
func (f *Feedback) Overall() string {
	if f == nil || f.OverallFeedback == nil {
		return ""
	}
	return strings.TrimSpace(*f.OverallFeedback)
}

// RowFeedback is one user judgement on one returned row; unique per (round, row).
type RowFeedback struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FeedbackID uuid.UUID      `gorm:"type:uuid;column:feedback_id;not null;index" json:"-"`
	RoundID    uuid.UUID      `gorm:"type:uuid;column:round_id;not null;uniqueIndex:idx_row_feedback_round_row,priority:1" json:"-"`
	RowID      string         `gorm:"column:row_id;not null;uniqueIndex:idx_row_feedback_round_row,priority:2" json:"contactId"`
	Judgement  string         `gorm:"column:judgement;not null" json:"feedback"`
	Snapshot   datatypes.JSON `gorm:"column:snapshot;type:jsonb" json:"contactDetails"`
	CreatedAt  time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updatedAt"`
}

func (RowFeedback) TableName() string { return "audience_row_feedback" }

func (r *RowFeedback) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ContactSnapshot freezes the nine descriptive fields of a judged row.
type ContactSnapshot struct {
	JobTitle        string   `json:"job_title"`
	CompanyName     string   `json:"company_name"`
	LocationCity    string   `json:"location_city"`
	LocationState   string   `json:"location_state"`
	LocationCountry string   `json:"location_country"`
	Seniority       string   `json:"seniority"`
	CompanyIndustry string   `json:"company_industry"`
	Departments     []string `json:"departments"`
	SubDepartments  []string `json:"sub_departments"`
}

// SnapshotFromRow copies the descriptive fields out of a stored row.
func SnapshotFromRow(row ContactRow) ContactSnapshot {
	return ContactSnapshot{
		JobTitle:        ValueText(row["job_title"]),
		CompanyName:     ValueText(row["company_name"]),
		LocationCity:    ValueText(row["location_city"]),
		LocationState:   ValueText(row["location_state"]),
		LocationCountry: ValueText(row["location_country"]),
		Seniority:       ValueText(row["seniority"]),
		CompanyIndustry: ValueText(row["company_industry"]),
		Departments:     textList(row["departments"]),
		SubDepartments:  textList(row["sub_departments"]),
	}
}

func textList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := ValueText(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := ValueText(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
