package audience

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AudienceProfile is a user's free-text description of the customers they want to reach.
// The API calls it an audience list.
type AudienceProfile struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            string         `gorm:"column:user_id;not null;index" json:"userId"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	FreeFormContacts  string         `gorm:"column:free_form_contacts;type:text" json:"freeFormContacts"`
	AdditionalContext string         `gorm:"column:additional_context;type:text" json:"additionalContext"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null;index" json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AudienceProfile) TableName() string { return "audience_profile" }

func (p *AudienceProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
