package audience

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResultAssociation pins one warehouse row to the round that returned it. Payload is the
// row as it was at execution time.
type ResultAssociation struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RoundID   uuid.UUID      `gorm:"type:uuid;column:round_id;not null;uniqueIndex:idx_result_assoc_round_row,priority:1;index" json:"queryId"`
	RowID     string         `gorm:"column:row_id;not null;uniqueIndex:idx_result_assoc_round_row,priority:2" json:"contactId"`
	Position  int            `gorm:"column:position;not null;default:0" json:"position"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"clickhouseData"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
}

func (ResultAssociation) TableName() string { return "audience_result_association" }

func (a *ResultAssociation) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
