package audience

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type FeedbackRepo interface {
	FindOrCreate(dbc dbctx.Context, profileID, roundID uuid.UUID) (*types.Feedback, error)
	GetByRound(dbc dbctx.Context, roundID uuid.UUID) (*types.Feedback, error)
	SetOverall(dbc dbctx.Context, id uuid.UUID, text string) error
	UpsertRow(dbc dbctx.Context, row *types.RowFeedback) (*types.RowFeedback, error)
	ListRows(dbc dbctx.Context, roundID uuid.UUID) ([]*types.RowFeedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{
		db:  db,
		log: baseLog.With("repo", "FeedbackRepo"),
	}
}

// FindOrCreate returns the single feedback record for (profile, round), inserting it on first use.
func (r *feedbackRepo) FindOrCreate(dbc dbctx.Context, profileID, roundID uuid.UUID) (*types.Feedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	fresh := &types.Feedback{ProfileID: profileID, RoundID: roundID}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "round_id"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}
	var out types.Feedback
	if err := transaction.WithContext(dbc.Ctx).
		Where("profile_id = ? AND round_id = ?", profileID, roundID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *feedbackRepo) GetByRound(dbc dbctx.Context, roundID uuid.UUID) (*types.Feedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if roundID == uuid.Nil {
		return nil, nil
	}
	var out types.Feedback
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ?", roundID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *feedbackRepo) SetOverall(dbc dbctx.Context, id uuid.UUID, text string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Feedback{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"overall_feedback": text,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// UpsertRow records the latest judgement for (round, row); a repeat judgement overwrites the old one.
func (r *feedbackRepo) UpsertRow(dbc dbctx.Context, row *types.RowFeedback) (*types.RowFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "round_id"}, {Name: "row_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"feedback_id",
				"judgement",
				"snapshot",
				"updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	var out types.RowFeedback
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ? AND row_id = ?", row.RoundID, row.RowID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *feedbackRepo) ListRows(dbc dbctx.Context, roundID uuid.UUID) ([]*types.RowFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RowFeedback
	if roundID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
