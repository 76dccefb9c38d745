package audience

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

const associationBatchSize = 500

type ResultAssociationRepo interface {
	ReplaceForRound(dbc dbctx.Context, roundID uuid.UUID, rows []*types.ResultAssociation) error
	CountByRound(dbc dbctx.Context, roundID uuid.UUID) (int64, error)
	ListByRound(dbc dbctx.Context, roundID uuid.UUID, offset, limit int) ([]*types.ResultAssociation, error)
	GetByRoundAndRow(dbc dbctx.Context, roundID uuid.UUID, rowID string) (*types.ResultAssociation, error)
}

type resultAssociationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultAssociationRepo(db *gorm.DB, baseLog *logger.Logger) ResultAssociationRepo {
	return &resultAssociationRepo{
		db:  db,
		log: baseLog.With("repo", "ResultAssociationRepo"),
	}
}

// ReplaceForRound drops any associations already recorded for the round and inserts rows.
// Callers that need atomicity with other writes pass a transaction in dbc.
func (r *resultAssociationRepo) ReplaceForRound(dbc dbctx.Context, roundID uuid.UUID, rows []*types.ResultAssociation) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if roundID == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ?", roundID).
		Delete(&types.ResultAssociation{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i, row := range rows {
		row.RoundID = roundID
		row.Position = i
	}
	return transaction.WithContext(dbc.Ctx).CreateInBatches(rows, associationBatchSize).Error
}

func (r *resultAssociationRepo) CountByRound(dbc dbctx.Context, roundID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if roundID == uuid.Nil {
		return 0, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ResultAssociation{}).
		Where("round_id = ?", roundID).
		Count(&count).Error
	return count, err
}

func (r *resultAssociationRepo) ListByRound(dbc dbctx.Context, roundID uuid.UUID, offset, limit int) ([]*types.ResultAssociation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ResultAssociation
	if roundID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if offset < 0 {
		offset = 0
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ?", roundID).
		Order("position ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resultAssociationRepo) GetByRoundAndRow(dbc dbctx.Context, roundID uuid.UUID, rowID string) (*types.ResultAssociation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if roundID == uuid.Nil || rowID == "" {
		return nil, nil
	}
	var out types.ResultAssociation
	if err := transaction.WithContext(dbc.Ctx).
		Where("round_id = ? AND row_id = ?", roundID, rowID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}
