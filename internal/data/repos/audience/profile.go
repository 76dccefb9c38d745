package audience

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type AudienceProfileRepo interface {
	Create(dbc dbctx.Context, profile *types.AudienceProfile) (*types.AudienceProfile, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AudienceProfile, error)
	GetByIDForUser(dbc dbctx.Context, userID string, id uuid.UUID) (*types.AudienceProfile, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.AudienceProfile, error)
	UpdateFields(dbc dbctx.Context, userID string, id uuid.UUID, updates map[string]interface{}) (bool, error)
	SoftDelete(dbc dbctx.Context, userID string, id uuid.UUID) (bool, error)
}

type audienceProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAudienceProfileRepo(db *gorm.DB, baseLog *logger.Logger) AudienceProfileRepo {
	return &audienceProfileRepo{
		db:  db,
		log: baseLog.With("repo", "AudienceProfileRepo"),
	}
}

func (r *audienceProfileRepo) Create(dbc dbctx.Context, profile *types.AudienceProfile) (*types.AudienceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *audienceProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AudienceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.AudienceProfile
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *audienceProfileRepo) GetByIDForUser(dbc dbctx.Context, userID string, id uuid.UUID) (*types.AudienceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == "" || id == uuid.Nil {
		return nil, nil
	}
	var out types.AudienceProfile
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *audienceProfileRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.AudienceProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AudienceProfile
	if userID == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *audienceProfileRepo) UpdateFields(dbc dbctx.Context, userID string, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == "" || id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.AudienceProfile{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *audienceProfileRepo) SoftDelete(dbc dbctx.Context, userID string, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == "" || id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.AudienceProfile{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
