package audience

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type QueryRoundRepo interface {
	Create(dbc dbctx.Context, round *types.QueryRound) (*types.QueryRound, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueryRound, error)
	GetLatestByProfile(dbc dbctx.Context, profileID uuid.UUID) (*types.QueryRound, error)
	ListByProfile(dbc dbctx.Context, profileID uuid.UUID) ([]*types.QueryRound, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error)
	ListStale(dbc dbctx.Context, status string, updatedBefore time.Time, limit int) ([]*types.QueryRound, error)
}

type queryRoundRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryRoundRepo(db *gorm.DB, baseLog *logger.Logger) QueryRoundRepo {
	return &queryRoundRepo{
		db:  db,
		log: baseLog.With("repo", "QueryRoundRepo"),
	}
}

func (r *queryRoundRepo) Create(dbc dbctx.Context, round *types.QueryRound) (*types.QueryRound, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(round).Error; err != nil {
		return nil, err
	}
	return round, nil
}

func (r *queryRoundRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueryRound, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.QueryRound
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

func (r *queryRoundRepo) GetLatestByProfile(dbc dbctx.Context, profileID uuid.UUID) (*types.QueryRound, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if profileID == uuid.Nil {
		return nil, nil
	}
	var out types.QueryRound
	if err := transaction.WithContext(dbc.Ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *queryRoundRepo) ListByProfile(dbc dbctx.Context, profileID uuid.UUID) ([]*types.QueryRound, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QueryRound
	if profileID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *queryRoundRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	_, err := r.UpdateFieldsIfStatus(dbc, id, nil, updates)
	return err
}

// UpdateFieldsIfStatus applies updates only while the round is in one of allowedStatuses.
// An empty allowedStatuses matches any status.
func (r *queryRoundRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.QueryRound{}).
		Where("id = ?", id)
	if len(allowedStatuses) == 1 {
		q = q.Where("status = ?", allowedStatuses[0])
	} else if len(allowedStatuses) > 1 {
		q = q.Where("status IN ?", allowedStatuses)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *queryRoundRepo) ListStale(dbc dbctx.Context, status string, updatedBefore time.Time, limit int) ([]*types.QueryRound, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QueryRound
	if status == "" {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND updated_at < ?", status, updatedBefore.UTC()).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
