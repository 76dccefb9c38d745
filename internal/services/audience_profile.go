package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

// ProfileUpdate carries the editable fields of an audience profile; nil means unchanged.
type ProfileUpdate struct {
	Name              *string
	FreeFormContacts  *string
	AdditionalContext *string
}

type AudienceProfileService interface {
	Create(dbc dbctx.Context) (*types.AudienceProfile, error)
	List(dbc dbctx.Context) ([]*types.AudienceProfile, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.AudienceProfile, error)
	Update(dbc dbctx.Context, id uuid.UUID, in ProfileUpdate) (*types.AudienceProfile, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type audienceProfileService struct {
	db          *gorm.DB
	log         *logger.Logger
	profileRepo repos.AudienceProfileRepo
}

func NewAudienceProfileService(db *gorm.DB, baseLog *logger.Logger, profileRepo repos.AudienceProfileRepo) AudienceProfileService {
	return &audienceProfileService{
		db:          db,
		log:         baseLog.With("service", "AudienceProfileService"),
		profileRepo: profileRepo,
	}
}

// requestUser returns the authenticated caller or ErrUnauthorized.
func requestUser(dbc dbctx.Context) (string, error) {
	userID := strings.TrimSpace(ctxutil.UserID(dbc.Ctx))
	if userID == "" {
		return "", apierr.ErrUnauthorized
	}
	return userID, nil
}

func (s *audienceProfileService) Create(dbc dbctx.Context) (*types.AudienceProfile, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	profile := &types.AudienceProfile{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "New Audience List - " + now.Format(time.RFC3339),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.profileRepo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, profile); err != nil {
		s.log.Error("Create audience profile failed", "error", err)
		return nil, fmt.Errorf("create audience profile: %w", err)
	}
	return profile, nil
}

func (s *audienceProfileService) List(dbc dbctx.Context) ([]*types.AudienceProfile, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	return s.profileRepo.ListByUser(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, userID)
}

func (s *audienceProfileService) Get(dbc dbctx.Context, id uuid.UUID) (*types.AudienceProfile, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	return s.loadOwned(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, userID, id)
}

func (s *audienceProfileService) loadOwned(dbc dbctx.Context, userID string, id uuid.UUID) (*types.AudienceProfile, error) {
	if id == uuid.Nil {
		return nil, apierr.Validation("missing audience list id")
	}
	profile, err := s.profileRepo.GetByIDForUser(dbc, userID, id)
	if err != nil {
		return nil, fmt.Errorf("load audience profile: %w", err)
	}
	if profile == nil {
		return nil, apierr.NotFound("audience list")
	}
	return profile, nil
}

func (s *audienceProfileService) Update(dbc dbctx.Context, id uuid.UUID, in ProfileUpdate) (*types.AudienceProfile, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Validation("name must not be blank")
		}
		updates["name"] = name
	}
	if in.FreeFormContacts != nil {
		updates["free_form_contacts"] = *in.FreeFormContacts
	}
	if in.AdditionalContext != nil {
		updates["additional_context"] = *in.AdditionalContext
	}

	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}
	if len(updates) == 0 {
		return s.loadOwned(inner, userID, id)
	}
	updates["updated_at"] = time.Now().UTC()
	ok, err := s.profileRepo.UpdateFields(inner, userID, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update audience profile: %w", err)
	}
	if !ok {
		return nil, apierr.NotFound("audience list")
	}
	return s.loadOwned(inner, userID, id)
}

func (s *audienceProfileService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	userID, err := requestUser(dbc)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return apierr.Validation("missing audience list id")
	}
	ok, err := s.profileRepo.SoftDelete(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, userID, id)
	if err != nil {
		return fmt.Errorf("delete audience profile: %w", err)
	}
	if !ok {
		return apierr.NotFound("audience list")
	}
	return nil
}
