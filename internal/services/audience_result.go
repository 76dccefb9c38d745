package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ResultPage is one page of a round's rows in stored order.
type ResultPage struct {
	Data        []types.ContactRow `json:"data"`
	CurrentPage int                `json:"currentPage"`
	TotalPages  int                `json:"totalPages"`
	TotalCount  int64              `json:"totalCount"`
}

type AudienceResultService interface {
	Page(dbc dbctx.Context, roundID uuid.UUID, page, pageSize int) (*ResultPage, error)
}

type audienceResultService struct {
	db              *gorm.DB
	log             *logger.Logger
	profileRepo     repos.AudienceProfileRepo
	roundRepo       repos.QueryRoundRepo
	associationRepo repos.ResultAssociationRepo
}

func NewAudienceResultService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profileRepo repos.AudienceProfileRepo,
	roundRepo repos.QueryRoundRepo,
	associationRepo repos.ResultAssociationRepo,
) AudienceResultService {
	return &audienceResultService{
		db:              db,
		log:             baseLog.With("service", "AudienceResultService"),
		profileRepo:     profileRepo,
		roundRepo:       roundRepo,
		associationRepo: associationRepo,
	}
}

func (s *audienceResultService) Page(dbc dbctx.Context, roundID uuid.UUID, page, pageSize int) (*ResultPage, error) {
	if page < 1 {
		return nil, apierr.Validation("page must be at least 1")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, apierr.Validation("page size must be between 1 and %d", MaxPageSize)
	}
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	read := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}
	round, err := loadOwnedRound(read, s.profileRepo, s.roundRepo, userID, roundID)
	if err != nil {
		return nil, err
	}

	total, err := s.associationRepo.CountByRound(read, round.ID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	out := &ResultPage{
		Data:        []types.ContactRow{},
		CurrentPage: page,
		TotalPages:  int((total + int64(pageSize) - 1) / int64(pageSize)),
		TotalCount:  total,
	}
	// Range check first: (page-1)*pageSize overflows int for huge pages.
	if int64(page-1) >= int64(out.TotalPages) {
		return out, nil
	}
	offset := int64(page-1) * int64(pageSize)
	assocs, err := s.associationRepo.ListByRound(read, round.ID, int(offset), pageSize)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	for _, a := range assocs {
		row := types.ContactRow{}
		if len(a.Payload) > 0 {
			if err := json.Unmarshal(a.Payload, &row); err != nil {
				return nil, fmt.Errorf("decode stored contact %s: %w", a.RowID, err)
			}
		}
		out.Data = append(out.Data, row)
	}
	return out, nil
}
