package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type FeedbackService interface {
	SaveOverall(dbc dbctx.Context, profileID, roundID uuid.UUID, text string) (*types.Feedback, error)
	SaveRow(dbc dbctx.Context, profileID, roundID uuid.UUID, rowID string, judgement string) (*types.Feedback, error)
	Get(dbc dbctx.Context, roundID uuid.UUID) (*types.Feedback, error)
}

type feedbackService struct {
	db              *gorm.DB
	log             *logger.Logger
	profileRepo     repos.AudienceProfileRepo
	roundRepo       repos.QueryRoundRepo
	associationRepo repos.ResultAssociationRepo
	feedbackRepo    repos.FeedbackRepo
}

func NewFeedbackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profileRepo repos.AudienceProfileRepo,
	roundRepo repos.QueryRoundRepo,
	associationRepo repos.ResultAssociationRepo,
	feedbackRepo repos.FeedbackRepo,
) FeedbackService {
	return &feedbackService{
		db:              db,
		log:             baseLog.With("service", "FeedbackService"),
		profileRepo:     profileRepo,
		roundRepo:       roundRepo,
		associationRepo: associationRepo,
		feedbackRepo:    feedbackRepo,
	}
}

// scope checks that the round belongs to the profile and the profile to the caller.
func (s *feedbackService) scope(dbc dbctx.Context, profileID, roundID uuid.UUID) (dbctx.Context, *types.QueryRound, error) {
	read := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}
	userID, err := requestUser(dbc)
	if err != nil {
		return read, nil, err
	}
	if profileID == uuid.Nil {
		return read, nil, apierr.Validation("missing audience list id")
	}
	round, err := loadOwnedRound(read, s.profileRepo, s.roundRepo, userID, roundID)
	if err != nil {
		return read, nil, err
	}
	if round.ProfileID != profileID {
		return read, nil, apierr.NotFound("query")
	}
	return read, round, nil
}

func (s *feedbackService) SaveOverall(dbc dbctx.Context, profileID, roundID uuid.UUID, text string) (*types.Feedback, error) {
	read, round, err := s.scope(dbc, profileID, roundID)
	if err != nil {
		return nil, err
	}
	fb, err := s.feedbackRepo.FindOrCreate(read, round.ProfileID, round.ID)
	if err != nil {
		return nil, fmt.Errorf("find or create feedback: %w", err)
	}
	text = strings.TrimSpace(text)
	if err := s.feedbackRepo.SetOverall(read, fb.ID, text); err != nil {
		return nil, fmt.Errorf("save overall feedback: %w", err)
	}
	fb.OverallFeedback = &text
	rows, err := s.feedbackRepo.ListRows(read, round.ID)
	if err != nil {
		return nil, fmt.Errorf("load row feedback: %w", err)
	}
	fb.Rows = rows
	return fb, nil
}

func (s *feedbackService) SaveRow(dbc dbctx.Context, profileID, roundID uuid.UUID, rowID string, judgement string) (*types.Feedback, error) {
	normalized, ok := audience.NormalizeJudgement(judgement)
	if !ok {
		return nil, apierr.Validation("feedback must be approve or reject, got %q", judgement)
	}
	rowID = strings.TrimSpace(rowID)
	if rowID == "" {
		return nil, apierr.Validation("missing contact id")
	}
	read, round, err := s.scope(dbc, profileID, roundID)
	if err != nil {
		return nil, err
	}

	assoc, err := s.associationRepo.GetByRoundAndRow(read, round.ID, rowID)
	if err != nil {
		return nil, fmt.Errorf("load association: %w", err)
	}
	if assoc == nil {
		return nil, apierr.NotFound("contact")
	}
	var row types.ContactRow
	if len(assoc.Payload) > 0 {
		if err := json.Unmarshal(assoc.Payload, &row); err != nil {
			return nil, fmt.Errorf("decode stored contact: %w", err)
		}
	}
	snap, err := json.Marshal(audience.SnapshotFromRow(row))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var out *types.Feedback
	err = read.Tx.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		fb, err := s.feedbackRepo.FindOrCreate(inner, round.ProfileID, round.ID)
		if err != nil {
			return fmt.Errorf("find or create feedback: %w", err)
		}
		if _, err := s.feedbackRepo.UpsertRow(inner, &types.RowFeedback{
			FeedbackID: fb.ID,
			RoundID:    round.ID,
			RowID:      rowID,
			Judgement:  normalized,
			Snapshot:   datatypes.JSON(snap),
		}); err != nil {
			return fmt.Errorf("save row feedback: %w", err)
		}
		rows, err := s.feedbackRepo.ListRows(inner, round.ID)
		if err != nil {
			return fmt.Errorf("load row feedback: %w", err)
		}
		fb.Rows = rows
		out = fb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *feedbackService) Get(dbc dbctx.Context, roundID uuid.UUID) (*types.Feedback, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	read := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}
	round, err := loadOwnedRound(read, s.profileRepo, s.roundRepo, userID, roundID)
	if err != nil {
		return nil, err
	}
	fb, err := s.feedbackRepo.GetByRound(read, round.ID)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if fb == nil {
		return nil, apierr.NotFound("feedback")
	}
	rows, err := s.feedbackRepo.ListRows(read, round.ID)
	if err != nil {
		return nil, fmt.Errorf("load row feedback: %w", err)
	}
	fb.Rows = rows
	return fb, nil
}
