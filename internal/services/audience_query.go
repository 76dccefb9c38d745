package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/modules/audience/prompts"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

type AudienceQueryService interface {
	// CreateRound generates a query for the profile and schedules its execution. A non-nil
	// priorRoundID makes it a refinement of that round.
	CreateRound(dbc dbctx.Context, profileID uuid.UUID, priorRoundID *uuid.UUID) (*types.QueryRound, error)
	// Refine creates a round refining roundID for the profile that owns it.
	Refine(dbc dbctx.Context, roundID uuid.UUID) (*types.QueryRound, error)
	GetRound(dbc dbctx.Context, roundID uuid.UUID) (*types.QueryRound, error)
	GetLatestRound(dbc dbctx.Context, profileID uuid.UUID) (*types.QueryRound, error)
	ListRounds(dbc dbctx.Context, profileID uuid.UUID) ([]*types.QueryRound, error)
	// RoundJob returns the newest round_execute job for a round the caller owns.
	RoundJob(dbc dbctx.Context, roundID uuid.UUID) (*types.JobRun, error)
}

type audienceQueryService struct {
	db           *gorm.DB
	log          *logger.Logger
	profileRepo  repos.AudienceProfileRepo
	roundRepo    repos.QueryRoundRepo
	feedbackRepo repos.FeedbackRepo
	generation   GenerationService
	jobs         JobService
	opts         prompts.Options
}

func NewAudienceQueryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profileRepo repos.AudienceProfileRepo,
	roundRepo repos.QueryRoundRepo,
	feedbackRepo repos.FeedbackRepo,
	generation GenerationService,
	jobs JobService,
	opts prompts.Options,
) AudienceQueryService {
	return &audienceQueryService{
		db:           db,
		log:          baseLog.With("service", "AudienceQueryService"),
		profileRepo:  profileRepo,
		roundRepo:    roundRepo,
		feedbackRepo: feedbackRepo,
		generation:   generation,
		jobs:         jobs,
		opts:         opts,
	}
}

func (s *audienceQueryService) CreateRound(dbc dbctx.Context, profileID uuid.UUID, priorRoundID *uuid.UUID) (*types.QueryRound, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	if profileID == uuid.Nil {
		return nil, apierr.Validation("missing audience list id")
	}
	read := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}

	profile, err := s.profileRepo.GetByIDForUser(read, userID, profileID)
	if err != nil {
		return nil, fmt.Errorf("load audience profile: %w", err)
	}
	if profile == nil {
		return nil, apierr.NotFound("audience list")
	}

	var history *prompts.History
	if priorRoundID != nil && *priorRoundID != uuid.Nil {
		history, err = s.loadHistory(read, profile.ID, *priorRoundID)
		if err != nil {
			return nil, err
		}
	} else {
		priorRoundID = nil
	}

	prompt, err := prompts.BuildAudienceQuery(prompts.Profile{
		FreeFormContacts:  profile.FreeFormContacts,
		AdditionalContext: profile.AdditionalContext,
	}, history, s.opts)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	// Nothing is persisted until the generator has produced a query.
	query, err := s.generation.Complete(dbc.Ctx, prompt)
	if err != nil {
		s.log.Warn("Query generation failed", "profile_id", profile.ID, "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	round := &types.QueryRound{
		ID:         uuid.New(),
		ProfileID:  profile.ID,
		PriorID:    priorRoundID,
		Query:      query,
		Status:     audience.RoundStatusCreated,
		PromptHash: prompt.Fingerprint(),
		Model:      s.generation.Model(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var job *types.JobRun
	err = dbc.DB(s.db).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.roundRepo.Create(inner, round); err != nil {
			return fmt.Errorf("create round: %w", err)
		}
		entityID := round.ID
		j, err := s.jobs.Enqueue(inner, userID, JobTypeRoundExecute, EntityTypeQueryRound, &entityID, map[string]any{
			"round_id": round.ID.String(),
		})
		if err != nil {
			return fmt.Errorf("enqueue round execution: %w", err)
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}

	if job != nil && dbc.Tx == nil {
		if err := s.jobs.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
			s.log.Error("Round dispatch failed", "round_id", round.ID, "job_id", job.ID, "error", err)
			s.markDispatchFailed(dbc.Ctx, round, err)
		}
	}

	s.log.Info("Round created",
		"round_id", round.ID,
		"profile_id", profile.ID,
		"refinement", priorRoundID != nil,
		"prompt_hash", round.PromptHash,
	)
	return round, nil
}

func (s *audienceQueryService) markDispatchFailed(ctx context.Context, round *types.QueryRound, cause error) {
	now := time.Now().UTC()
	msg := fmt.Sprintf("dispatch: %v", cause)
	ok, err := s.roundRepo.UpdateFieldsIfStatus(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, round.ID,
		[]string{audience.RoundStatusCreated},
		map[string]interface{}{
			"status":       audience.RoundStatusExecutionFailed,
			"error":        msg,
			"completed_at": now,
			"updated_at":   now,
		})
	if err != nil {
		s.log.Error("Mark round failed after dispatch error", "round_id", round.ID, "error", err)
		return
	}
	if ok {
		round.Status = audience.RoundStatusExecutionFailed
		round.Error = msg
		round.CompletedAt = &now
	}
}

// loadHistory gathers the prior round and its feedback. Missing feedback is not an error.
func (s *audienceQueryService) loadHistory(dbc dbctx.Context, profileID, priorRoundID uuid.UUID) (*prompts.History, error) {
	prior, err := s.roundRepo.GetByID(dbc, priorRoundID)
	if err != nil {
		return nil, fmt.Errorf("load prior round: %w", err)
	}
	if prior == nil || prior.ProfileID != profileID {
		return nil, apierr.NotFound("prior query")
	}
	priorSummary, err := prior.DecodeSummary()
	if err != nil {
		return nil, fmt.Errorf("decode prior summary: %w", err)
	}
	h := &prompts.History{
		PriorQuery:   prior.Query,
		PriorSummary: priorSummary,
	}

	fb, err := s.feedbackRepo.GetByRound(dbc, prior.ID)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if fb != nil && fb.ProfileID == profileID {
		h.OverallFeedback = fb.Overall()
	}
	rows, err := s.feedbackRepo.ListRows(dbc, prior.ID)
	if err != nil {
		return nil, fmt.Errorf("load row feedback: %w", err)
	}
	for _, r := range rows {
		if r == nil {
			continue
		}
		var snap types.ContactSnapshot
		if len(r.Snapshot) > 0 {
			if err := json.Unmarshal(r.Snapshot, &snap); err != nil {
				s.log.Warn("Skipping unreadable row snapshot", "round_id", prior.ID, "row_id", r.RowID, "error", err)
			}
		}
		h.Rows = append(h.Rows, prompts.RowJudgement{
			RowID:     r.RowID,
			Judgement: r.Judgement,
			Snapshot:  snap,
		})
	}
	return h, nil
}

func (s *audienceQueryService) Refine(dbc dbctx.Context, roundID uuid.UUID) (*types.QueryRound, error) {
	prior, err := s.GetRound(dbc, roundID)
	if err != nil {
		return nil, err
	}
	return s.CreateRound(dbc, prior.ProfileID, &prior.ID)
}

func (s *audienceQueryService) GetRound(dbc dbctx.Context, roundID uuid.UUID) (*types.QueryRound, error) {
	userID, err := requestUser(dbc)
	if err != nil {
		return nil, err
	}
	return loadOwnedRound(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, s.profileRepo, s.roundRepo, userID, roundID)
}

// loadOwnedRound returns the round when its profile belongs to userID; NotFound otherwise.
func loadOwnedRound(dbc dbctx.Context, profileRepo repos.AudienceProfileRepo, roundRepo repos.QueryRoundRepo, userID string, roundID uuid.UUID) (*types.QueryRound, error) {
	if roundID == uuid.Nil {
		return nil, apierr.Validation("missing query id")
	}
	round, err := roundRepo.GetByID(dbc, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	if round == nil {
		return nil, apierr.NotFound("query")
	}
	profile, err := profileRepo.GetByIDForUser(dbc, userID, round.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("load audience profile: %w", err)
	}
	if profile == nil {
		return nil, apierr.NotFound("query")
	}
	return round, nil
}

func (s *audienceQueryService) GetLatestRound(dbc dbctx.Context, profileID uuid.UUID) (*types.QueryRound, error) {
	read, err := s.ownedProfileScope(dbc, profileID)
	if err != nil {
		return nil, err
	}
	round, err := s.roundRepo.GetLatestByProfile(read, profileID)
	if err != nil {
		return nil, fmt.Errorf("load latest round: %w", err)
	}
	if round == nil {
		return nil, apierr.NotFound("query")
	}
	return round, nil
}

func (s *audienceQueryService) ListRounds(dbc dbctx.Context, profileID uuid.UUID) ([]*types.QueryRound, error) {
	read, err := s.ownedProfileScope(dbc, profileID)
	if err != nil {
		return nil, err
	}
	return s.roundRepo.ListByProfile(read, profileID)
}

func (s *audienceQueryService) RoundJob(dbc dbctx.Context, roundID uuid.UUID) (*types.JobRun, error) {
	round, err := s.GetRound(dbc, roundID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.GetLatestForEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, EntityTypeQueryRound, round.ID, JobTypeRoundExecute)
	if err != nil {
		return nil, fmt.Errorf("load round job: %w", err)
	}
	if job == nil {
		return nil, apierr.NotFound("job")
	}
	return job, nil
}

func (s *audienceQueryService) ownedProfileScope(dbc dbctx.Context, profileID uuid.UUID) (dbctx.Context, error) {
	read := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}
	userID, err := requestUser(dbc)
	if err != nil {
		return read, err
	}
	if profileID == uuid.Nil {
		return read, apierr.Validation("missing audience list id")
	}
	profile, err := s.profileRepo.GetByIDForUser(read, userID, profileID)
	if err != nil {
		return read, fmt.Errorf("load audience profile: %w", err)
	}
	if profile == nil {
		return read, apierr.NotFound("audience list")
	}
	return read, nil
}
