package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/jobs/pipeline/round_execute"
	jobruntime "github.com/yungbote/audience-backend/internal/jobs/runtime"
	"github.com/yungbote/audience-backend/internal/modules/audience/prompts"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

type Services struct {
	Auth services.AuthService

	// Jobs + notifications
	JobNotifier services.JobNotifier
	Jobs        services.JobService

	// Pipeline
	Generation services.GenerationService
	Execution  services.ExecutionGateway

	// Domain
	Profiles services.AudienceProfileService
	Queries  services.AudienceQueryService
	Feedback services.FeedbackService
	Results  services.AudienceResultService

	// Job infra
	JobRegistry *jobruntime.Registry
	Sweeper     *services.RoundSweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	notifier := services.NewJobNotifier(log, clients.EventBus)
	jobs := services.NewJobService(db, log, reposet.JobRun, notifier, clients.Temporal, cfg.Temporal.TaskQueue)

	generation := services.NewGenerationService(log, clients.Generator, cfg.GenerationTimeout)
	execution := services.NewExecutionGateway(log, clients.ClickHouse, cfg.ExecutionTimeout)

	queries := services.NewAudienceQueryService(
		db, log,
		reposet.Profile, reposet.Round, reposet.Feedback,
		generation, jobs,
		prompts.Options{Table: cfg.QueryTable, RowLimit: cfg.QueryRowLimit},
	)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(round_execute.New(db, log, reposet.Round, reposet.Association, execution, cfg.SummaryTopK)); err != nil {
		return Services{}, fmt.Errorf("register round_execute: %w", err)
	}

	return Services{
		Auth:        auth,
		JobNotifier: notifier,
		Jobs:        jobs,
		Generation:  generation,
		Execution:   execution,
		Profiles:    services.NewAudienceProfileService(db, log, reposet.Profile),
		Queries:     queries,
		Feedback:    services.NewFeedbackService(db, log, reposet.Profile, reposet.Round, reposet.Association, reposet.Feedback),
		Results:     services.NewAudienceResultService(db, log, reposet.Profile, reposet.Round, reposet.Association),
		JobRegistry: registry,
		Sweeper:     services.NewRoundSweeper(db, log, reposet.Round, jobs, cfg.RoundSweepCron, cfg.RoundStaleAfter),
	}, nil
}
