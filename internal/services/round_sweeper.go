package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

const (
	DefaultSweepSpec  = "@every 1m"
	DefaultStaleAfter = 15 * time.Minute
	sweepBatchSize    = 200
)

// RoundSweeper fails rounds that have sat in created or executing past their deadline.
type RoundSweeper struct {
	db         *gorm.DB
	log        *logger.Logger
	rounds     repos.QueryRoundRepo
	jobs       JobService
	spec       string
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

func NewRoundSweeper(db *gorm.DB, baseLog *logger.Logger, rounds repos.QueryRoundRepo, jobs JobService, spec string, staleAfter time.Duration) *RoundSweeper {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &RoundSweeper{
		db:         db,
		log:        baseLog.With("service", "RoundSweeper"),
		rounds:     rounds,
		jobs:       jobs,
		spec:       spec,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the sweep. Overlapping runs are skipped.
func (s *RoundSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(s.spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.log.Error("Round sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule round sweep %q: %w", s.spec, err)
	}
	c.Start()
	s.cron = c
	s.started = true
	s.log.Info("Round sweeper started", "spec", s.spec, "stale_after", s.staleAfter.String())
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep.
func (s *RoundSweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.started = false
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep marks every stale round execution_failed and cancels its job. It returns how many rounds moved.
func (s *RoundSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	moved := 0
	for _, status := range []string{audience.RoundStatusCreated, audience.RoundStatusExecuting} {
		stale, err := s.rounds.ListStale(dbctx.Context{Ctx: ctx}, status, cutoff, sweepBatchSize)
		if err != nil {
			return moved, fmt.Errorf("list stale %s rounds: %w", status, err)
		}
		for _, r := range stale {
			reason := fmt.Sprintf("timed out: round stayed %s longer than %s", status, s.staleAfter)
			now := s.now()
			ok, err := s.rounds.UpdateFieldsIfStatus(dbctx.Context{Ctx: ctx}, r.ID, []string{status}, map[string]interface{}{
				"status":       audience.RoundStatusExecutionFailed,
				"error":        reason,
				"completed_at": now,
				"updated_at":   now,
			})
			if err != nil {
				return moved, fmt.Errorf("fail stale round %s: %w", r.ID, err)
			}
			if !ok {
				continue
			}
			moved++
			if s.jobs != nil {
				if err := s.jobs.CancelForEntity(dbctx.Context{Ctx: ctx}, EntityTypeQueryRound, r.ID, JobTypeRoundExecute, reason); err != nil {
					s.log.Warn("Cancel job for stale round failed", "round_id", r.ID, "error", err)
				}
			}
			s.log.Warn("Stale round failed", "round_id", r.ID, "was", status)
		}
	}
	return moved, nil
}
