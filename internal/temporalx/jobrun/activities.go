package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/audience-backend/internal/jobs/runtime"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier

	// HeartbeatEvery defaults to 10s. The DB heartbeat runs at three times this period.
	HeartbeatEvery time.Duration
}

// Tick claims the job, runs its handler once and reports the resulting state. A job that is
// already terminal or held by another runner is reported without being run.
func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", res.JobID)
	}

	now := time.Now().UTC()
	claimed, err := a.Jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, id,
		[]string{jobstatus.StatusRunning, jobstatus.StatusSucceeded, jobstatus.StatusFailed, jobstatus.StatusCanceled},
		map[string]interface{}{
			"status":       jobstatus.StatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return res, fmt.Errorf("jobrun: claim: %w", err)
	}
	job, err := a.Jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", id)
	}
	if !claimed {
		return fill(res, job), nil
	}

	stop := a.startHeartbeat(ctx, id)
	defer stop()

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	if runErr := a.Registry.Run(jc); runErr != nil && a.Log != nil {
		a.Log.Warn("Job failed", "job_id", id, "job_type", job.JobType, "stage", jc.Job.Stage, "error", runErr)
	}

	updated, err := a.Jobs.GetByID(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job %s not found after tick", id)
	}
	// A handler that returned without a terminal write is closed out as succeeded.
	if updated.Status == jobstatus.StatusRunning {
		if a.Log != nil {
			a.Log.Warn("Job handler returned without terminal status; marking succeeded", "job_id", id, "job_type", updated.JobType)
		}
		jc.Succeed("done", nil)
		updated = jc.Job
	}
	return fill(res, updated), nil
}

func fill(res TickResult, job *types.JobRun) TickResult {
	res.Status = job.Status
	res.Stage = job.Stage
	res.Progress = job.Progress
	res.Message = job.Message
	res.Error = job.Error
	return res
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(every)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(3 * every)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				if activity.IsActivity(ctx) {
					activity.RecordHeartbeat(ctx)
				}
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
