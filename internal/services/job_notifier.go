package services

import (
	"context"
	"time"

	"github.com/yungbote/audience-backend/internal/clients/redis"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

const (
	EventJobCreated  = "job_created"
	EventJobProgress = "job_progress"
	EventJobFailed   = "job_failed"
	EventJobDone     = "job_done"
)

type JobNotifier interface {
	JobCreated(userID string, job *types.JobRun)
	JobProgress(userID string, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID string, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID string, job *types.JobRun)
}

type jobNotifier struct {
	log *logger.Logger
	bus redis.EventBus
}

// NewJobNotifier publishes job events on bus. A nil bus only logs them.
func NewJobNotifier(baseLog *logger.Logger, bus redis.EventBus) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), bus: bus}
}

func (n *jobNotifier) JobCreated(userID string, job *types.JobRun) {
	n.publish(userID, EventJobCreated, map[string]any{"job_id": job.ID, "job": job})
}

func (n *jobNotifier) JobProgress(userID string, job *types.JobRun, stage string, progress int, message string) {
	n.publish(userID, EventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(userID string, job *types.JobRun, stage string, errorMessage string) {
	n.publish(userID, EventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID string, job *types.JobRun) {
	n.publish(userID, EventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}

func (n *jobNotifier) publish(userID string, event string, data map[string]any) {
	n.log.Debug("job event", "event", event, "user_id", userID, "job_id", data["job_id"])
	if n.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, redis.Event{UserID: userID, Event: event, Data: data}); err != nil {
		n.log.Warn("publish job event failed", "event", event, "error", err)
	}
}
