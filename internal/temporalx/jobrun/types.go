package jobrun

import (
	"fmt"

	"go.temporal.io/sdk/temporal"

	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/services"
)

const (
	WorkflowName = services.JobWorkflowName
	ActivityTick = "job_run_tick"
)

// TickResult is the job_run state after one activity execution.
type TickResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Terminal reports whether the job reached succeeded, failed or canceled.
func (r TickResult) Terminal() bool {
	return (&jobstatus.JobRun{Status: r.Status}).Done()
}

// Err is the workflow outcome for a terminal result: nil unless the job failed, in which case
// the error is non-retryable so Temporal does not rerun a settled round.
func (r TickResult) Err() error {
	if r.Status != jobstatus.StatusFailed {
		return nil
	}
	return temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("job failed (stage=%s): %s", r.Stage, r.Error), "JobFailed", nil)
}
