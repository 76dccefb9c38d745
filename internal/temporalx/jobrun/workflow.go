package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	pollInterval = 5 * time.Second
	maxPolls     = 720
)

// Workflow drives one job_run row, keyed by the workflow id. The tick activity is never retried:
// a failed round stays failed. While another runner holds the job, the workflow polls until it
// settles.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	for i := 0; i < maxPolls; i++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}
		if out.Terminal() {
			return out.Err()
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("jobrun: job %s did not settle", jobID)
}
