package jobrun

import (
	"context"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"
)

func TestWorkflowCompletesOnSucceeded(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (TickResult, error) {
		calls++
		if calls == 1 {
			return TickResult{JobID: jobID, Status: "running"}, nil
		}
		return TickResult{JobID: jobID, Status: "succeeded"}, nil
	}, activity.RegisterOptions{Name: ActivityTick})
	env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "6f1c2a9e-4a43-4c39-9a53-1f1d3b0d7b11"})

	env.ExecuteWorkflow(Workflow)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 ticks, got %d", calls)
	}
}

func TestWorkflowFailsOnFailedJob(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (TickResult, error) {
		return TickResult{JobID: jobID, Status: "failed", Stage: "execute", Error: "timeout"}, nil
	}, activity.RegisterOptions{Name: ActivityTick})
	env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "job-1"})

	env.ExecuteWorkflow(Workflow)
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("expected workflow error")
	}
}
