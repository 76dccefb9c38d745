package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

// JobTypeRoundExecute runs the background phase of a query round.
const JobTypeRoundExecute = "round_execute"

// EntityTypeQueryRound tags jobs that act on an audience_query_round row.
const EntityTypeQueryRound = "audience_query_round"

// JobWorkflowName is the Temporal workflow that drives one job_run row to a terminal status.
const JobWorkflowName = "job_run"

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error)
	CancelForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string, reason string) error
}

type jobService struct {
	db                *gorm.DB
	log               *logger.Logger
	repo              repos.JobRunRepo
	notify            JobNotifier
	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

// NewJobService creates a job service. With a nil Temporal client, queued jobs are left for the
// in-process worker to claim.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	if notify == nil {
		notify = NewJobNotifier(baseLog, nil)
	}
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	switch {
	case strings.TrimSpace(ownerUserID) == "":
		return nil, fmt.Errorf("enqueue %s: missing owner", jobType)
	case jobType == "":
		return nil, fmt.Errorf("enqueue: missing job type")
	}
	raw, err := json.Marshal(stampTrace(dbc.Ctx, payload))
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}

	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      jobstatus.StatusQueued,
		Stage:       "queued",
		Message:     "Waiting for a worker",
		Payload:     datatypes.JSON(raw),
		Result:      datatypes.JSON(`{}`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.DB(s.db)}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("insert %s job: %w", jobType, err)
	}
	s.notify.JobCreated(ownerUserID, job)

	// A caller holding a transaction dispatches once it commits; the row is invisible until then.
	if inTransaction(dbc.Tx) {
		return job, nil
	}
	return job, s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID)
}

// stampTrace copies the request's trace and request ids into payload unless already set.
func stampTrace(ctx context.Context, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	kv := ctxutil.LogFields(ctx)
	for i := 0; i+1 < len(kv); i += 2 {
		if key := kv[i].(string); out[key] == nil {
			out[key] = kv[i+1]
		}
	}
	return out
}

func inTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

// Dispatch hands a committed job to Temporal. Without a client the in-process worker claims it.
func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return fmt.Errorf("dispatch: missing job id")
	}
	if s.temporal == nil {
		return nil
	}
	ctx := ctxutil.Default(dbc.Ctx)

	err := s.startWorkflow(ctx, jobID)
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if err == nil || errors.As(err, &already) {
		return nil
	}
	s.failDispatch(context.WithoutCancel(ctx), jobID, err)
	return fmt.Errorf("start %s workflow: %w", JobWorkflowName, err)
}

func (s *jobService) failDispatch(ctx context.Context, jobID uuid.UUID, cause error) {
	now := time.Now().UTC()
	read := dbctx.Context{Ctx: ctx}
	if err := s.repo.UpdateFields(read, jobID, map[string]interface{}{
		"status":        jobstatus.StatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         cause.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}); err != nil {
		s.log.Error("Record dispatch failure", "job_id", jobID, "error", err)
		return
	}
	if job, err := s.repo.GetByID(read, jobID); err == nil && job != nil {
		s.notify.JobFailed(job.OwnerUserID, job, "dispatch", cause.Error())
	}
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID) error {
	queue := s.temporalTaskQueue
	if queue == "" {
		queue = "audience"
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             queue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy:           &temporal.RetryPolicy{MaximumAttempts: 1},
	}, JobWorkflowName)
	return err
}

func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == "" {
		return nil, apierr.ErrUnauthorized
	}
	if jobID == uuid.Nil {
		return nil, apierr.Validation("missing job id")
	}
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerUserID != userID {
		return nil, apierr.NotFound("job")
	}
	return job, nil
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	return s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
}

// CancelForEntity cancels the newest unfinished job for an entity so neither a worker nor a
// retry picks it up again.
func (s *jobService) CancelForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string, reason string) error {
	job, err := s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
	if err != nil || job == nil {
		return err
	}
	now := time.Now().UTC()
	ok, err := s.repo.UpdateFieldsUnlessStatus(dbc, job.ID, []string{jobstatus.StatusSucceeded, jobstatus.StatusFailed, jobstatus.StatusCanceled}, map[string]interface{}{
		"status":     jobstatus.StatusCanceled,
		"message":    "Canceled",
		"error":      reason,
		"locked_at":  nil,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if ok {
		s.notify.JobFailed(job.OwnerUserID, job, "canceled", reason)
	}
	if ok && s.temporal != nil {
		_ = s.temporal.CancelWorkflow(dbc.Ctx, job.ID.String(), "")
	}
	return nil
}
