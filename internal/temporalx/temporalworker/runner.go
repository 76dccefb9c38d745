package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	jobrt "github.com/yungbote/audience-backend/internal/jobs/runtime"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
	"github.com/yungbote/audience-backend/internal/temporalx"
	"github.com/yungbote/audience-backend/internal/temporalx/jobrun"
)

type Runner struct {
	log      *logger.Logger
	cfg      temporalx.Config
	tc       temporalsdkclient.Client
	db       *gorm.DB
	jobRepo  repos.JobRunRepo
	registry *jobrt.Registry
	notify   services.JobNotifier
}

func NewRunner(
	baseLog *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	db *gorm.DB,
	jobRepo repos.JobRunRepo,
	registry *jobrt.Registry,
	notify services.JobNotifier,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if db == nil || jobRepo == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker needs a database, job repo and handler registry")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		log:      baseLog.With("component", "TemporalWorker"),
		cfg:      cfg,
		tc:       tc,
		db:       db,
		jobRepo:  jobRepo,
		registry: registry,
		notify:   notify,
	}, nil
}

// Start registers the job workflow and begins polling the task queue; polling stops when ctx
// is done. Start failures are retried for up to DialMaxWait, registering the namespace first when
// it is missing and auto-registration is on.
func (r *Runner) Start(ctx context.Context) error {
	log := r.log.With("namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	log.Info("Starting Temporal worker", "job_types", r.registry.Types(), "concurrency", r.cfg.Concurrency)

	var w worker.Worker
	err := temporalx.Retry(ctx, log, "worker start", r.cfg.DialMaxWait, func(ctx context.Context) error {
		w = r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			return nil
		}
		w.Stop()
		var missing *serviceerror.NamespaceNotFound
		if errors.As(startErr, &missing) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, log, r.cfg); err != nil {
				log.Warn("Temporal namespace ensure failed", "error", err)
			}
		}
		return startErr
	}, nil)
	if err != nil {
		return fmt.Errorf("temporal worker start (namespace=%s): %w", r.cfg.Namespace, err)
	}

	go func() {
		<-ctx.Done()
		log.Info("Stopping Temporal worker")
		w.Stop()
	}()
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.Concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.Concurrency,
	})
	acts := &jobrun.Activities{
		Log:      r.log,
		DB:       r.db,
		Jobs:     r.jobRepo,
		Registry: r.registry,
		Notify:   r.notify,
	}
	w.RegisterWorkflowWithOptions(jobrun.Workflow, workflow.RegisterOptions{Name: jobrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Tick, activity.RegisterOptions{Name: jobrun.ActivityTick})
	return w
}
