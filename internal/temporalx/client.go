package temporalx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/audience-backend/internal/platform/httpx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

var dialBackoff = httpx.Backoff{Initial: 250 * time.Millisecond, Max: 5 * time.Second}

// NewClient dials the configured frontend, retrying for up to DialMaxWait. Without an address it
// returns nil, nil and jobs stay on the in-process worker.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if !cfg.Enabled() {
		log.Info("TEMPORAL_ADDRESS not set; jobs run on the in-process worker")
		return nil, nil
	}
	opts, err := clientOptions(log, cfg)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	var c temporalsdkclient.Client
	err = Retry(ctx, log, "dial", cfg.DialMaxWait, func(ctx context.Context) error {
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancelAttempt()
		var dialErr error
		c, dialErr = temporalsdkclient.DialContext(attemptCtx, opts)
		return dialErr
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s/%s: %w", cfg.Address, cfg.Namespace, err)
	}
	log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace)

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func clientOptions(log *logger.Logger, cfg Config) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if !cfg.mTLS() {
		return opts, nil
	}
	tlsCfg, err := loadTLSConfig(cfg)
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, err
}

// EnsureNamespace registers cfg.Namespace with RetentionDays retention when it is missing.
// Intended for self-hosted clusters; managed clusters reject registration.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	if !cfg.Enabled() || cfg.Namespace == "" {
		return nil
	}
	opts, err := clientOptions(log, cfg)
	if err != nil {
		return err
	}
	// Namespace calls go out without a namespace header, so a missing namespace can be created.
	ns, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer ns.Close()

	retention := cfg.RetentionDays
	if retention < 1 || retention > 365 {
		retention = 7
	}
	err = Retry(ctx, log, "ensure namespace", 10*time.Second, func(ctx context.Context) error {
		_, err := ns.Describe(ctx, cfg.Namespace)
		var notFound *serviceerror.NamespaceNotFound
		if !errors.As(err, &notFound) {
			return err
		}
		err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
			Namespace:                        cfg.Namespace,
			Description:                      "audience query jobs",
			WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retention) * 24 * time.Hour),
		})
		var exists *serviceerror.NamespaceAlreadyExists
		if errors.As(err, &exists) {
			return nil
		}
		return err
	}, isRetryableRPC)
	if err != nil {
		return fmt.Errorf("ensure namespace %s: %w", cfg.Namespace, err)
	}
	log.Info("Temporal namespace ready", "namespace", cfg.Namespace, "retention_days", retention)
	return nil
}

// Retry runs op until it succeeds, fails with an error retryable rejects, or within has elapsed.
// A nil retryable retries every error; within <= 0 allows a single attempt. On timeout the last
// op error is returned.
func Retry(ctx context.Context, log *logger.Logger, what string, within time.Duration, op func(context.Context) error, retryable func(error) bool) error {
	if within <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, within)
	defer cancel()
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil || (retryable != nil && !retryable(err)) {
			return err
		}
		wait := dialBackoff.Delay(attempt, 0)
		log.Warn("Temporal "+what+" retrying", "attempt", attempt+1, "wait", wait.String(), "error", err)
		if httpx.Sleep(ctx, wait) != nil {
			return err
		}
	}
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
