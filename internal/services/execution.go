package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

// RowSource runs a query against the analytical store and returns every row.
type RowSource interface {
	Query(ctx context.Context, query string) ([]map[string]any, error)
}

type ExecutionGateway interface {
	Execute(ctx context.Context, query string) ([]types.ContactRow, error)
}

type executionGateway struct {
	log     *logger.Logger
	src     RowSource
	timeout time.Duration
}

func NewExecutionGateway(baseLog *logger.Logger, src RowSource, timeout time.Duration) ExecutionGateway {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &executionGateway{
		log:     baseLog.With("service", "ExecutionGateway"),
		src:     src,
		timeout: timeout,
	}
}

// Execute fully materialises the result set. Every failure, including the timeout, is ErrExecutionFailed.
func (g *executionGateway) Execute(ctx context.Context, query string) ([]types.ContactRow, error) {
	if g.src == nil {
		return nil, fmt.Errorf("%w: no analytical store configured", apierr.ErrExecutionFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := otel.Tracer("audience-backend/services").Start(ctx, "execution.query")
	defer span.End()

	start := time.Now()
	raw, err := g.src.Query(ctx, query)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	observability.Current().ObserveExecution(len(raw), err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s", apierr.ErrExecutionFailed, g.timeout)
		}
		return nil, fmt.Errorf("%w: %v", apierr.ErrExecutionFailed, err)
	}

	rows := make([]types.ContactRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, types.ContactRow(r))
	}
	span.SetAttributes(attribute.Int("execution.rows", len(rows)))
	g.log.Info("Query executed", "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())
	return rows, nil
}
