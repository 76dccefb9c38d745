package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	"github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/modules/audience/summary"
	"github.com/yungbote/audience-backend/internal/observability"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/platform/logger"
	"github.com/yungbote/audience-backend/internal/services"
)

type ExecuteRoundDeps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Rounds       repos.QueryRoundRepo
	Associations repos.ResultAssociationRepo
	Execution    services.ExecutionGateway
}

type ExecuteRoundInput struct {
	RoundID uuid.UUID
	// TopK defaults to summary.DefaultTopK.
	TopK int
}

type ExecuteRoundOutput struct {
	RoundID     uuid.UUID `json:"round_id"`
	Status      string    `json:"status"`
	RowsFetched int       `json:"rows_fetched"`
	RowsStored  int       `json:"rows_stored"`
	RowsDropped int       `json:"rows_dropped"`
	Skipped     bool      `json:"skipped,omitempty"`
}

// ExecuteRound runs a created round's query, stores its rows and summary, and moves the round
// to completed. Any failure after the round is claimed leaves it execution_failed with the cause.
func ExecuteRound(ctx context.Context, deps ExecuteRoundDeps, in ExecuteRoundInput) (ExecuteRoundOutput, error) {
	out := ExecuteRoundOutput{RoundID: in.RoundID}
	if deps.DB == nil || deps.Log == nil || deps.Rounds == nil || deps.Associations == nil || deps.Execution == nil {
		return out, fmt.Errorf("execute_round: missing deps")
	}
	if in.RoundID == uuid.Nil {
		return out, fmt.Errorf("execute_round: missing round_id")
	}
	log := deps.Log.With("round_id", in.RoundID)

	round, err := deps.Rounds.GetByID(dbctx.Context{Ctx: ctx}, in.RoundID)
	if err != nil {
		return out, fmt.Errorf("execute_round: load round: %w", err)
	}
	if round == nil {
		return out, fmt.Errorf("execute_round: round %s not found", in.RoundID)
	}
	if round.Terminal() {
		out.Status = round.Status
		out.Skipped = true
		log.Info("Round already finished; skipping", "status", round.Status)
		return out, nil
	}

	now := time.Now().UTC()
	claimed, err := deps.Rounds.UpdateFieldsIfStatus(dbctx.Context{Ctx: ctx}, round.ID,
		[]string{audience.RoundStatusCreated, audience.RoundStatusExecuting},
		map[string]interface{}{
			"status":      audience.RoundStatusExecuting,
			"executed_at": now,
			"error":       "",
			"updated_at":  now,
		})
	if err != nil {
		return out, fmt.Errorf("execute_round: mark executing: %w", err)
	}
	if !claimed {
		out.Skipped = true
		log.Info("Round moved on before execution; skipping")
		return out, nil
	}

	raw, err := deps.Execution.Execute(ctx, round.Query)
	if err != nil {
		out.Status = audience.RoundStatusExecutionFailed
		markFailed(ctx, deps, round.ID, err)
		return out, err
	}
	out.RowsFetched = len(raw)

	rows := IdentifiedRows(raw)
	out.RowsStored = len(rows)
	out.RowsDropped = len(raw) - len(rows)
	if out.RowsDropped > 0 {
		log.Warn("Dropped rows without a usable id", "dropped", out.RowsDropped, "fetched", out.RowsFetched)
	}

	k := in.TopK
	if k <= 0 {
		k = summary.DefaultTopK
	}
	sum := summary.Summarize(rows, audience.SummaryFields, k)
	sumJSON, err := json.Marshal(sum)
	if err != nil {
		out.Status = audience.RoundStatusExecutionFailed
		markFailed(ctx, deps, round.ID, err)
		return out, fmt.Errorf("execute_round: encode summary: %w", err)
	}
	assocs, err := associationsFor(rows)
	if err != nil {
		out.Status = audience.RoundStatusExecutionFailed
		markFailed(ctx, deps, round.ID, err)
		return out, fmt.Errorf("execute_round: encode rows: %w", err)
	}

	// Associations and the summary become visible together or not at all.
	err = deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := deps.Associations.ReplaceForRound(inner, round.ID, assocs); err != nil {
			return fmt.Errorf("store associations: %w", err)
		}
		done := time.Now().UTC()
		total := len(rows)
		ok, err := deps.Rounds.UpdateFieldsIfStatus(inner, round.ID,
			[]string{audience.RoundStatusExecuting},
			map[string]interface{}{
				"status":       audience.RoundStatusCompleted,
				"summary":      datatypes.JSON(sumJSON),
				"total_count":  total,
				"completed_at": done,
				"updated_at":   done,
			})
		if err != nil {
			return fmt.Errorf("complete round: %w", err)
		}
		if !ok {
			return fmt.Errorf("round left executing state during execution")
		}
		return nil
	})
	if err != nil {
		out.Status = audience.RoundStatusExecutionFailed
		markFailed(ctx, deps, round.ID, err)
		return out, fmt.Errorf("execute_round: %w", err)
	}

	out.Status = audience.RoundStatusCompleted
	observability.Current().IncRoundOutcome(out.Status)
	log.Info("Round completed", "rows", out.RowsStored, "dropped", out.RowsDropped)
	return out, nil
}

// IdentifiedRows keeps rows that carry an id, first occurrence wins for duplicate ids.
func IdentifiedRows(rows []types.ContactRow) []types.ContactRow {
	out := make([]types.ContactRow, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := row.ID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, row)
	}
	return out
}

func associationsFor(rows []types.ContactRow) ([]*types.ResultAssociation, error) {
	out := make([]*types.ResultAssociation, 0, len(rows))
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.ID(), err)
		}
		out = append(out, &types.ResultAssociation{
			RowID:    row.ID(),
			Position: i,
			Payload:  datatypes.JSON(b),
		})
	}
	return out, nil
}

// markFailed records the cause on the round, detached from ctx cancellation.
func markFailed(ctx context.Context, deps ExecuteRoundDeps, roundID uuid.UUID, cause error) {
	now := time.Now().UTC()
	_, err := deps.Rounds.UpdateFieldsIfStatus(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, roundID,
		[]string{audience.RoundStatusCreated, audience.RoundStatusExecuting},
		map[string]interface{}{
			"status":       audience.RoundStatusExecutionFailed,
			"error":        cause.Error(),
			"completed_at": now,
			"updated_at":   now,
		})
	if err != nil {
		deps.Log.Error("Failed to record round failure", "round_id", roundID, "cause", cause, "error", err)
		return
	}
	observability.Current().IncRoundOutcome(audience.RoundStatusExecutionFailed)
}
