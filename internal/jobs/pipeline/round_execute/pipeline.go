package round_execute

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/audience-backend/internal/jobs/runtime"
	"github.com/yungbote/audience-backend/internal/modules/audience/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	roundID, ok := jc.PayloadUUID("round_id")
	if !ok && jc.Job.EntityID != nil {
		roundID, ok = *jc.Job.EntityID, *jc.Job.EntityID != uuid.Nil
	}
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing round_id"))
		return nil
	}

	jc.Progress("execute", 10, "Running audience query")
	out, err := steps.ExecuteRound(jc.Ctx, steps.ExecuteRoundDeps{
		DB:           p.db,
		Log:          p.log,
		Rounds:       p.rounds,
		Associations: p.associations,
		Execution:    p.execution,
	}, steps.ExecuteRoundInput{
		RoundID: roundID,
		TopK:    p.topK,
	})
	if err != nil {
		jc.Fail("execute", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"round_id":     out.RoundID.String(),
		"status":       out.Status,
		"rows_fetched": out.RowsFetched,
		"rows_stored":  out.RowsStored,
		"rows_dropped": out.RowsDropped,
		"skipped":      out.Skipped,
	})
	return nil
}
