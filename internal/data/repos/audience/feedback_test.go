package audience

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	types "github.com/yungbote/audience-backend/internal/domain"
	domainaudience "github.com/yungbote/audience-backend/internal/domain/audience"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
)

func TestFeedbackRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewFeedbackRepo(db, testutil.Logger(t))

	profile := testutil.SeedProfile(t, ctx, db, "alice")
	round := testutil.SeedRound(t, ctx, db, profile.ID, nil, domainaudience.RoundStatusCompleted, time.Now().UTC())

	if fb, err := repo.GetByRound(dbc, round.ID); err != nil || fb != nil {
		t.Fatalf("GetByRound(empty): got=%v err=%v", fb, err)
	}

	a, err := repo.FindOrCreate(dbc, profile.ID, round.ID)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	b, err := repo.FindOrCreate(dbc, profile.ID, round.ID)
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("FindOrCreate must be idempotent: %v != %v", a.ID, b.ID)
	}

	if err := repo.SetOverall(dbc, a.ID, "too many recruiters"); err != nil {
		t.Fatalf("SetOverall: %v", err)
	}
	fb, err := repo.GetByRound(dbc, round.ID)
	if err != nil || fb.Overall() != "too many recruiters" {
		t.Fatalf("GetByRound: %+v err=%v", fb, err)
	}

	first, err := repo.UpsertRow(dbc, &types.RowFeedback{
		FeedbackID: a.ID,
		RoundID:    round.ID,
		RowID:      "42",
		Judgement:  domainaudience.JudgementApprove,
		Snapshot:   datatypes.JSON([]byte(`{"job_title":"CTO"}`)),
	})
	if err != nil {
		t.Fatalf("UpsertRow: %v", err)
	}
	second, err := repo.UpsertRow(dbc, &types.RowFeedback{
		FeedbackID: a.ID,
		RoundID:    round.ID,
		RowID:      "42",
		Judgement:  domainaudience.JudgementReject,
		Snapshot:   datatypes.JSON([]byte(`{"job_title":"CTO"}`)),
	})
	if err != nil {
		t.Fatalf("UpsertRow again: %v", err)
	}
	if first.ID != second.ID || second.Judgement != domainaudience.JudgementReject {
		t.Fatalf("second judgement should overwrite the first: %+v vs %+v", first, second)
	}

	rows, err := repo.ListRows(dbc, round.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListRows: len=%d err=%v", len(rows), err)
	}
}
