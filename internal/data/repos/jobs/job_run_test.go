package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	types "github.com/yungbote/audience-backend/internal/domain"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
)

type jobSeed struct {
	status    string
	attempts  int
	age       time.Duration
	heartbeat *time.Duration
	lastError *time.Duration
	entityID  *uuid.UUID
}

func seedJobs(t *testing.T, repo JobRunRepo, dbc dbctx.Context, seeds ...jobSeed) []*types.JobRun {
	t.Helper()
	now := time.Now().UTC()
	rows := make([]*types.JobRun, 0, len(seeds))
	for _, s := range seeds {
		row := &types.JobRun{
			ID:          uuid.New(),
			OwnerUserID: "user-1",
			JobType:     "round_execute",
			EntityType:  "audience_query_round",
			EntityID:    s.entityID,
			Status:      s.status,
			Stage:       s.status,
			Attempts:    s.attempts,
			Payload:     datatypes.JSON([]byte("{}")),
			Result:      datatypes.JSON([]byte("{}")),
			CreatedAt:   now.Add(-s.age),
			UpdatedAt:   now.Add(-s.age),
		}
		if s.heartbeat != nil {
			at := now.Add(-*s.heartbeat)
			row.HeartbeatAt = &at
		}
		if s.lastError != nil {
			at := now.Add(-*s.lastError)
			row.LastErrorAt = &at
		}
		rows = append(rows, row)
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("seed jobs: %v", err)
	}
	return rows
}

func ago(d time.Duration) *time.Duration { return &d }

func TestClaimNextRunnableOrder(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	rows := seedJobs(t, repo, dbc,
		jobSeed{status: jobstatus.StatusQueued, age: 3 * time.Hour},
		jobSeed{status: jobstatus.StatusFailed, attempts: 1, age: 2 * time.Hour, lastError: ago(2 * time.Hour)},
		jobSeed{status: jobstatus.StatusFailed, attempts: 3, age: 150 * time.Minute, lastError: ago(2 * time.Hour)},
		jobSeed{status: jobstatus.StatusFailed, attempts: 1, age: 100 * time.Minute, lastError: ago(time.Minute)},
		jobSeed{status: jobstatus.StatusRunning, age: time.Hour, heartbeat: ago(10 * time.Hour)},
		jobSeed{status: jobstatus.StatusRunning, age: 30 * time.Minute, heartbeat: ago(time.Minute)},
		jobSeed{status: jobstatus.StatusSucceeded, age: 4 * time.Hour},
	)
	queued, retryable, staleRunning := rows[0], rows[1], rows[4]

	for i, want := range []*types.JobRun{queued, retryable, staleRunning} {
		claim, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
		if err != nil {
			t.Fatalf("claim #%d: %v", i+1, err)
		}
		if claim == nil || claim.ID != want.ID {
			t.Fatalf("claim #%d: want %v, got %+v", i+1, want.ID, claim)
		}
		if claim.Status != jobstatus.StatusRunning || claim.Attempts != want.Attempts+1 {
			t.Fatalf("claim #%d: status=%q attempts=%d", i+1, claim.Status, claim.Attempts)
		}
	}
	if claim, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour); err != nil || claim != nil {
		t.Fatalf("expected nothing runnable, got %+v err=%v", claim, err)
	}

	stored, err := repo.GetByID(dbc, queued.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != jobstatus.StatusRunning || stored.Attempts != 1 || stored.HeartbeatAt == nil || stored.LockedAt == nil {
		t.Fatalf("claim not persisted: %+v", stored)
	}
}

func TestGetLatestByEntity(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	entityID := uuid.New()
	rows := seedJobs(t, repo, dbc,
		jobSeed{status: jobstatus.StatusSucceeded, age: 5 * time.Hour, entityID: &entityID},
		jobSeed{status: jobstatus.StatusFailed, age: 4 * time.Hour, entityID: &entityID},
	)

	latest, err := repo.GetLatestByEntity(dbc, "audience_query_round", entityID, "round_execute")
	if err != nil {
		t.Fatalf("GetLatestByEntity: %v", err)
	}
	if latest == nil || latest.ID != rows[1].ID {
		t.Fatalf("want %v, got %+v", rows[1].ID, latest)
	}
	if got, err := repo.GetLatestByEntity(dbc, "audience_query_round", uuid.New(), "round_execute"); err != nil || got != nil {
		t.Fatalf("unknown entity: got=%+v err=%v", got, err)
	}
	if got, err := repo.GetByID(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID(missing): got=%+v err=%v", got, err)
	}
}

func TestUpdateFieldsUnlessStatus(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	job := seedJobs(t, repo, dbc, jobSeed{status: jobstatus.StatusRunning, age: time.Minute})[0]
	terminal := []string{jobstatus.StatusCanceled, jobstatus.StatusSucceeded}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, job.ID, terminal, map[string]interface{}{"status": jobstatus.StatusCanceled})
	if err != nil || !ok {
		t.Fatalf("cancel running job: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, job.ID, terminal, map[string]interface{}{"status": jobstatus.StatusSucceeded})
	if err != nil || ok {
		t.Fatalf("canceled job must not be overwritten: ok=%v err=%v", ok, err)
	}

	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{"stage": "done"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	stored, err := repo.GetByID(dbc, job.ID)
	if err != nil || stored.Status != jobstatus.StatusCanceled || stored.Stage != "done" {
		t.Fatalf("unexpected job %+v (%v)", stored, err)
	}
}

func TestHeartbeatOnlyTouchesRunningJobs(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewJobRunRepo(db, testutil.Logger(t))

	rows := seedJobs(t, repo, dbc,
		jobSeed{status: jobstatus.StatusRunning, age: time.Hour, heartbeat: ago(time.Hour)},
		jobSeed{status: jobstatus.StatusQueued, age: time.Hour},
	)
	for _, row := range rows {
		if err := repo.Heartbeat(dbc, row.ID); err != nil {
			t.Fatalf("Heartbeat: %v", err)
		}
	}

	running, _ := repo.GetByID(dbc, rows[0].ID)
	if running.HeartbeatAt == nil || time.Since(*running.HeartbeatAt) > time.Minute {
		t.Fatalf("running heartbeat not refreshed: %+v", running.HeartbeatAt)
	}
	queued, _ := repo.GetByID(dbc, rows[1].ID)
	if queued.HeartbeatAt != nil {
		t.Fatalf("queued job should not get a heartbeat")
	}
}
