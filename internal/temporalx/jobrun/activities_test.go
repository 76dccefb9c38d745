package jobrun

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/audience-backend/internal/data/repos"
	"github.com/yungbote/audience-backend/internal/data/repos/testutil"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/audience-backend/internal/jobs/runtime"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/services"
)

type stubHandler struct {
	typ  string
	runs *int
	run  func(*jobrt.Context) error
}

func (h stubHandler) Type() string { return h.typ }
func (h stubHandler) Run(jc *jobrt.Context) error {
	*h.runs++
	return h.run(jc)
}

func newActivities(t *testing.T, handlers ...jobrt.Handler) (*Activities, services.JobService) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobs := repos.NewJobRunRepo(db, log)
	registry := jobrt.NewRegistry()
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	notify := services.NewJobNotifier(log, nil)
	acts := &Activities{Log: log, DB: db, Jobs: jobs, Registry: registry, Notify: notify}
	return acts, services.NewJobService(db, log, jobs, notify, nil, "")
}

func TestTickRunsHandlerOnce(t *testing.T) {
	runs := 0
	h := stubHandler{typ: "ok", runs: &runs, run: func(jc *jobrt.Context) error {
		jc.Succeed("done", map[string]any{"rows": 3})
		return nil
	}}
	acts, svc := newActivities(t, h)
	ctx := context.Background()
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, "user-1", "ok", "", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res, err := acts.Tick(ctx, job.ID.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Status != jobstatus.StatusSucceeded || res.Progress != 100 || !res.Terminal() {
		t.Fatalf("unexpected result %+v", res)
	}

	// A second tick on a terminal job reports state without running again.
	res, err = acts.Tick(ctx, job.ID.String())
	if err != nil || res.Status != jobstatus.StatusSucceeded {
		t.Fatalf("second tick: %+v %v", res, err)
	}
	if runs != 1 {
		t.Fatalf("handler ran %d times", runs)
	}
}

func TestTickRecordsHandlerError(t *testing.T) {
	runs := 0
	h := stubHandler{typ: "bad", runs: &runs, run: func(*jobrt.Context) error { return errors.New("warehouse down") }}
	acts, svc := newActivities(t, h)
	ctx := context.Background()
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, "user-1", "bad", "", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := acts.Tick(ctx, job.ID.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Status != jobstatus.StatusFailed || res.Stage != "run" || res.Error != "warehouse down" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTickClosesOutSilentHandler(t *testing.T) {
	runs := 0
	h := stubHandler{typ: "quiet", runs: &runs, run: func(*jobrt.Context) error { return nil }}
	acts, svc := newActivities(t, h)
	ctx := context.Background()
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, "user-1", "quiet", "", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := acts.Tick(ctx, job.ID.String())
	if err != nil || res.Status != jobstatus.StatusSucceeded {
		t.Fatalf("expected succeeded, got %+v %v", res, err)
	}
}

func TestTickSkipsJobHeldElsewhere(t *testing.T) {
	runs := 0
	h := stubHandler{typ: "ok", runs: &runs, run: func(jc *jobrt.Context) error { return nil }}
	acts, svc := newActivities(t, h)
	ctx := context.Background()
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, "user-1", "ok", "", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := acts.Jobs.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{"status": jobstatus.StatusRunning}); err != nil {
		t.Fatalf("update: %v", err)
	}
	res, err := acts.Tick(ctx, job.ID.String())
	if err != nil || res.Status != jobstatus.StatusRunning || res.Terminal() {
		t.Fatalf("expected running passthrough, got %+v %v", res, err)
	}
	if runs != 0 {
		t.Fatalf("handler should not run")
	}
}

func TestTickUnknownTypeAndBadID(t *testing.T) {
	acts, svc := newActivities(t)
	ctx := context.Background()
	if _, err := acts.Tick(ctx, "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid id error")
	}
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, "user-1", "mystery", "", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := acts.Tick(ctx, job.ID.String())
	if err != nil || res.Status != jobstatus.StatusFailed || res.Stage != "dispatch" {
		t.Fatalf("expected dispatch failure, got %+v %v", res, err)
	}
}
