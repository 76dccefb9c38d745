package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/audience-backend/internal/data/repos"
	types "github.com/yungbote/audience-backend/internal/domain"
	jobstatus "github.com/yungbote/audience-backend/internal/domain/jobs"
	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/services"
)

// Context is what a Handler sees of one claimed job_run. Handlers report through Progress,
// Fail and Succeed; none of them overwrite a job that was canceled while it ran.
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Notify services.JobNotifier

	payload map[string]any
}

// NewContext binds a claimed job. Trace and request ids stamped into the payload at enqueue
// time are restored onto Ctx. A payload that is not a JSON object reads as empty.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{Ctx: ctx, DB: db, Job: job, Repo: repo, Notify: notify, payload: map[string]any{}}
	if job != nil && len(job.Payload) > 0 {
		var m map[string]any
		if json.Unmarshal(job.Payload, &m) == nil && m != nil {
			c.payload = m
		}
	}
	if td := (ctxutil.TraceData{TraceID: c.str("trace_id"), RequestID: c.str("request_id")}); td != (ctxutil.TraceData{}) {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, &td)
	}
	return c
}

// Payload is the decoded job payload; never nil.
func (c *Context) Payload() map[string]any { return c.payload }

// PayloadUUID parses payload[key] as a non-nil UUID.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.str(key))
	return id, err == nil && id != uuid.Nil
}

func (c *Context) str(key string) string {
	v, ok := c.payload[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Progress records a non-terminal stage and counts as a heartbeat.
func (c *Context) Progress(stage string, pct int, msg string) {
	now := time.Now().UTC()
	if c.transition(map[string]interface{}{
		"stage":        stage,
		"progress":     pct,
		"message":      msg,
		"heartbeat_at": now,
	}, now) && c.Notify != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct, msg)
	}
}

// Fail marks the job failed at stage and releases its lock.
func (c *Context) Fail(stage string, err error) {
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.transition(map[string]interface{}{
		"status":        jobstatus.StatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
	}, now) && c.Notify != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// Succeed marks the job succeeded and stores result as its JSON result.
func (c *Context) Succeed(finalStage string, result any) {
	now := time.Now().UTC()
	encoded := datatypes.JSON(`{}`)
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			encoded = b
		}
	}
	if c.transition(map[string]interface{}{
		"status":       jobstatus.StatusSucceeded,
		"stage":        finalStage,
		"progress":     100,
		"message":      "",
		"error":        "",
		"result":       encoded,
		"locked_at":    nil,
		"heartbeat_at": now,
	}, now) && c.Notify != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}

// transition persists updates unless the job is canceled and mirrors them onto c.Job. It reports
// whether the change took effect. Writes detach from Ctx so a canceled run still records its end.
func (c *Context) transition(updates map[string]interface{}, now time.Time) bool {
	if c == nil || c.Job == nil {
		return false
	}
	updates["updated_at"] = now
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: context.WithoutCancel(c.Ctx)},
			c.Job.ID, []string{jobstatus.StatusCanceled}, updates)
		if err != nil || !ok {
			return false
		}
	}
	mirror(c.Job, updates)
	return true
}

func mirror(job *types.JobRun, updates map[string]interface{}) {
	timeAt := func(v interface{}) *time.Time {
		if t, ok := v.(time.Time); ok {
			return &t
		}
		return nil
	}
	for k, v := range updates {
		switch k {
		case "status":
			job.Status = v.(string)
		case "stage":
			job.Stage = v.(string)
		case "progress":
			job.Progress = v.(int)
		case "message":
			job.Message = v.(string)
		case "error":
			job.Error = v.(string)
		case "result":
			job.Result = v.(datatypes.JSON)
		case "locked_at":
			job.LockedAt = timeAt(v)
		case "heartbeat_at":
			job.HeartbeatAt = timeAt(v)
		case "last_error_at":
			job.LastErrorAt = timeAt(v)
		case "updated_at":
			job.UpdatedAt = v.(time.Time)
		}
	}
}
