package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

/*
Context is the execution handle for one claimed job run.
Handlers never touch job_run directly: progress, failure, success and
reschedule all go through this object so the retry policy stays in one place.
*/
type Context struct {
	Ctx    context.Context
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Log    *logger.Logger
	Policy RetryPolicy

	payload map[string]any
	settled bool
}

func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo, log *logger.Logger, policy RetryPolicy) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{
		Ctx:    ctxutil.Default(ctx),
		Job:    job,
		Repo:   repo,
		Log:    log,
		Policy: policy.withDefaults(),
	}
	_ = c.decodePayload()
	c.applyTraceData()
	if job != nil {
		c.Log = c.Log.With("job_id", job.ID.String(), "job_type", job.JobType, "attempt", job.Attempts)
	}
	return c
}

func (c *Context) decodePayload() error {
	c.payload = map[string]any{}
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		return err
	}
	if m != nil {
		c.payload = m
	}
	return nil
}

func (c *Context) applyTraceData() {
	p := c.Payload()
	traceID := PayloadString(p, "trace_id")
	reqID := PayloadString(p, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := PayloadString(c.Payload(), key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) PayloadString(key string) string {
	return PayloadString(c.Payload(), key)
}

func (c *Context) PayloadInt(key string) int {
	switch v := c.Payload()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// Settled reports whether Fail, Succeed or Reschedule already ran.
func (c *Context) Settled() bool { return c.settled }

// Progress records a heartbeat with a human message.
func (c *Context) Progress(stage, msg string) {
	now := time.Now().UTC()
	if !c.write(map[string]interface{}{
		"stage":        stage,
		"message":      msg,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
	}
}

// Fail records err. While attempts remain the row is left failed with a
// run_after from the retry policy so the worker claims it again.
func (c *Context) Fail(stage string, err error) {
	if c.settled {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	attempts := 0
	if c.Job != nil {
		attempts = c.Job.Attempts
	}
	var runAfter *time.Time
	if c.Policy.CanRetry(attempts) {
		t := now.Add(c.Policy.DelayFor(attempts))
		runAfter = &t
	}
	if !c.write(map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         msg,
		"last_error_at": now,
		"run_after":     runAfter,
		"locked_at":     nil,
		"updated_at":    now,
	}) {
		return
	}
	c.settled = true
	if c.Job != nil {
		c.Job.Status = types.JobStatusFailed
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.RunAfter = runAfter
		c.Job.LockedAt = nil
	}
	c.Log.Warn("job failed", "stage", stage, "error", msg, "will_retry", runAfter != nil)
}

func (c *Context) Succeed(stage string, result any) {
	if c.settled {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if !c.write(map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"stage":        stage,
		"progress":     100,
		"message":      "",
		"error":        "",
		"result":       res,
		"run_after":    nil,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	c.settled = true
	if c.Job != nil {
		c.Job.Status = types.JobStatusSucceeded
		c.Job.Stage = stage
		c.Job.Progress = 100
		c.Job.Result = res
		c.Job.LockedAt = nil
	}
}

// Reschedule puts the job back in the queue after delay with a fresh attempt
// budget. payloadPatch is merged into the stored payload.
func (c *Context) Reschedule(stage string, delay time.Duration, payloadPatch map[string]any) {
	if c.settled {
		return
	}
	now := time.Now().UTC()
	runAfter := now.Add(delay)
	p := c.Payload()
	for k, v := range payloadPatch {
		p[k] = v
	}
	raw, err := json.Marshal(p)
	if err != nil {
		c.Fail(stage, fmt.Errorf("encode payload: %w", err))
		return
	}
	if !c.write(map[string]interface{}{
		"status":     types.JobStatusQueued,
		"stage":      stage,
		"attempts":   0,
		"error":      "",
		"run_after":  runAfter,
		"locked_at":  nil,
		"payload":    datatypes.JSON(raw),
		"updated_at": now,
	}) {
		return
	}
	c.settled = true
	if c.Job != nil {
		c.Job.Status = types.JobStatusQueued
		c.Job.Stage = stage
		c.Job.Attempts = 0
		c.Job.RunAfter = &runAfter
		c.Job.Payload = datatypes.JSON(raw)
	}
}

// write is guarded so a canceled job is never overwritten.
func (c *Context) write(updates map[string]interface{}) bool {
	if c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return true
	}
	ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Job.ID, []string{types.JobStatusCanceled}, updates)
	if err != nil {
		c.Log.Warn("job_run update failed", "error", err)
		return false
	}
	return ok
}

func PayloadString(p map[string]any, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
