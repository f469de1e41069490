package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
)

type EnqueueRequest struct {
	JobType    string
	EntityType string
	EntityID   uuid.UUID
	Payload    map[string]any
	RunAfter   *time.Time
	// Dedupe skips the insert when a queued or running job already exists for
	// the same entity and type.
	Dedupe bool
}

// Enqueue inserts a queued job_run. It returns nil, nil when Dedupe matched.
func Enqueue(dbc dbctx.Context, jobs repos.JobRunRepo, req EnqueueRequest) (*types.JobRun, error) {
	if strings.TrimSpace(req.JobType) == "" {
		return nil, fmt.Errorf("job type required")
	}
	if req.Dedupe && req.EntityID != uuid.Nil {
		exists, err := jobs.HasRunnableForEntity(dbc, req.EntityType, req.EntityID, req.JobType)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, nil
		}
	}
	payload := map[string]any{}
	for k, v := range req.Payload {
		payload[k] = v
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	job := &types.JobRun{
		JobType:    req.JobType,
		EntityType: req.EntityType,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		RunAfter:   req.RunAfter,
		Payload:    datatypes.JSON(raw),
	}
	if req.EntityID != uuid.Nil {
		id := req.EntityID
		job.EntityID = &id
	}
	created, err := jobs.Create(dbc, []*types.JobRun{job})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}
