package video_status_check

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	jobrt "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type fakeVideos struct {
	res        *services.VideoCheckResult
	err        error
	failed     []string
	lastLesson uuid.UUID
}

func (f *fakeVideos) Check(_ context.Context, lessonID uuid.UUID, _ string) (*services.VideoCheckResult, error) {
	f.lastLesson = lessonID
	return f.res, f.err
}

func (f *fakeVideos) MarkFailed(_ context.Context, _ uuid.UUID, _ string, detail string) error {
	f.failed = append(f.failed, detail)
	return nil
}

type recordingRepo struct {
	mu      sync.Mutex
	updates []map[string]interface{}
}

func (r *recordingRepo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	return jobs, nil
}
func (r *recordingRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*types.JobRun, error) {
	return nil, nil
}
func (r *recordingRepo) GetLatestByEntity(dbctx.Context, string, uuid.UUID, string) (*types.JobRun, error) {
	return nil, nil
}
func (r *recordingRepo) ClaimNextRunnable(dbctx.Context, int, time.Duration) (*types.JobRun, error) {
	return nil, nil
}
func (r *recordingRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (r *recordingRepo) UpdateFieldsUnlessStatus(_ dbctx.Context, _ uuid.UUID, _ []string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, updates)
	return true, nil
}
func (r *recordingRepo) Heartbeat(dbctx.Context, uuid.UUID) error { return nil }
func (r *recordingRepo) HasRunnableForEntity(dbctx.Context, string, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (r *recordingRepo) last() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func runJob(t *testing.T, videos *fakeVideos, polls int) (*jobrt.Context, *recordingRepo) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	raw, _ := json.Marshal(map[string]any{"lesson_id": uuid.New().String(), "video_id": "555", "polls": polls})
	job := &types.JobRun{ID: uuid.New(), JobType: services.JobTypeVideoStatusCheck, Status: types.JobStatusRunning, Attempts: 1, Payload: datatypes.JSON(raw)}
	repo := &recordingRepo{}
	jc := jobrt.NewContext(context.Background(), job, repo, log, jobrt.DefaultRetryPolicy())
	p := New(log, videos, 0, 0)
	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return jc, repo
}

func TestInProgressReschedulesWithPollCount(t *testing.T) {
	videos := &fakeVideos{res: &services.VideoCheckResult{State: services.VideoCheckInProgress, VideoID: "555"}}
	jc, repo := runJob(t, videos, 3)
	last := repo.last()
	if last["status"] != types.JobStatusQueued {
		t.Fatalf("status: want=%s got=%v", types.JobStatusQueued, last["status"])
	}
	if got := jc.PayloadInt("polls"); got != 4 {
		t.Fatalf("polls: want=4 got=%d", got)
	}
	runAfter, _ := last["run_after"].(time.Time)
	if d := time.Until(runAfter); d < 2*time.Minute || d > 3*time.Minute {
		t.Fatalf("run_after: want ~3m got=%s", d)
	}
}

func TestPollLimitMarksVideoFailed(t *testing.T) {
	videos := &fakeVideos{res: &services.VideoCheckResult{State: services.VideoCheckInProgress, VideoID: "555"}}
	_, repo := runJob(t, videos, DefaultMaxPolls-1)
	if len(videos.failed) != 1 {
		t.Fatalf("MarkFailed calls: want=1 got=%d", len(videos.failed))
	}
	last := repo.last()
	if last["status"] != types.JobStatusSucceeded || last["stage"] != "gave_up" {
		t.Fatalf("final update: %+v", last)
	}
}

func TestTerminalStateSucceeds(t *testing.T) {
	videos := &fakeVideos{res: &services.VideoCheckResult{State: services.VideoCheckReady, VideoID: "555", DurationSeconds: 90}}
	_, repo := runJob(t, videos, 0)
	if last := repo.last(); last["status"] != types.JobStatusSucceeded || last["stage"] != services.VideoCheckReady {
		t.Fatalf("final update: %+v", last)
	}
}

func TestProviderErrorSchedulesRetry(t *testing.T) {
	videos := &fakeVideos{err: errors.New("502 bad gateway")}
	_, repo := runJob(t, videos, 0)
	last := repo.last()
	if last["status"] != types.JobStatusFailed {
		t.Fatalf("status: want=%s got=%v", types.JobStatusFailed, last["status"])
	}
	runAfter, ok := last["run_after"].(*time.Time)
	if !ok || runAfter == nil {
		t.Fatalf("first failure should schedule a retry, got=%v", last["run_after"])
	}
	if d := time.Until(*runAfter); d < 50*time.Second || d > 60*time.Second {
		t.Fatalf("retry delay: want ~60s got=%s", d)
	}
}
