package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type queueRepo struct {
	mu   sync.Mutex
	jobs []*types.JobRun
}

func (r *queueRepo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		j.ID = uuid.New()
	}
	r.jobs = append(r.jobs, jobs...)
	return jobs, nil
}
func (r *queueRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*types.JobRun, error) { return nil, nil }
func (r *queueRepo) GetLatestByEntity(dbctx.Context, string, uuid.UUID, string) (*types.JobRun, error) {
	return nil, nil
}
func (r *queueRepo) ClaimNextRunnable(dbctx.Context, int, time.Duration) (*types.JobRun, error) {
	return nil, nil
}
func (r *queueRepo) UpdateFields(dbctx.Context, uuid.UUID, map[string]interface{}) error {
	return nil
}
func (r *queueRepo) UpdateFieldsUnlessStatus(dbctx.Context, uuid.UUID, []string, map[string]interface{}) (bool, error) {
	return true, nil
}
func (r *queueRepo) Heartbeat(dbctx.Context, uuid.UUID) error { return nil }
func (r *queueRepo) HasRunnableForEntity(_ dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.EntityType == entityType && j.EntityID != nil && *j.EntityID == entityID && j.JobType == jobType && j.Status == types.JobStatusQueued {
			return true, nil
		}
	}
	return false, nil
}

func TestEveryRejectsBadSpec(t *testing.T) {
	log, _ := logger.New("test")
	s := New(log, &queueRepo{}, nil)
	if err := s.Every("not a spec", "progress_reconcile", nil); err == nil {
		t.Fatalf("expected invalid spec error")
	}
	if err := s.Every("0 3 * * *", "progress_reconcile", nil); err != nil {
		t.Fatalf("default spec: %v", err)
	}
}

func TestTriggerDedupes(t *testing.T) {
	log, _ := logger.New("test")
	repo := &queueRepo{}
	s := New(log, repo, nil)

	created, err := s.Trigger(context.Background(), "progress_reconcile", nil)
	if err != nil || !created {
		t.Fatalf("first trigger: created=%v err=%v", created, err)
	}
	created, err = s.Trigger(context.Background(), "progress_reconcile", nil)
	if err != nil || created {
		t.Fatalf("second trigger: created=%v err=%v", created, err)
	}
	if len(repo.jobs) != 1 {
		t.Fatalf("jobs: want=1 got=%d", len(repo.jobs))
	}
	if *repo.jobs[0].EntityID != SystemEntityID("progress_reconcile") {
		t.Fatalf("entity id should be stable")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	log, _ := logger.New("test")
	s := New(log, &queueRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
