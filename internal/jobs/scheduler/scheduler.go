package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	jobrt "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

const systemEntity = "system"

// Scheduler enqueues periodic job runs. Execution happens on the worker, so
// several API instances may run a scheduler and still produce one queued run.
type Scheduler struct {
	log  *logger.Logger
	jobs repos.JobRunRepo
	cron *cron.Cron
}

func New(baseLog *logger.Logger, jobs repos.JobRunRepo, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	log := baseLog.With("component", "JobScheduler")
	cl := cronLogger{log: log}
	return &Scheduler{
		log:  log,
		jobs: jobs,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// SystemEntityID is the stable entity id used to dedupe a periodic job type.
func SystemEntityID(jobType string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("coursetrack/"+jobType))
}

// Every registers jobType on a standard five-field cron spec.
func (s *Scheduler) Every(spec, jobType string, payload map[string]any) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, jobType, err)
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.enqueue(context.Background(), jobType, payload)
	})
	if err != nil {
		return err
	}
	s.log.Info("periodic job registered", "job_type", jobType, "spec", spec)
	return nil
}

// Trigger enqueues jobType immediately, subject to the same dedupe.
func (s *Scheduler) Trigger(ctx context.Context, jobType string, payload map[string]any) (bool, error) {
	return s.enqueue(ctx, jobType, payload)
}

func (s *Scheduler) enqueue(ctx context.Context, jobType string, payload map[string]any) (bool, error) {
	job, err := jobrt.Enqueue(dbctx.Context{Ctx: ctx}, s.jobs, jobrt.EnqueueRequest{
		JobType:    jobType,
		EntityType: systemEntity,
		EntityID:   SystemEntityID(jobType),
		Payload:    payload,
		Dedupe:     true,
	})
	if err != nil {
		s.log.Error("periodic enqueue failed", "job_type", jobType, "error", err)
		return false, err
	}
	if job == nil {
		s.log.Debug("periodic job already queued", "job_type", jobType)
		return false, nil
	}
	s.log.Info("periodic job enqueued", "job_type", jobType, "job_id", job.ID)
	return true, nil
}

// Run starts the cron loop and blocks until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn("scheduler stop timed out")
	}
	return nil
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
