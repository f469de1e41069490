package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

// Reasons attached to a dropped sample.
const (
	DropReasonReferentialIntegrity = "referential_integrity"
	DropReasonConcurrencyConflict  = "concurrency_conflict"
	DropReasonInvariantViolation   = "invariant_violation"
)

const (
	sampleKindSample   = "sample"
	sampleKindComplete = "complete"
	sampleKindSession  = "session_start"
)

type ProgressConfig struct {
	AutoCompleteRatio float64
	// ConflictRetries is how many extra attempts a conflicting write gets
	// before the sample is dropped.
	ConflictRetries int
	RetryInterval   time.Duration
}

func (c ProgressConfig) withDefaults() ProgressConfig {
	if c.AutoCompleteRatio <= 0 || c.AutoCompleteRatio > 1 {
		c.AutoCompleteRatio = 0.90
	}
	if c.ConflictRetries < 0 {
		c.ConflictRetries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 25 * time.Millisecond
	}
	return c
}

type SampleInput struct {
	UserID         uuid.UUID
	LessonID       uuid.UUID
	ElapsedSeconds float64
	// DurationSeconds nil or <= 0 falls back to the lesson's known duration.
	DurationSeconds *float64
}

type CompleteInput struct {
	UserID           uuid.UUID
	LessonID         uuid.UUID
	WatchTimeSeconds *int
	WatchPercentage  *float64
}

// ProgressOutcome is the result of one ingested sample. A dropped sample
// carries Dropped and Reason and no Progress.
type ProgressOutcome struct {
	Progress     *types.LessonProgress
	CourseID     uuid.UUID
	CompletedNow bool
	AutoComplete bool
	Enrollment   *types.Enrollment

	Dropped bool
	Reason  string
}

type ProgressService interface {
	RecordSample(ctx context.Context, in SampleInput) (*ProgressOutcome, error)
	MarkComplete(ctx context.Context, in CompleteInput) (*ProgressOutcome, error)
	TrackSessionStart(ctx context.Context, userID, lessonID uuid.UUID) (*ProgressOutcome, error)
	// Get returns nil when the user has not started the lesson.
	Get(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	ListForLessons(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) (map[uuid.UUID]*types.LessonProgress, error)
}

type ProgressServiceDeps struct {
	Log       *logger.Logger
	Lessons   repos.LessonRepo
	Progress  repos.LessonProgressRepo
	LessonAgg domainagg.LessonProgressAggregate
	EnrollAgg domainagg.EnrollmentProgressAggregate
	Notifier  ProgressNotifier
	Config    ProgressConfig
}

type progressService struct {
	log       *logger.Logger
	lessons   repos.LessonRepo
	progress  repos.LessonProgressRepo
	lessonAgg domainagg.LessonProgressAggregate
	enrollAgg domainagg.EnrollmentProgressAggregate
	notify    ProgressNotifier
	cfg       ProgressConfig
}

func NewProgressService(deps ProgressServiceDeps) ProgressService {
	notify := deps.Notifier
	if notify == nil {
		notify = NopProgressNotifier{}
	}
	return &progressService{
		log:       deps.Log.With("service", "ProgressService"),
		lessons:   deps.Lessons,
		progress:  deps.Progress,
		lessonAgg: deps.LessonAgg,
		enrollAgg: deps.EnrollAgg,
		notify:    notify,
		cfg:       deps.Config.withDefaults(),
	}
}

func (s *progressService) RecordSample(ctx context.Context, in SampleInput) (*ProgressOutcome, error) {
	if err := requireIDs(in.UserID, in.LessonID); err != nil {
		return nil, err
	}
	duration := 0.0
	if in.DurationSeconds != nil && *in.DurationSeconds > 0 {
		duration = *in.DurationSeconds
	} else {
		lesson, err := s.lessons.GetByID(dbctx.Context{Ctx: ctx}, in.LessonID)
		if err != nil {
			return nil, fmt.Errorf("load lesson: %w", err)
		}
		if lesson == nil {
			return s.drop(sampleKindSample, in.UserID, in.LessonID, DropReasonReferentialIntegrity, errors.New("lesson not found")), nil
		}
		if d, ok := lesson.KnownDuration(); ok {
			duration = d
		}
	}

	res, err := s.withConflictRetry(ctx, func() (domainagg.LessonProgressResult, error) {
		return s.lessonAgg.RecordSample(ctx, domainagg.RecordWatchSampleInput{
			UserID:            in.UserID,
			LessonID:          in.LessonID,
			ElapsedSeconds:    in.ElapsedSeconds,
			DurationSeconds:   duration,
			AutoCompleteRatio: s.cfg.AutoCompleteRatio,
		})
	})
	if out, handled, ferr := s.classify(sampleKindSample, in.UserID, in.LessonID, err); handled {
		return out, ferr
	}
	return s.afterWrite(ctx, sampleKindSample, res), nil
}

func (s *progressService) MarkComplete(ctx context.Context, in CompleteInput) (*ProgressOutcome, error) {
	if err := requireIDs(in.UserID, in.LessonID); err != nil {
		return nil, err
	}
	res, err := s.withConflictRetry(ctx, func() (domainagg.LessonProgressResult, error) {
		return s.lessonAgg.MarkComplete(ctx, domainagg.MarkLessonCompleteInput{
			UserID:           in.UserID,
			LessonID:         in.LessonID,
			WatchTimeSeconds: in.WatchTimeSeconds,
			WatchPercentage:  in.WatchPercentage,
		})
	})
	if out, handled, ferr := s.classify(sampleKindComplete, in.UserID, in.LessonID, err); handled {
		return out, ferr
	}
	return s.afterWrite(ctx, sampleKindComplete, res), nil
}

func (s *progressService) TrackSessionStart(ctx context.Context, userID, lessonID uuid.UUID) (*ProgressOutcome, error) {
	if err := requireIDs(userID, lessonID); err != nil {
		return nil, err
	}
	res, err := s.withConflictRetry(ctx, func() (domainagg.LessonProgressResult, error) {
		return s.lessonAgg.StartSession(ctx, domainagg.StartLessonSessionInput{UserID: userID, LessonID: lessonID})
	})
	if out, handled, ferr := s.classify(sampleKindSession, userID, lessonID, err); handled {
		return out, ferr
	}
	observability.Current().IncProgressSample(sampleKindSession, "applied")
	return &ProgressOutcome{Progress: res.Progress, CourseID: res.CourseID}, nil
}

func (s *progressService) Get(ctx context.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	if err := requireIDs(userID, lessonID); err != nil {
		return nil, err
	}
	return s.progress.GetByUserAndLesson(dbctx.Context{Ctx: ctx}, userID, lessonID)
}

func (s *progressService) ListForLessons(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) (map[uuid.UUID]*types.LessonProgress, error) {
	out := make(map[uuid.UUID]*types.LessonProgress, len(lessonIDs))
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return out, nil
	}
	rows, err := s.progress.GetByUserAndLessonIDs(dbctx.Context{Ctx: ctx}, userID, lessonIDs)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r != nil {
			out[r.LessonID] = r
		}
	}
	return out, nil
}

// withConflictRetry reruns write while it fails with a concurrency conflict.
// Any other error stops immediately.
func (s *progressService) withConflictRetry(ctx context.Context, write func() (domainagg.LessonProgressResult, error)) (domainagg.LessonProgressResult, error) {
	return retryOnConflict(ctx, s.log, s.cfg, write)
}

func retryOnConflict[T any](ctx context.Context, log *logger.Logger, cfg ProgressConfig, write func() (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.RetryInterval
	eb.MaxInterval = 8 * cfg.RetryInterval
	op := func() (T, error) {
		out, err := write()
		if err != nil && !domainagg.IsConcurrencyConflict(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}
	return backoff.Retry(ctxutil.Default(ctx), op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(cfg.ConflictRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Debug("progress write conflict; retrying", "sleep", d.String(), "error", err)
		}),
	)
}

// classify turns a failed write into a drop or a caller-facing error. handled
// is false when err is nil.
func (s *progressService) classify(kind string, userID, lessonID uuid.UUID, err error) (*ProgressOutcome, bool, error) {
	switch {
	case err == nil:
		return nil, false, nil
	case domainagg.IsCode(err, domainagg.CodeValidation):
		observability.Current().IncProgressSample(kind, "invalid")
		return nil, true, err
	case domainagg.IsReferentialIntegrity(err):
		return s.drop(kind, userID, lessonID, DropReasonReferentialIntegrity, err), true, nil
	case domainagg.IsConcurrencyConflict(err):
		return s.drop(kind, userID, lessonID, DropReasonConcurrencyConflict, err), true, nil
	case domainagg.IsInvariantViolation(err):
		return s.drop(kind, userID, lessonID, DropReasonInvariantViolation, err), true, nil
	default:
		observability.Current().IncProgressSample(kind, "error")
		s.log.Error("progress write failed", "kind", kind, "user_id", userID, "lesson_id", lessonID, "error", err)
		return nil, true, err
	}
}

func (s *progressService) drop(kind string, userID, lessonID uuid.UUID, reason string, err error) *ProgressOutcome {
	observability.Current().IncProgressSample(kind, reason)
	kv := []interface{}{"kind", kind, "reason", reason, "user_id", userID, "lesson_id", lessonID, "error", err}
	if reason == DropReasonInvariantViolation {
		s.log.Error("progress sample rejected: invariant violation", kv...)
	} else {
		s.log.Warn("progress sample dropped", kv...)
	}
	return &ProgressOutcome{Dropped: true, Reason: reason}
}

func (s *progressService) afterWrite(ctx context.Context, kind string, res domainagg.LessonProgressResult) *ProgressOutcome {
	observability.Current().IncProgressSample(kind, "applied")
	out := &ProgressOutcome{
		Progress:     res.Progress,
		CourseID:     res.CourseID,
		CompletedNow: res.CompletedNow,
		AutoComplete: res.AutoComplete,
	}
	s.notify.LessonProgressUpdated(ctx, res.Progress)
	if !res.CompletedNow {
		return out
	}

	source := "manual"
	if res.AutoComplete {
		source = "auto"
	}
	observability.Current().IncLessonCompletion(source)
	s.notify.LessonCompleted(ctx, res.Progress, res.CourseID, res.AutoComplete)
	out.Enrollment = s.recompute(ctx, res.Progress.UserID, res.CourseID)
	return out
}

// recompute never fails the lesson write; errors are logged.
func (s *progressService) recompute(ctx context.Context, userID, courseID uuid.UUID) *types.Enrollment {
	if s.enrollAgg == nil || courseID == uuid.Nil {
		return nil
	}
	res, err := retryOnConflict(ctx, s.log, s.cfg, func() (domainagg.RecomputeEnrollmentResult, error) {
		return s.enrollAgg.Recompute(ctx, domainagg.RecomputeEnrollmentInput{UserID: userID, CourseID: courseID})
	})
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeNotFound) {
			observability.Current().IncRecompute("lesson_completed", "no_enrollment")
			s.log.Info("lesson completed without enrollment; skipping course progress", "user_id", userID, "course_id", courseID)
			return nil
		}
		observability.Current().IncRecompute("lesson_completed", "error")
		s.log.Warn("course progress recompute failed", "user_id", userID, "course_id", courseID, "error", err)
		return nil
	}
	reportRecompute(ctx, s.notify, "lesson_completed", res)
	return res.Enrollment
}

func reportRecompute(ctx context.Context, notify ProgressNotifier, trigger string, res domainagg.RecomputeEnrollmentResult) {
	if !res.Changed {
		observability.Current().IncRecompute(trigger, "unchanged")
		return
	}
	observability.Current().IncRecompute(trigger, "changed")
	notify.CourseProgressUpdated(ctx, res.Enrollment)
	if res.CompletedNow {
		observability.Current().IncCourseCompletion()
		notify.CourseCompleted(ctx, res.Enrollment)
	}
}

func requireIDs(userID, lessonID uuid.UUID) error {
	if userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, "progress", "missing user_id", nil)
	}
	if lessonID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, "progress", "missing lesson_id", nil)
	}
	return nil
}
