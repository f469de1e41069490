package aggregates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
)

type LessonProgressAggregateDeps struct {
	Base BaseDeps

	Users    repos.UserRepo
	Lessons  repos.LessonRepo
	Progress repos.LessonProgressRepo
}

type lessonProgressAggregate struct {
	deps LessonProgressAggregateDeps
}

func NewLessonProgressAggregate(deps LessonProgressAggregateDeps) domainagg.LessonProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	return &lessonProgressAggregate{deps: deps}
}

func (a *lessonProgressAggregate) Contract() domainagg.Contract {
	return domainagg.LessonProgressAggregateContract
}

func (a *lessonProgressAggregate) RecordSample(ctx context.Context, in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
	const op = "Learning.LessonProgress.RecordSample"
	var out domainagg.LessonProgressResult
	if err := a.validate(op, in.UserID, in.LessonID); err != nil {
		return out, err
	}
	if in.ElapsedSeconds > MaxWatchSeconds || math.IsInf(in.ElapsedSeconds, 0) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("elapsed_seconds %v out of range", in.ElapsedSeconds), nil)
	}
	at := normalizeAt(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, row, created, err := a.lockRow(dbc, op, in.UserID, in.LessonID)
		if err != nil {
			return err
		}
		out.CourseID = lesson.CourseID
		out.Created = created

		prev := progressStateOf(row)
		var next progressState
		if !prev.Completed && ReachesAutoComplete(in.ElapsedSeconds, in.DurationSeconds, in.AutoCompleteRatio) {
			wt := int(math.Floor(in.ElapsedSeconds))
			pct, _ := WatchPercentage(in.ElapsedSeconds, in.DurationSeconds)
			next, out.CompletedNow, err = applyCompletion(prev, &wt, &pct, at)
			out.AutoComplete = true
		} else {
			next, err = applyWatchSample(prev, in.ElapsedSeconds, in.DurationSeconds, at)
		}
		if err != nil {
			return err
		}
		if err := a.write(dbc, row.ID, next, out.CompletedNow); err != nil {
			return err
		}
		next.applyTo(row)
		out.Progress = row
		return nil
	})
	return out, err
}

func (a *lessonProgressAggregate) MarkComplete(ctx context.Context, in domainagg.MarkLessonCompleteInput) (domainagg.LessonProgressResult, error) {
	const op = "Learning.LessonProgress.MarkComplete"
	var out domainagg.LessonProgressResult
	if err := a.validate(op, in.UserID, in.LessonID); err != nil {
		return out, err
	}
	if in.WatchTimeSeconds != nil && *in.WatchTimeSeconds > MaxWatchSeconds {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("watch_time_seconds %d out of range", *in.WatchTimeSeconds), nil)
	}
	at := normalizeAt(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, row, created, err := a.lockRow(dbc, op, in.UserID, in.LessonID)
		if err != nil {
			return err
		}
		out.CourseID = lesson.CourseID
		out.Created = created

		next, completedNow, err := applyCompletion(progressStateOf(row), in.WatchTimeSeconds, in.WatchPercentage, at)
		if err != nil {
			return err
		}
		out.CompletedNow = completedNow
		if err := a.write(dbc, row.ID, next, completedNow); err != nil {
			return err
		}
		next.applyTo(row)
		out.Progress = row
		return nil
	})
	return out, err
}

func (a *lessonProgressAggregate) StartSession(ctx context.Context, in domainagg.StartLessonSessionInput) (domainagg.LessonProgressResult, error) {
	const op = "Learning.LessonProgress.StartSession"
	var out domainagg.LessonProgressResult
	if err := a.validate(op, in.UserID, in.LessonID); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.requireRefs(dbc, op, in.UserID, in.LessonID)
		if err != nil {
			return err
		}
		out.CourseID = lesson.CourseID

		created, err := a.deps.Progress.EnsureExists(dbc, &types.LessonProgress{
			UserID:   in.UserID,
			LessonID: in.LessonID,
		})
		if err != nil {
			return err
		}
		out.Created = created

		row, err := a.deps.Progress.GetByUserAndLesson(dbc, in.UserID, in.LessonID)
		if err != nil {
			return err
		}
		if row == nil {
			return RetryableError("lesson progress row not visible after insert")
		}
		out.Progress = row
		return nil
	})
	return out, err
}

func (a *lessonProgressAggregate) validate(op string, userID, lessonID uuid.UUID) error {
	if userID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if lessonID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing lesson_id", nil)
	}
	if a.deps.Users == nil || a.deps.Lessons == nil || a.deps.Progress == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "lesson progress aggregate repos not configured", nil)
	}
	return nil
}

// requireRefs fails with precondition_failed when the user or lesson is gone.
func (a *lessonProgressAggregate) requireRefs(dbc dbctx.Context, op string, userID, lessonID uuid.UUID) (*types.Lesson, error) {
	ok, err := a.deps.Users.Exists(dbc, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, fmt.Sprintf("user not found: %s", userID), nil)
	}
	lesson, err := a.deps.Lessons.GetByID(dbc, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, fmt.Sprintf("lesson not found: %s", lessonID), nil)
	}
	return lesson, nil
}

// lockRow ensures the (user, lesson) row exists and takes its row lock.
func (a *lessonProgressAggregate) lockRow(dbc dbctx.Context, op string, userID, lessonID uuid.UUID) (*types.Lesson, *types.LessonProgress, bool, error) {
	lesson, err := a.requireRefs(dbc, op, userID, lessonID)
	if err != nil {
		return nil, nil, false, err
	}
	created, err := a.deps.Progress.EnsureExists(dbc, &types.LessonProgress{
		UserID:   userID,
		LessonID: lessonID,
	})
	if err != nil {
		return nil, nil, false, err
	}
	row, err := a.deps.Progress.LockByUserAndLesson(dbc, userID, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, RetryableError("lesson progress row not visible after insert")
	}
	if err != nil {
		return nil, nil, false, err
	}
	return lesson, row, created, nil
}

func (a *lessonProgressAggregate) write(dbc dbctx.Context, id uuid.UUID, next progressState, completedNow bool) error {
	updates := next.updates()
	updates["updated_at"] = time.Now().UTC()
	if completedNow {
		ok, err := a.deps.Base.CASGuard.UpdateIfNotCompleted(dbc, "lesson_progress", id, updates)
		if err != nil {
			return err
		}
		return RequireCASSuccess(ok, "lesson already completed by a concurrent write")
	}
	return a.deps.Progress.UpdateFields(dbc, id, updates)
}

func normalizeAt(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}
