package aggregates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
)

type EnrollmentProgressAggregateDeps struct {
	Base BaseDeps

	Enrollments repos.EnrollmentRepo
	Lessons     repos.LessonRepo
	Progress    repos.LessonProgressRepo
}

type enrollmentProgressAggregate struct {
	deps EnrollmentProgressAggregateDeps
}

func NewEnrollmentProgressAggregate(deps EnrollmentProgressAggregateDeps) domainagg.EnrollmentProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	return &enrollmentProgressAggregate{deps: deps}
}

func (a *enrollmentProgressAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentProgressAggregateContract
}

func (a *enrollmentProgressAggregate) Recompute(ctx context.Context, in domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error) {
	const op = "Learning.EnrollmentProgress.Recompute"
	var out domainagg.RecomputeEnrollmentResult
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	if a.deps.Enrollments == nil || a.deps.Lessons == nil || a.deps.Progress == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment aggregate repos not configured", nil)
	}
	at := normalizeAt(in.At)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		enr, err := a.deps.Enrollments.LockByUserAndCourse(dbc, in.UserID, in.CourseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NewError(domainagg.CodeNotFound, op,
				fmt.Sprintf("enrollment not found: user=%s course=%s", in.UserID, in.CourseID), err)
		}
		if err != nil {
			return err
		}

		total, err := a.deps.Lessons.CountByCourseID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		done, err := a.deps.Progress.CountCompletedForCourse(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		if done > total {
			return InvariantError(fmt.Sprintf("completed lessons %d exceed course lessons %d", done, total))
		}

		pct := ComputeCoursePercentage(total, done)
		status := NextEnrollmentStatus(enr.Status, pct)
		if err := checkEnrollmentTransition(enr.Status, status); err != nil {
			return err
		}

		out.TotalLessons = total
		out.DoneLessons = done
		out.PreviousStatus = enr.Status
		out.PreviousPct = enr.ProgressPercentage

		if status == enr.Status && pct == round2(enr.ProgressPercentage) {
			out.Enrollment = enr
			return nil
		}

		updates := map[string]any{
			"progress_percentage": pct,
			"status":              status,
			"updated_at":          time.Now().UTC(),
		}
		if status == types.EnrollmentStatusCompleted && enr.Status != types.EnrollmentStatusCompleted {
			updates["completed_at"] = at
			enr.CompletedAt = &at
			out.CompletedNow = true
		}
		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, "enrollment", enr.ID, []string{enr.Status}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "enrollment status changed during recompute"); err != nil {
			return err
		}

		enr.ProgressPercentage = pct
		enr.Status = status
		out.Enrollment = enr
		out.Changed = true
		return nil
	})
	return out, err
}
