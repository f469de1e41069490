package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type EnrollmentService interface {
	// Enroll is idempotent: an existing enrollment is returned unchanged.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
}

type enrollmentService struct {
	log         *logger.Logger
	users       repos.UserRepo
	courses     repos.CourseRepo
	enrollments repos.EnrollmentRepo
}

func NewEnrollmentService(baseLog *logger.Logger, users repos.UserRepo, courses repos.CourseRepo, enrollments repos.EnrollmentRepo) EnrollmentService {
	return &enrollmentService{
		log:         baseLog.With("service", "EnrollmentService"),
		users:       users,
		courses:     courses,
		enrollments: enrollments,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
	const op = "enrollment.Enroll"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, false, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.users.Exists(dbc, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, domainagg.NewError(domainagg.CodeNotFound, op, "user not found", nil)
	}
	course, err := s.courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, false, err
	}
	if course == nil {
		return nil, false, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}
	if course.Status != types.CourseStatusPublished {
		return nil, false, domainagg.NewError(domainagg.CodePreconditionFailed, op, "course is not open for enrollment", nil)
	}

	created, err := s.enrollments.EnsureExists(dbc, &types.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     types.EnrollmentStatusActive,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}
	row, err := s.enrollments.GetByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info("user enrolled", "user_id", userID, "course_id", courseID)
	}
	return row, created, nil
}

func (s *enrollmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "enrollment.ListForUser", "missing user_id", nil)
	}
	return s.enrollments.ListByUserID(dbctx.Context{Ctx: ctx}, userID)
}

func (s *enrollmentService) Get(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	const op = "enrollment.Get"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}
	row, err := s.enrollments.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, courseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "enrollment not found", nil)
	}
	return row, nil
}
