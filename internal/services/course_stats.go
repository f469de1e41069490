package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type CourseStatsService interface {
	// Get returns the stored snapshot, computing one if the course has none yet.
	Get(ctx context.Context, courseID uuid.UUID) (*types.CourseStats, error)
	Refresh(ctx context.Context, courseID uuid.UUID) (*types.CourseStats, error)
}

type courseStatsService struct {
	log     *logger.Logger
	courses repos.CourseRepo
	stats   repos.CourseStatsRepo
}

func NewCourseStatsService(baseLog *logger.Logger, courses repos.CourseRepo, stats repos.CourseStatsRepo) CourseStatsService {
	return &courseStatsService{
		log:     baseLog.With("service", "CourseStatsService"),
		courses: courses,
		stats:   stats,
	}
}

func (s *courseStatsService) Get(ctx context.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	row, err := s.stats.GetByCourseID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	return s.stats.Refresh(dbctx.Context{Ctx: ctx}, courseID)
}

func (s *courseStatsService) Refresh(ctx context.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.stats.Refresh(dbctx.Context{Ctx: ctx}, courseID)
}

func (s *courseStatsService) requireCourse(ctx context.Context, courseID uuid.UUID) error {
	const op = "course_stats"
	if courseID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	c, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return err
	}
	if c == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}
	return nil
}
