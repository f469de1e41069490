package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

const JobTypeProgressReconcile = "progress_reconcile"

type ReconcileReport struct {
	Scanned        int `json:"scanned"`
	Changed        int `json:"changed"`
	CompletedNow   int `json:"completed_now"`
	Failed         int `json:"failed"`
	StatsRefreshed int `json:"stats_refreshed"`
}

// ReconcileService repairs enrollment aggregates that missed a recompute,
// then refreshes every course's stats snapshot.
type ReconcileService interface {
	Run(ctx context.Context) (*ReconcileReport, error)
}

type ReconcileServiceDeps struct {
	Log         *logger.Logger
	Enrollments repos.EnrollmentRepo
	Courses     repos.CourseRepo
	Stats       repos.CourseStatsRepo
	EnrollAgg   domainagg.EnrollmentProgressAggregate
	Notify      ProgressNotifier
	PageSize    int
}

type reconcileService struct {
	log         *logger.Logger
	enrollments repos.EnrollmentRepo
	courses     repos.CourseRepo
	stats       repos.CourseStatsRepo
	enrollAgg   domainagg.EnrollmentProgressAggregate
	notify      ProgressNotifier
	pageSize    int
}

func NewReconcileService(deps ReconcileServiceDeps) ReconcileService {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	notify := deps.Notify
	if notify == nil {
		notify = NopProgressNotifier{}
	}
	return &reconcileService{
		log:         deps.Log.With("service", "ReconcileService"),
		enrollments: deps.Enrollments,
		courses:     deps.Courses,
		stats:       deps.Stats,
		enrollAgg:   deps.EnrollAgg,
		notify:      notify,
		pageSize:    pageSize,
	}
}

func (s *reconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	report := &ReconcileReport{}
	dbc := dbctx.Context{Ctx: ctx}

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := s.enrollments.ListRecomputable(dbc, after, s.pageSize)
		if err != nil {
			return report, err
		}
		for _, e := range page {
			report.Scanned++
			res, err := s.enrollAgg.Recompute(ctx, domainagg.RecomputeEnrollmentInput{UserID: e.UserID, CourseID: e.CourseID})
			if err != nil {
				report.Failed++
				s.log.Warn("reconcile recompute failed", "user_id", e.UserID, "course_id", e.CourseID, "error", err)
				continue
			}
			if res.Changed {
				report.Changed++
			}
			if res.CompletedNow {
				report.CompletedNow++
			}
			reportRecompute(ctx, s.notify, "reconcile", res)
		}
		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	courseIDs, err := s.courses.ListIDs(dbc)
	if err != nil {
		return report, err
	}
	for _, id := range courseIDs {
		if _, err := s.stats.Refresh(dbc, id); err != nil {
			s.log.Warn("course stats refresh failed", "course_id", id, "error", err)
			continue
		}
		report.StatsRefreshed++
	}

	s.log.Info("progress reconcile finished",
		"scanned", report.Scanned,
		"changed", report.Changed,
		"completed_now", report.CompletedNow,
		"failed", report.Failed,
		"stats_refreshed", report.StatsRefreshed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
