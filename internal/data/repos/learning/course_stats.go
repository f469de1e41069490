package learning

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type CourseStatsRepo interface {
	GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error)
	// Refresh recomputes the stats row for courseID from enrollment and upserts it.
	Refresh(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error)
}

type courseStatsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseStatsRepo(db *gorm.DB, baseLog *logger.Logger) CourseStatsRepo {
	return &courseStatsRepo{db: db, log: baseLog.With("repo", "CourseStatsRepo")}
}

func (r *courseStatsRepo) GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var row types.CourseStats
	err := dbc.Resolve(r.db).Where("course_id = ?", courseID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type enrollmentTotals struct {
	Total     int64
	Active    int64
	Completed int64
	AvgPct    float64
}

func (r *courseStatsRepo) Refresh(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseStats, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var totals enrollmentTotals
	err := dbc.Resolve(r.db).
		Model(&types.Enrollment{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = ?) AS active,
			COUNT(*) FILTER (WHERE status = ?) AS completed,
			COALESCE(AVG(progress_percentage), 0) AS avg_pct`,
			types.EnrollmentStatusActive, types.EnrollmentStatusCompleted).
		Where("course_id = ?", courseID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	row := &types.CourseStats{
		ID:                    uuid.New(),
		CourseID:              courseID,
		TotalEnrollments:      int(totals.Total),
		ActiveEnrollments:     int(totals.Active),
		CompletedEnrollments:  int(totals.Completed),
		AverageCompletionRate: math.Round(totals.AvgPct*100) / 100,
		LastUpdated:           now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := dbc.Resolve(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_enrollments",
				"active_enrollments",
				"completed_enrollments",
				"average_completion_rate",
				"last_updated",
				"updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByCourseID(dbc, courseID)
}
