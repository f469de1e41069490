package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// EnsureExists inserts row unless (user_id, course_id) is already enrolled.
	EnsureExists(dbc dbctx.Context, row *types.Enrollment) (bool, error)
	GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error)
	// LockByUserAndCourse reads the row with FOR UPDATE; callers must be inside a transaction.
	LockByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ListRecomputable pages through non-dropped enrollments ordered by id.
	ListRecomputable(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Enrollment, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) EnsureExists(dbc dbctx.Context, row *types.Enrollment) (bool, error) {
	if row == nil || row.UserID == uuid.Nil || row.CourseID == uuid.Nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = types.EnrollmentStatusActive
	}
	if row.EnrolledAt.IsZero() {
		row.EnrolledAt = time.Now()
	}
	res := dbc.Resolve(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Enrollment
	err := dbc.Resolve(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *enrollmentRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	var results []*types.Enrollment
	if userID == uuid.Nil {
		return results, nil
	}
	if err := dbc.Resolve(r.db).
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) LockByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	var row types.Enrollment
	if err := dbc.Resolve(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *enrollmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.Resolve(r.db).
		Model(&types.Enrollment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *enrollmentRepo) ListRecomputable(dbc dbctx.Context, afterID uuid.UUID, limit int) ([]*types.Enrollment, error) {
	if limit <= 0 {
		limit = 200
	}
	var results []*types.Enrollment
	q := dbc.Resolve(r.db).
		Where("status <> ?", types.EnrollmentStatusDropped)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
