package learning

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	GetByCode(dbc dbctx.Context, code string) (*types.Course, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	UpsertByCode(dbc dbctx.Context, course *types.Course) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var course types.Course
	err := dbc.Resolve(r.db).Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByCode(dbc dbctx.Context, code string) (*types.Course, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var course types.Course
	err := dbc.Resolve(r.db).Where("code = ?", code).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.Resolve(r.db).
		Model(&types.Course{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *courseRepo) UpsertByCode(dbc dbctx.Context, course *types.Course) (*types.Course, error) {
	if course == nil || strings.TrimSpace(course.Code) == "" {
		return nil, errors.New("course code required")
	}
	var out types.Course
	err := dbc.Resolve(r.db).
		Where("code = ?", course.Code).
		Attrs(types.Course{
			Code:      course.Code,
			CreatedBy: course.CreatedBy,
			Metadata:  course.Metadata,
		}).
		Assign(map[string]interface{}{
			"title":       course.Title,
			"description": course.Description,
			"status":      course.Status,
			"updated_at":  time.Now(),
		}).
		FirstOrCreate(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}
