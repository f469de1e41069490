package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error)
	GetByVideoID(dbc dbctx.Context, videoID string) (*types.Lesson, error)
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	UpsertByCourseAndOrder(dbc dbctx.Context, lesson *types.Lesson) (*types.Lesson, error)
	// UpdateVideoIfNewer applies updates only when eventAt is not older than the
	// stored video_event_at. It reports whether the row changed.
	UpdateVideoIfNewer(dbc dbctx.Context, id uuid.UUID, eventAt time.Time, updates map[string]interface{}) (bool, error)
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var lesson types.Lesson
	err := dbc.Resolve(r.db).Where("id = ?", id).First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.Resolve(r.db).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetByVideoID(dbc dbctx.Context, videoID string) (*types.Lesson, error) {
	if videoID == "" {
		return nil, nil
	}
	var rows []*types.Lesson
	if err := dbc.Resolve(r.db).
		Where("video_id = ?", videoID).
		Order("created_at ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *lessonRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if courseID == uuid.Nil {
		return results, nil
	}
	if err := dbc.Resolve(r.db).
		Where("course_id = ?", courseID).
		Order("sort_order ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) CountByCourseID(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Resolve(r.db).
		Model(&types.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

func (r *lessonRepo) UpsertByCourseAndOrder(dbc dbctx.Context, lesson *types.Lesson) (*types.Lesson, error) {
	if lesson == nil || lesson.CourseID == uuid.Nil {
		return nil, errors.New("lesson with course_id required")
	}
	assign := map[string]interface{}{
		"title":       lesson.Title,
		"description": lesson.Description,
		"is_free":     lesson.IsFree,
		"video_id":    lesson.VideoID,
		"updated_at":  time.Now(),
	}
	if lesson.DurationSeconds > 0 {
		assign["duration_seconds"] = lesson.DurationSeconds
	}
	if lesson.VideoStatus != "" {
		assign["video_status"] = lesson.VideoStatus
	}
	var out types.Lesson
	err := dbc.Resolve(r.db).
		Where("course_id = ? AND sort_order = ?", lesson.CourseID, lesson.Order).
		Attrs(types.Lesson{
			CourseID: lesson.CourseID,
			Order:    lesson.Order,
			Metadata: lesson.Metadata,
		}).
		Assign(assign).
		FirstOrCreate(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *lessonRepo) UpdateVideoIfNewer(dbc dbctx.Context, id uuid.UUID, eventAt time.Time, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["video_event_at"] = eventAt
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Resolve(r.db).
		Model(&types.Lesson{}).
		Where("id = ? AND (video_event_at IS NULL OR video_event_at <= ?)", id, eventAt).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lessonRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.Resolve(r.db).
		Where("id IN ?", ids).
		Delete(&types.Lesson{}).Error
}
