package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Video readiness as reported by the hosting provider.
const (
	VideoStatusPending        = "pending"
	VideoStatusUploadComplete = "upload_complete"
	VideoStatusTranscoding    = "transcoding"
	VideoStatusReady          = "ready"
	VideoStatusDeleted        = "deleted"
	VideoStatusError          = "error"
)

type Lesson struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index;index:idx_lesson_course_order,priority:1" json:"course_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;default:0;index:idx_lesson_course_order,priority:2" json:"order"`
	IsFree      bool      `gorm:"column:is_free;not null;default:false" json:"is_free"`

	VideoID         *string    `gorm:"column:video_id;index" json:"video_id,omitempty"`
	VideoStatus     string     `gorm:"column:video_status;not null;default:'pending'" json:"video_status"`
	DurationSeconds int        `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	VideoEventAt    *time.Time `gorm:"column:video_event_at" json:"video_event_at,omitempty"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

// KnownDuration reports the host-provided duration once transcoding finished.
func (l *Lesson) KnownDuration() (float64, bool) {
	if l == nil || l.DurationSeconds <= 0 {
		return 0, false
	}
	return float64(l.DurationSeconds), true
}
