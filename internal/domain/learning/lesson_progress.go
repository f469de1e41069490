package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonProgress is one row per (user, lesson). WatchTimeSeconds never
// decreases and Completed never flips back to false through tracking.
type LessonProgress struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson,priority:1;index" json:"user_id"`
	LessonID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson,priority:2;index" json:"lesson_id"`
	Completed        bool       `gorm:"column:completed;not null;default:false;index" json:"completed"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	WatchTimeSeconds int        `gorm:"column:watch_time_seconds;not null;default:0" json:"watch_time_seconds"`
	WatchPercentage  *float64   `gorm:"column:watch_percentage;type:numeric(5,2)" json:"watch_percentage,omitempty"`
	LastWatchedAt    *time.Time `gorm:"column:last_watched_at" json:"last_watched_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
