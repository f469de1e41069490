package learning

import (
	"time"

	"github.com/google/uuid"
)

type CourseStats struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`
	TotalEnrollments      int       `gorm:"column:total_enrollments;not null;default:0" json:"total_enrollments"`
	ActiveEnrollments     int       `gorm:"column:active_enrollments;not null;default:0" json:"active_enrollments"`
	CompletedEnrollments  int       `gorm:"column:completed_enrollments;not null;default:0" json:"completed_enrollments"`
	AverageCompletionRate float64   `gorm:"column:average_completion_rate;type:numeric(5,2);not null;default:0" json:"average_completion_rate"`
	LastUpdated           time.Time `gorm:"column:last_updated;not null;default:now()" json:"last_updated"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CourseStats) TableName() string { return "course_stats" }
