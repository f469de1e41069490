package db

import (
	"fmt"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(

		// =========================
		// Identity
		// =========================
		&types.User{},

		// =========================
		// Catalog
		// =========================
		&types.Course{},
		&types.Lesson{},

		// =========================
		// Progress tracking
		// =========================
		&types.Enrollment{},
		&types.LessonProgress{},
		&types.CourseStats{},

		// =========================
		// Jobs
		// =========================
		&types.JobRun{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return ensureConstraints(db)
}

// ensureConstraints adds the range checks gorm tags cannot express.
func ensureConstraints(db *gorm.DB) error {
	stmts := []string{
		`DO $$ BEGIN
			ALTER TABLE lesson_progress ADD CONSTRAINT chk_lesson_progress_watch_time CHECK (watch_time_seconds >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
			ALTER TABLE lesson_progress ADD CONSTRAINT chk_lesson_progress_pct CHECK (watch_percentage IS NULL OR (watch_percentage >= 0 AND watch_percentage <= 100));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
			ALTER TABLE enrollment ADD CONSTRAINT chk_enrollment_pct CHECK (progress_percentage >= 0 AND progress_percentage <= 100);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
			ALTER TABLE enrollment ADD CONSTRAINT chk_enrollment_status CHECK (status IN ('active', 'completed', 'dropped'));
		EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure constraints: %w", err)
		}
	}
	return nil
}
