package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type Repos struct {
	User           repos.UserRepo
	Course         repos.CourseRepo
	Lesson         repos.LessonRepo
	Enrollment     repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	CourseStats    repos.CourseStatsRepo
	JobRun         repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		Course:         repos.NewCourseRepo(db, log),
		Lesson:         repos.NewLessonRepo(db, log),
		Enrollment:     repos.NewEnrollmentRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),
		CourseStats:    repos.NewCourseStatsRepo(db, log),
		JobRun:         repos.NewJobRunRepo(db, log),
	}
}
