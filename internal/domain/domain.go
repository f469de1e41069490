package domain

import (
	"github.com/yungbote/coursetrack-backend/internal/domain/jobs"
	"github.com/yungbote/coursetrack-backend/internal/domain/learning"
	"github.com/yungbote/coursetrack-backend/internal/domain/user"
)

type (
	User = user.User

	Course         = learning.Course
	Lesson         = learning.Lesson
	Enrollment     = learning.Enrollment
	LessonProgress = learning.LessonProgress
	CourseStats    = learning.CourseStats

	JobRun = jobs.JobRun
)

const (
	CourseStatusDraft     = learning.CourseStatusDraft
	CourseStatusPublished = learning.CourseStatusPublished
	CourseStatusArchived  = learning.CourseStatusArchived

	EnrollmentStatusActive    = learning.EnrollmentStatusActive
	EnrollmentStatusCompleted = learning.EnrollmentStatusCompleted
	EnrollmentStatusDropped   = learning.EnrollmentStatusDropped

	VideoStatusPending        = learning.VideoStatusPending
	VideoStatusUploadComplete = learning.VideoStatusUploadComplete
	VideoStatusTranscoding    = learning.VideoStatusTranscoding
	VideoStatusReady          = learning.VideoStatusReady
	VideoStatusDeleted        = learning.VideoStatusDeleted
	VideoStatusError          = learning.VideoStatusError

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed
	JobStatusCanceled  = jobs.JobStatusCanceled
)
