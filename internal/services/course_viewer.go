package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/apierr"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

var ErrEnrollmentRequired = errors.New("enrollment required to view this lesson")

type ViewerLesson struct {
	Lesson   *types.Lesson         `json:"lesson"`
	Progress *types.LessonProgress `json:"progress,omitempty"`
}

type CourseView struct {
	Course     *types.Course     `json:"course"`
	Lessons    []ViewerLesson    `json:"lessons"`
	Current    *types.Lesson     `json:"current_lesson,omitempty"`
	Previous   *types.Lesson     `json:"previous_lesson,omitempty"`
	Next       *types.Lesson     `json:"next_lesson,omitempty"`
	Enrollment *types.Enrollment `json:"enrollment,omitempty"`
}

type CourseViewerService interface {
	// View opens the course for userID. With lessonID nil the current lesson
	// is the first incomplete one, or the last lesson when all are complete.
	View(ctx context.Context, userID, courseID uuid.UUID, lessonID *uuid.UUID) (*CourseView, error)
}

type courseViewerService struct {
	log         *logger.Logger
	courses     repos.CourseRepo
	lessons     repos.LessonRepo
	enrollments repos.EnrollmentRepo
	progress    ProgressService
}

func NewCourseViewerService(baseLog *logger.Logger, courses repos.CourseRepo, lessons repos.LessonRepo, enrollments repos.EnrollmentRepo, progress ProgressService) CourseViewerService {
	return &courseViewerService{
		log:         baseLog.With("service", "CourseViewerService"),
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
		progress:    progress,
	}
}

func (s *courseViewerService) View(ctx context.Context, userID, courseID uuid.UUID, lessonID *uuid.UUID) (*CourseView, error) {
	const op = "courseViewer.View"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	course, err := s.courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}
	lessons, err := s.lessons.ListByCourseID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.GetByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	progress, err := s.progress.ListForLessons(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	idx, err := pickCurrentLesson(lessons, progress, lessonID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, err.Error(), nil)
	}

	view := &CourseView{
		Course:     course,
		Lessons:    make([]ViewerLesson, 0, len(lessons)),
		Enrollment: enrollment,
	}
	for _, l := range lessons {
		view.Lessons = append(view.Lessons, ViewerLesson{Lesson: l, Progress: progress[l.ID]})
	}
	if idx < 0 {
		if enrollment == nil {
			return nil, apierr.Forbidden("enrollment_required", ErrEnrollmentRequired)
		}
		return view, nil
	}

	current := lessons[idx]
	if enrollment == nil && !current.IsFree {
		return nil, apierr.Forbidden("enrollment_required", ErrEnrollmentRequired)
	}
	view.Current = current
	if idx > 0 {
		view.Previous = lessons[idx-1]
	}
	if idx < len(lessons)-1 {
		view.Next = lessons[idx+1]
	}

	out, err := s.progress.TrackSessionStart(ctx, userID, current.ID)
	if err != nil {
		s.log.Warn("session start tracking failed", "user_id", userID, "lesson_id", current.ID, "error", err)
	} else if out != nil && out.Progress != nil {
		view.Lessons[idx].Progress = out.Progress
	}
	return view, nil
}

// pickCurrentLesson returns -1 for a course without lessons.
func pickCurrentLesson(lessons []*types.Lesson, progress map[uuid.UUID]*types.LessonProgress, requested *uuid.UUID) (int, error) {
	if len(lessons) == 0 {
		if requested != nil {
			return -1, errors.New("lesson not found in course")
		}
		return -1, nil
	}
	if requested != nil {
		for i, l := range lessons {
			if l.ID == *requested {
				return i, nil
			}
		}
		return -1, errors.New("lesson not found in course")
	}
	for i, l := range lessons {
		if p := progress[l.ID]; p == nil || !p.Completed {
			return i, nil
		}
	}
	return len(lessons) - 1, nil
}
