package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type Catalog struct {
	Users       []CatalogUser       `yaml:"users" validate:"dive"`
	Courses     []CatalogCourse     `yaml:"courses" validate:"dive"`
	Enrollments []CatalogEnrollment `yaml:"enrollments" validate:"dive"`
}

type CatalogUser struct {
	Email string `yaml:"email" validate:"required,email"`
	Name  string `yaml:"name" validate:"max=200"`
}

type CatalogCourse struct {
	Code        string          `yaml:"code" validate:"required,max=64"`
	Title       string          `yaml:"title" validate:"required,max=300"`
	Description string          `yaml:"description"`
	Status      string          `yaml:"status" validate:"omitempty,oneof=draft published archived"`
	Lessons     []CatalogLesson `yaml:"lessons" validate:"dive"`
}

type CatalogLesson struct {
	Title           string `yaml:"title" validate:"required,max=300"`
	Description     string `yaml:"description"`
	Order           int    `yaml:"order" validate:"gte=0"`
	IsFree          bool   `yaml:"is_free"`
	VideoID         string `yaml:"video_id" validate:"omitempty,numeric"`
	DurationSeconds int    `yaml:"duration_seconds" validate:"gte=0"`
}

type CatalogEnrollment struct {
	Email  string `yaml:"email" validate:"required,email"`
	Course string `yaml:"course" validate:"required"`
}

type CatalogReport struct {
	Users         int
	Courses       int
	Lessons       int
	LessonsPruned int
	Enrollments   int
}

var catalogValidate = validator.New(validator.WithRequiredStructEnabled())

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalogValidate.Struct(&c); err != nil {
		return nil, describeValidation(err)
	}
	if err := c.checkUnique(); err != nil {
		return nil, err
	}
	return &c, nil
}

func describeValidation(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return domainagg.NewError(domainagg.CodeValidation, "catalog", strings.Join(msgs, "; "), err)
}

func (c *Catalog) checkUnique() error {
	codes := map[string]bool{}
	for _, course := range c.Courses {
		if codes[course.Code] {
			return domainagg.NewError(domainagg.CodeValidation, "catalog", "duplicate course code "+course.Code, nil)
		}
		codes[course.Code] = true
		orders := map[int]bool{}
		for _, l := range course.Lessons {
			if orders[l.Order] {
				return domainagg.NewError(domainagg.CodeValidation, "catalog", fmt.Sprintf("course %s: duplicate lesson order %d", course.Code, l.Order), nil)
			}
			orders[l.Order] = true
		}
	}
	return nil
}

type CatalogService interface {
	// Apply upserts users by email, courses by code and lessons by
	// (course, order), then enrolls the listed users. A course that lists
	// lessons loses any stored lesson whose order is no longer listed.
	Apply(ctx context.Context, c *Catalog) (*CatalogReport, error)
}

type catalogService struct {
	log         *logger.Logger
	users       repos.UserRepo
	courses     repos.CourseRepo
	lessons     repos.LessonRepo
	enrollments EnrollmentService
}

func NewCatalogService(baseLog *logger.Logger, users repos.UserRepo, courses repos.CourseRepo, lessons repos.LessonRepo, enrollments EnrollmentService) CatalogService {
	return &catalogService{
		log:         baseLog.With("service", "CatalogService"),
		users:       users,
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
	}
}

func (s *catalogService) Apply(ctx context.Context, c *Catalog) (*CatalogReport, error) {
	if c == nil {
		return &CatalogReport{}, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	report := &CatalogReport{}

	for _, u := range c.Users {
		if _, err := s.users.UpsertByEmail(dbc, &types.User{Email: strings.ToLower(strings.TrimSpace(u.Email)), Name: u.Name}); err != nil {
			return report, fmt.Errorf("upsert user %s: %w", u.Email, err)
		}
		report.Users++
	}

	for _, cc := range c.Courses {
		status := cc.Status
		if status == "" {
			status = types.CourseStatusDraft
		}
		course, err := s.courses.UpsertByCode(dbc, &types.Course{
			Code:        cc.Code,
			Title:       cc.Title,
			Description: cc.Description,
			Status:      status,
		})
		if err != nil {
			return report, fmt.Errorf("upsert course %s: %w", cc.Code, err)
		}
		report.Courses++
		for _, cl := range cc.Lessons {
			l := &types.Lesson{
				CourseID:        course.ID,
				Title:           cl.Title,
				Description:     cl.Description,
				Order:           cl.Order,
				IsFree:          cl.IsFree,
				DurationSeconds: cl.DurationSeconds,
			}
			if cl.VideoID != "" {
				vid := cl.VideoID
				l.VideoID = &vid
			}
			if _, err := s.lessons.UpsertByCourseAndOrder(dbc, l); err != nil {
				return report, fmt.Errorf("upsert lesson %s#%d: %w", cc.Code, cl.Order, err)
			}
			report.Lessons++
		}
		if len(cc.Lessons) > 0 {
			pruned, err := s.pruneLessons(dbc, course.ID, cc.Lessons)
			if err != nil {
				return report, fmt.Errorf("prune lessons of %s: %w", cc.Code, err)
			}
			report.LessonsPruned += pruned
		}
	}

	for _, ce := range c.Enrollments {
		u, err := s.users.GetByEmail(dbc, strings.ToLower(strings.TrimSpace(ce.Email)))
		if err != nil {
			return report, err
		}
		course, err := s.courses.GetByCode(dbc, ce.Course)
		if err != nil {
			return report, err
		}
		if u == nil || course == nil {
			return report, domainagg.NewError(domainagg.CodeNotFound, "catalog", fmt.Sprintf("enrollment %s -> %s references unknown user or course", ce.Email, ce.Course), nil)
		}
		if _, _, err := s.enrollments.Enroll(ctx, u.ID, course.ID); err != nil {
			return report, fmt.Errorf("enroll %s in %s: %w", ce.Email, ce.Course, err)
		}
		report.Enrollments++
	}

	s.log.Info("catalog applied", "users", report.Users, "courses", report.Courses, "lessons", report.Lessons, "lessons_pruned", report.LessonsPruned, "enrollments", report.Enrollments)
	return report, nil
}

func (s *catalogService) pruneLessons(dbc dbctx.Context, courseID uuid.UUID, listed []CatalogLesson) (int, error) {
	keep := make(map[int]bool, len(listed))
	for _, l := range listed {
		keep[l.Order] = true
	}
	stored, err := s.lessons.ListByCourseID(dbc, courseID)
	if err != nil {
		return 0, err
	}
	var ids []uuid.UUID
	for _, l := range stored {
		if !keep[l.Order] {
			ids = append(ids, l.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.lessons.SoftDeleteByIDs(dbc, ids); err != nil {
		return 0, err
	}
	s.log.Info("lessons pruned", "course_id", courseID, "count", len(ids))
	return len(ids), nil
}
