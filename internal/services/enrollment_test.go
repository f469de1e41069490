package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

func TestEnrollIsIdempotent(t *testing.T) {
	log, _ := logger.New("test")
	user := &types.User{ID: uuid.New(), Email: "ada@example.com"}
	course := &types.Course{ID: uuid.New(), Code: "go-101", Status: types.CourseStatusPublished}
	repo := &memEnrollmentRepo{}
	svc := NewEnrollmentService(log, newMemUserRepo(user), newMemCourseRepo(course), repo)

	first, created, err := svc.Enroll(context.Background(), user.ID, course.ID)
	if err != nil || !created {
		t.Fatalf("first enroll: created=%v err=%v", created, err)
	}
	if first.Status != types.EnrollmentStatusActive || first.ProgressPercentage != 0 {
		t.Fatalf("new enrollment: %+v", first)
	}
	second, created, err := svc.Enroll(context.Background(), user.ID, course.ID)
	if err != nil || created {
		t.Fatalf("second enroll: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || len(repo.rows) != 1 {
		t.Fatalf("want one enrollment, got rows=%d", len(repo.rows))
	}
}

func TestEnrollRejections(t *testing.T) {
	log, _ := logger.New("test")
	user := &types.User{ID: uuid.New(), Email: "ada@example.com"}
	draft := &types.Course{ID: uuid.New(), Code: "wip", Status: types.CourseStatusDraft}
	svc := NewEnrollmentService(log, newMemUserRepo(user), newMemCourseRepo(draft), &memEnrollmentRepo{})

	if _, _, err := svc.Enroll(context.Background(), user.ID, draft.ID); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("draft course: want precondition_failed got=%v", err)
	}
	if _, _, err := svc.Enroll(context.Background(), uuid.New(), draft.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown user: want not_found got=%v", err)
	}
	if _, _, err := svc.Enroll(context.Background(), user.ID, uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown course: want not_found got=%v", err)
	}
	if _, err := svc.Get(context.Background(), user.ID, draft.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing enrollment: want not_found got=%v", err)
	}
}
