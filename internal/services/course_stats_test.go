package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

func TestCourseStatsGetComputesOnce(t *testing.T) {
	course := &types.Course{ID: uuid.New(), Code: "c1", Status: types.CourseStatusPublished}
	stats := &memStatsRepo{}
	svc := NewCourseStatsService(logger.Nop(), newMemCourseRepo(course), stats)

	ctx := context.Background()
	if _, err := svc.Get(ctx, course.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Get(ctx, course.ID); err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if len(stats.refreshed) != 1 {
		t.Fatalf("refreshes: want=1 got=%d", len(stats.refreshed))
	}
	if _, err := svc.Refresh(ctx, course.ID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(stats.refreshed) != 2 {
		t.Fatalf("refreshes after Refresh: want=2 got=%d", len(stats.refreshed))
	}
}

func TestCourseStatsUnknownCourse(t *testing.T) {
	svc := NewCourseStatsService(logger.Nop(), newMemCourseRepo(), &memStatsRepo{})
	_, err := svc.Get(context.Background(), uuid.New())
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("err: want not_found got=%v", err)
	}
	_, err = svc.Get(context.Background(), uuid.Nil)
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("err: want validation got=%v", err)
	}
}
