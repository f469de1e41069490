package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:    uuid.New(),
		Email: email,
		Name:  "Learner",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, code string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:       uuid.New(),
		Code:     code,
		Title:    "Course " + code,
		Status:   types.CourseStatusPublished,
		Metadata: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, order int, durationSeconds int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           fmt.Sprintf("Lesson %d", order),
		Order:           order,
		VideoStatus:     types.VideoStatusPending,
		DurationSeconds: durationSeconds,
		Metadata:        datatypes.JSON([]byte("{}")),
	}
	if durationSeconds > 0 {
		l.VideoStatus = types.VideoStatusReady
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, n int, durationSeconds int) []*types.Lesson {
	tb.Helper()
	out := make([]*types.Lesson, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SeedLesson(tb, ctx, tx, courseID, i, durationSeconds))
	}
	return out
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:         uuid.New(),
		UserID:     userID,
		CourseID:   courseID,
		Status:     types.EnrollmentStatusActive,
		EnrolledAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedCompletedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) *types.LessonProgress {
	tb.Helper()
	now := time.Now().UTC()
	pct := 100.0
	lp := &types.LessonProgress{
		ID:              uuid.New(),
		UserID:          userID,
		LessonID:        lessonID,
		Completed:       true,
		CompletedAt:     &now,
		WatchPercentage: &pct,
		LastWatchedAt:   &now,
	}
	if err := tx.WithContext(ctx).Create(lp).Error; err != nil {
		tb.Fatalf("seed lesson progress: %v", err)
	}
	return lp
}

func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}

func UniqueCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
