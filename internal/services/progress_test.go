package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type progressFixture struct {
	svc     ProgressService
	lessons *memLessonRepo
	agg     *stubLessonAgg
	enroll  *stubEnrollAgg
	notify  *recNotifier
	lesson  *types.Lesson
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	lesson := &types.Lesson{ID: uuid.New(), CourseID: uuid.New(), DurationSeconds: 600}
	f := &progressFixture{
		lessons: newMemLessonRepo(lesson),
		agg:     &stubLessonAgg{},
		enroll:  &stubEnrollAgg{},
		notify:  &recNotifier{},
		lesson:  lesson,
	}
	f.agg.sample = func(in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
		return domainagg.LessonProgressResult{
			Progress: &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID, WatchTimeSeconds: int(in.ElapsedSeconds)},
			CourseID: lesson.CourseID,
		}, nil
	}
	f.enroll.fn = func(in domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error) {
		return domainagg.RecomputeEnrollmentResult{
			Enrollment: &types.Enrollment{UserID: in.UserID, CourseID: in.CourseID, Status: types.EnrollmentStatusActive, ProgressPercentage: 50},
			Changed:    true,
		}, nil
	}
	f.svc = NewProgressService(ProgressServiceDeps{
		Log:       log,
		Lessons:   f.lessons,
		Progress:  &memProgressRepo{},
		LessonAgg: f.agg,
		EnrollAgg: f.enroll,
		Notifier:  f.notify,
		Config:    ProgressConfig{ConflictRetries: 2, RetryInterval: time.Millisecond},
	})
	return f
}

func TestRecordSampleFallsBackToLessonDuration(t *testing.T) {
	f := newProgressFixture(t)
	out, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: 30})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if out.Dropped {
		t.Fatalf("sample unexpectedly dropped: %s", out.Reason)
	}
	if f.agg.lastSample.DurationSeconds != 600 {
		t.Fatalf("duration: want=600 got=%v", f.agg.lastSample.DurationSeconds)
	}
	if f.agg.lastSample.AutoCompleteRatio != 0.90 {
		t.Fatalf("auto-complete ratio: want=0.90 got=%v", f.agg.lastSample.AutoCompleteRatio)
	}

	client := 300.0
	if _, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: 30, DurationSeconds: &client}); err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if f.agg.lastSample.DurationSeconds != 300 {
		t.Fatalf("client duration: want=300 got=%v", f.agg.lastSample.DurationSeconds)
	}
}

func TestRecordSampleUnknownLessonIsDropped(t *testing.T) {
	f := newProgressFixture(t)
	out, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: uuid.New(), ElapsedSeconds: 10})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if !out.Dropped || out.Reason != DropReasonReferentialIntegrity {
		t.Fatalf("outcome: want dropped/%s got=%+v", DropReasonReferentialIntegrity, out)
	}
	if f.agg.sampleCalls != 0 {
		t.Fatalf("aggregate should not be called, calls=%d", f.agg.sampleCalls)
	}
}

func TestRecordSampleDropReasons(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"missing user", domainagg.NewError(domainagg.CodePreconditionFailed, "test", "user not found", nil), DropReasonReferentialIntegrity},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "test", "locked", nil), DropReasonConcurrencyConflict},
		{"invariant", domainagg.NewError(domainagg.CodeInvariantViolation, "test", "watch time regressed", nil), DropReasonInvariantViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newProgressFixture(t)
			f.agg.sample = func(domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
				return domainagg.LessonProgressResult{}, tc.err
			}
			out, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: 10})
			if err != nil {
				t.Fatalf("RecordSample: %v", err)
			}
			if !out.Dropped || out.Reason != tc.want {
				t.Fatalf("outcome: want=%s got=%+v", tc.want, out)
			}
			if len(f.notify.snapshot()) != 0 {
				t.Fatalf("dropped sample must not notify, got=%v", f.notify.snapshot())
			}
		})
	}
}

func TestRecordSampleRetriesConflicts(t *testing.T) {
	f := newProgressFixture(t)
	inner := f.agg.sample
	attempts := 0
	f.agg.sample = func(in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
		attempts++
		if attempts < 3 {
			return domainagg.LessonProgressResult{}, domainagg.NewError(domainagg.CodeRetryable, "test", "serialization failure", nil)
		}
		return inner(in)
	}
	out, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: 10})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if out.Dropped {
		t.Fatalf("sample dropped after retries: %s", out.Reason)
	}
	if attempts != 3 {
		t.Fatalf("attempts: want=3 got=%d", attempts)
	}
}

func TestRecordSampleValidationIsReturned(t *testing.T) {
	f := newProgressFixture(t)
	if _, err := f.svc.RecordSample(context.Background(), SampleInput{LessonID: f.lesson.ID}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing user: want validation got=%v", err)
	}
	f.agg.sample = func(domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
		return domainagg.LessonProgressResult{}, domainagg.NewError(domainagg.CodeValidation, "test", "negative elapsed", nil)
	}
	if _, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: -1}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("aggregate validation: want validation got=%v", err)
	}
}

func TestCompletionTriggersRecomputeAndNotifications(t *testing.T) {
	f := newProgressFixture(t)
	f.agg.complete = func(in domainagg.MarkLessonCompleteInput) (domainagg.LessonProgressResult, error) {
		now := time.Now()
		return domainagg.LessonProgressResult{
			Progress:     &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID, Completed: true, CompletedAt: &now},
			CourseID:     f.lesson.CourseID,
			CompletedNow: true,
		}, nil
	}
	f.enroll.fn = func(in domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error) {
		return domainagg.RecomputeEnrollmentResult{
			Enrollment:   &types.Enrollment{UserID: in.UserID, CourseID: in.CourseID, Status: types.EnrollmentStatusCompleted, ProgressPercentage: 100},
			Changed:      true,
			CompletedNow: true,
		}, nil
	}
	userID := uuid.New()
	out, err := f.svc.MarkComplete(context.Background(), CompleteInput{UserID: userID, LessonID: f.lesson.ID})
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if !out.CompletedNow || out.Enrollment == nil || out.Enrollment.Status != types.EnrollmentStatusCompleted {
		t.Fatalf("outcome: %+v", out)
	}
	if len(f.enroll.calls) != 1 || f.enroll.calls[0].CourseID != f.lesson.CourseID || f.enroll.calls[0].UserID != userID {
		t.Fatalf("recompute calls: %+v", f.enroll.calls)
	}
	want := []string{"LessonProgressUpdated", "LessonCompleted", "CourseProgressUpdated", "CourseCompleted"}
	got := f.notify.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
}

func TestRepeatCompletionSkipsRecompute(t *testing.T) {
	f := newProgressFixture(t)
	f.agg.complete = func(in domainagg.MarkLessonCompleteInput) (domainagg.LessonProgressResult, error) {
		return domainagg.LessonProgressResult{
			Progress: &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID, Completed: true},
			CourseID: f.lesson.CourseID,
		}, nil
	}
	if _, err := f.svc.MarkComplete(context.Background(), CompleteInput{UserID: uuid.New(), LessonID: f.lesson.ID}); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if len(f.enroll.calls) != 0 {
		t.Fatalf("recompute should only follow the completing write, calls=%d", len(f.enroll.calls))
	}
}

func TestCompletionWithoutEnrollmentIsNotAnError(t *testing.T) {
	f := newProgressFixture(t)
	f.agg.sample = func(in domainagg.RecordWatchSampleInput) (domainagg.LessonProgressResult, error) {
		return domainagg.LessonProgressResult{
			Progress:     &types.LessonProgress{UserID: in.UserID, LessonID: in.LessonID, Completed: true},
			CourseID:     f.lesson.CourseID,
			CompletedNow: true,
			AutoComplete: true,
		}, nil
	}
	f.enroll.fn = func(domainagg.RecomputeEnrollmentInput) (domainagg.RecomputeEnrollmentResult, error) {
		return domainagg.RecomputeEnrollmentResult{}, domainagg.NewError(domainagg.CodeNotFound, "test", "enrollment not found", nil)
	}
	out, err := f.svc.RecordSample(context.Background(), SampleInput{UserID: uuid.New(), LessonID: f.lesson.ID, ElapsedSeconds: 550})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if !out.AutoComplete || out.Enrollment != nil {
		t.Fatalf("outcome: want auto-complete without enrollment got=%+v", out)
	}
}

func TestListForLessonsKeysByLesson(t *testing.T) {
	log, _ := logger.New("test")
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()
	repo := &memProgressRepo{rows: []*types.LessonProgress{
		{UserID: userID, LessonID: a, Completed: true},
		{UserID: uuid.New(), LessonID: b},
	}}
	svc := NewProgressService(ProgressServiceDeps{Log: log, Progress: repo})
	got, err := svc.ListForLessons(context.Background(), userID, []uuid.UUID{a, b})
	if err != nil {
		t.Fatalf("ListForLessons: %v", err)
	}
	if len(got) != 1 || got[a] == nil || !got[a].Completed {
		t.Fatalf("progress map: %+v", got)
	}
}
