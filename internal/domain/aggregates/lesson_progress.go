package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/domain/learning"
)

var LessonProgressAggregateContract = Contract{
	Name:             "Learning.LessonProgressAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	SerializationKey: "(user_id, lesson_id)",
	Notes:            "Owns lesson_progress rows: monotonic watch time and one-way completion.",
}

// LessonProgressAggregate owns every write to a (user, lesson) progress row.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodePreconditionFailed (user or lesson missing),
// CodeInvariantViolation, CodeConflict, CodeRetryable, CodeInternal.
type LessonProgressAggregate interface {
	Aggregate

	// RecordSample applies one playback-position sample. With AutoCompleteRatio
	// set, a sample at or beyond that fraction of the duration completes the lesson.
	RecordSample(ctx context.Context, in RecordWatchSampleInput) (LessonProgressResult, error)

	// MarkComplete completes the lesson. Repeated calls keep the first CompletedAt.
	MarkComplete(ctx context.Context, in MarkLessonCompleteInput) (LessonProgressResult, error)

	// StartSession creates the row with defaults when absent and never touches an existing row.
	StartSession(ctx context.Context, in StartLessonSessionInput) (LessonProgressResult, error)
}

type RecordWatchSampleInput struct {
	UserID         uuid.UUID
	LessonID       uuid.UUID
	ElapsedSeconds float64
	// DurationSeconds <= 0 means unknown.
	DurationSeconds   float64
	AutoCompleteRatio float64
	At                time.Time
}

type MarkLessonCompleteInput struct {
	UserID           uuid.UUID
	LessonID         uuid.UUID
	WatchTimeSeconds *int
	WatchPercentage  *float64
	At               time.Time
}

type StartLessonSessionInput struct {
	UserID   uuid.UUID
	LessonID uuid.UUID
	At       time.Time
}

type LessonProgressResult struct {
	Progress *learning.LessonProgress
	CourseID uuid.UUID
	Created  bool
	// CompletedNow is true only on the write that flipped Completed to true.
	CompletedNow bool
	AutoComplete bool
}
