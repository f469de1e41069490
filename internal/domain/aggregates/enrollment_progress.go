package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/domain/learning"
)

var EnrollmentProgressAggregateContract = Contract{
	Name:             "Learning.EnrollmentProgressAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	SerializationKey: "(user_id, course_id)",
	Notes:            "Owns enrollment.progress_percentage/status, recomputed from lesson_progress.",
}

// EnrollmentProgressAggregate recomputes enrollment progress from the
// underlying lesson completion rows. Recompute is idempotent.
type EnrollmentProgressAggregate interface {
	Aggregate

	Recompute(ctx context.Context, in RecomputeEnrollmentInput) (RecomputeEnrollmentResult, error)
}

type RecomputeEnrollmentInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	At       time.Time
}

type RecomputeEnrollmentResult struct {
	Enrollment     *learning.Enrollment
	TotalLessons   int64
	DoneLessons    int64
	PreviousStatus string
	PreviousPct    float64
	Changed        bool
	CompletedNow   bool
}
