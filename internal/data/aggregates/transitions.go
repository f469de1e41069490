package aggregates

import (
	"fmt"
	"math"
	"time"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
)

// DefaultAutoCompleteRatio is the fraction of a video that completes a lesson.
const DefaultAutoCompleteRatio = 0.90

const ratioEpsilon = 1e-9

// MaxWatchSeconds is the largest watch time the integer column holds.
const MaxWatchSeconds = math.MaxInt32

// ValidWatchSeconds reports whether v is a finite position in [0, MaxWatchSeconds].
func ValidWatchSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= MaxWatchSeconds
}

// progressState is the mutable part of a lesson_progress row.
type progressState struct {
	Completed        bool
	CompletedAt      *time.Time
	WatchTimeSeconds int
	WatchPercentage  *float64
	LastWatchedAt    *time.Time
}

func progressStateOf(p *types.LessonProgress) progressState {
	if p == nil {
		return progressState{}
	}
	return progressState{
		Completed:        p.Completed,
		CompletedAt:      p.CompletedAt,
		WatchTimeSeconds: p.WatchTimeSeconds,
		WatchPercentage:  p.WatchPercentage,
		LastWatchedAt:    p.LastWatchedAt,
	}
}

func (s progressState) applyTo(p *types.LessonProgress) {
	p.Completed = s.Completed
	p.CompletedAt = s.CompletedAt
	p.WatchTimeSeconds = s.WatchTimeSeconds
	p.WatchPercentage = s.WatchPercentage
	p.LastWatchedAt = s.LastWatchedAt
}

func (s progressState) updates() map[string]interface{} {
	return map[string]interface{}{
		"completed":          s.Completed,
		"completed_at":       s.CompletedAt,
		"watch_time_seconds": s.WatchTimeSeconds,
		"watch_percentage":   s.WatchPercentage,
		"last_watched_at":    s.LastWatchedAt,
	}
}

// WatchPercentage returns min(100, elapsed/duration*100) rounded to two
// decimals. ok is false when the duration is unknown.
func WatchPercentage(elapsed, duration float64) (float64, bool) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, false
	}
	pct := elapsed / duration * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return round2(pct), true
}

// ReachesAutoComplete reports whether elapsed covers ratio of duration.
func ReachesAutoComplete(elapsed, duration, ratio float64) bool {
	if duration <= 0 || ratio <= 0 {
		return false
	}
	return elapsed/duration >= ratio-ratioEpsilon
}

// ComputeCoursePercentage is round(100*done/total, 2), or 0 for an empty course.
func ComputeCoursePercentage(total, done int64) float64 {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done > total {
		done = total
	}
	return round2(float64(done) * 100 / float64(total))
}

// NextEnrollmentStatus derives the enrollment status for pct. Completed is
// sticky and dropped is never entered or left here.
func NextEnrollmentStatus(current string, pct float64) string {
	switch current {
	case types.EnrollmentStatusDropped:
		return types.EnrollmentStatusDropped
	case types.EnrollmentStatusCompleted:
		return types.EnrollmentStatusCompleted
	}
	if pct >= 100 {
		return types.EnrollmentStatusCompleted
	}
	return types.EnrollmentStatusActive
}

func checkEnrollmentTransition(from, to string) error {
	if from == to {
		return nil
	}
	switch {
	case to == types.EnrollmentStatusDropped:
		return InvariantError("progress recompute cannot drop an enrollment")
	case from == types.EnrollmentStatusDropped:
		return InvariantError("progress recompute cannot revive a dropped enrollment")
	case from == types.EnrollmentStatusCompleted:
		return InvariantError(fmt.Sprintf("enrollment cannot move from completed to %s", to))
	}
	return nil
}

// applyWatchSample folds one playback position into s. Watch time never
// regresses and completion is left alone.
func applyWatchSample(s progressState, elapsed, duration float64, at time.Time) (progressState, error) {
	if math.IsNaN(elapsed) || elapsed < 0 {
		return s, InvariantError(fmt.Sprintf("negative watch time %v", elapsed))
	}
	if !ValidWatchSeconds(elapsed) {
		return s, InvariantError(fmt.Sprintf("watch time %v out of range", elapsed))
	}
	next := s
	if wt := int(math.Floor(elapsed)); wt > next.WatchTimeSeconds {
		next.WatchTimeSeconds = wt
	}
	if pct, ok := WatchPercentage(elapsed, duration); ok {
		next.WatchPercentage = &pct
	}
	next.LastWatchedAt = &at
	return next, checkProgressTransition(s, next)
}

// applyCompletion marks s complete. CompletedAt is set on the first
// completion only; watch stats are taken when they do not regress.
func applyCompletion(s progressState, watchTime *int, watchPct *float64, at time.Time) (progressState, bool, error) {
	if watchTime != nil && *watchTime < 0 {
		return s, false, InvariantError(fmt.Sprintf("negative watch time %d", *watchTime))
	}
	if watchTime != nil && *watchTime > MaxWatchSeconds {
		return s, false, InvariantError(fmt.Sprintf("watch time %d out of range", *watchTime))
	}
	if watchPct != nil && (math.IsNaN(*watchPct) || *watchPct < 0 || *watchPct > 100) {
		return s, false, InvariantError(fmt.Sprintf("watch percentage %v outside [0,100]", *watchPct))
	}
	next := s
	completedNow := !s.Completed
	next.Completed = true
	if next.CompletedAt == nil {
		next.CompletedAt = &at
	}
	if watchTime != nil && *watchTime > next.WatchTimeSeconds {
		next.WatchTimeSeconds = *watchTime
	}
	if watchPct != nil && (next.WatchPercentage == nil || *watchPct > *next.WatchPercentage) {
		pct := round2(*watchPct)
		next.WatchPercentage = &pct
	}
	next.LastWatchedAt = &at
	return next, completedNow, checkProgressTransition(s, next)
}

func checkProgressTransition(prev, next progressState) error {
	if next.WatchTimeSeconds < 0 {
		return InvariantError("negative watch time")
	}
	if next.WatchTimeSeconds < prev.WatchTimeSeconds {
		return InvariantError(fmt.Sprintf("watch time would regress from %d to %d", prev.WatchTimeSeconds, next.WatchTimeSeconds))
	}
	if prev.Completed && !next.Completed {
		return InvariantError("completed lesson cannot be un-completed")
	}
	if next.Completed && next.CompletedAt == nil {
		return InvariantError("completed lesson requires completed_at")
	}
	if prev.Completed && prev.CompletedAt != nil && (next.CompletedAt == nil || !next.CompletedAt.Equal(*prev.CompletedAt)) {
		return InvariantError("completed_at is immutable once set")
	}
	if next.WatchPercentage != nil && (*next.WatchPercentage < 0 || *next.WatchPercentage > 100) {
		return InvariantError("watch percentage outside [0,100]")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
