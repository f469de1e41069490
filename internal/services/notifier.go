package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/platform/mailer"
	"github.com/yungbote/coursetrack-backend/internal/realtime"
)

// ProgressNotifier fans progress changes out to connected clients. Every
// method is best-effort and must not block tracking.
type ProgressNotifier interface {
	LessonProgressUpdated(ctx context.Context, p *types.LessonProgress)
	LessonCompleted(ctx context.Context, p *types.LessonProgress, courseID uuid.UUID, auto bool)
	CourseProgressUpdated(ctx context.Context, e *types.Enrollment)
	CourseCompleted(ctx context.Context, e *types.Enrollment)
	LessonVideoUpdated(ctx context.Context, l *types.Lesson)
}

type NopProgressNotifier struct{}

func (NopProgressNotifier) LessonProgressUpdated(context.Context, *types.LessonProgress) {}
func (NopProgressNotifier) LessonCompleted(context.Context, *types.LessonProgress, uuid.UUID, bool) {
}
func (NopProgressNotifier) CourseProgressUpdated(context.Context, *types.Enrollment) {}
func (NopProgressNotifier) CourseCompleted(context.Context, *types.Enrollment)       {}
func (NopProgressNotifier) LessonVideoUpdated(context.Context, *types.Lesson)        {}

type ProgressNotifierDeps struct {
	Log     *logger.Logger
	Emit    realtime.Emitter
	Mail    mailer.Client
	Users   repos.UserRepo
	Courses repos.CourseRepo
	// Spawn runs background work; defaults to a goroutine.
	Spawn func(func())
}

type progressNotifier struct {
	log     *logger.Logger
	emit    realtime.Emitter
	mail    mailer.Client
	users   repos.UserRepo
	courses repos.CourseRepo
	spawn   func(func())
}

func NewProgressNotifier(deps ProgressNotifierDeps) ProgressNotifier {
	spawn := deps.Spawn
	if spawn == nil {
		spawn = func(fn func()) { go fn() }
	}
	return &progressNotifier{
		log:     deps.Log.With("service", "ProgressNotifier"),
		emit:    deps.Emit,
		mail:    deps.Mail,
		users:   deps.Users,
		courses: deps.Courses,
		spawn:   spawn,
	}
}

func (n *progressNotifier) send(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   event,
		Data:    data,
	})
}

func (n *progressNotifier) LessonProgressUpdated(ctx context.Context, p *types.LessonProgress) {
	if p == nil {
		return
	}
	n.send(ctx, p.UserID, realtime.SSEEventLessonProgressUpdated, map[string]any{
		"lesson_id":          p.LessonID,
		"watch_time_seconds": p.WatchTimeSeconds,
		"watch_percentage":   p.WatchPercentage,
		"completed":          p.Completed,
	})
}

func (n *progressNotifier) LessonCompleted(ctx context.Context, p *types.LessonProgress, courseID uuid.UUID, auto bool) {
	if p == nil {
		return
	}
	n.send(ctx, p.UserID, realtime.SSEEventLessonCompleted, map[string]any{
		"lesson_id":     p.LessonID,
		"course_id":     courseID,
		"completed_at":  p.CompletedAt,
		"auto_complete": auto,
	})
}

func (n *progressNotifier) CourseProgressUpdated(ctx context.Context, e *types.Enrollment) {
	if e == nil {
		return
	}
	n.send(ctx, e.UserID, realtime.SSEEventCourseProgressUpdated, map[string]any{
		"course_id":           e.CourseID,
		"progress_percentage": e.ProgressPercentage,
		"status":              e.Status,
	})
}

func (n *progressNotifier) CourseCompleted(ctx context.Context, e *types.Enrollment) {
	if e == nil {
		return
	}
	n.send(ctx, e.UserID, realtime.SSEEventCourseCompleted, map[string]any{
		"course_id":    e.CourseID,
		"completed_at": e.CompletedAt,
	})
	if n.mail == nil || n.users == nil || n.courses == nil {
		return
	}
	userID, courseID := e.UserID, e.CourseID
	bg := ctxutil.Detached(ctx)
	n.spawn(func() { n.sendCompletionEmail(bg, userID, courseID) })
}

func (n *progressNotifier) sendCompletionEmail(ctx context.Context, userID, courseID uuid.UUID) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := n.users.GetByID(dbc, userID)
	if err != nil || u == nil || u.Email == "" {
		n.log.Warn("completion email skipped: user unavailable", "user_id", userID, "error", err)
		return
	}
	c, err := n.courses.GetByID(dbc, courseID)
	if err != nil || c == nil {
		n.log.Warn("completion email skipped: course unavailable", "course_id", courseID, "error", err)
		return
	}
	if _, err := n.mail.Send(ctx, mailer.CourseCompleted(u.Email, u.Name, c.Title)); err != nil {
		n.log.Warn("completion email failed", "user_id", userID, "course_id", courseID, "error", err)
	}
}

// LessonVideoUpdated tells viewers of the course that a lesson's video changed.
func (n *progressNotifier) LessonVideoUpdated(ctx context.Context, l *types.Lesson) {
	if n.emit == nil || l == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.CourseChannel(l.CourseID),
		Event:   realtime.SSEEventLessonVideoUpdated,
		Data: map[string]any{
			"lesson_id":        l.ID,
			"video_status":     l.VideoStatus,
			"duration_seconds": l.DurationSeconds,
		},
	})
}
