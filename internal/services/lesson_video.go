package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

const JobTypeVideoStatusCheck = "video_status_check"

// videoUpdate is one last-write-wins change to a lesson's video columns.
type videoUpdate struct {
	Status   string
	Duration int
	ClearID  bool
	Meta     map[string]any
}

func (u videoUpdate) columns() map[string]interface{} {
	out := map[string]interface{}{}
	if u.Status != "" {
		out["video_status"] = u.Status
	}
	if u.Duration > 0 {
		out["duration_seconds"] = u.Duration
	}
	if u.ClearID {
		out["video_id"] = nil
	}
	if len(u.Meta) > 0 {
		raw, err := json.Marshal(u.Meta)
		if err == nil {
			out["metadata"] = gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?::jsonb", string(raw))
		}
	}
	return out
}

// applyLessonVideo writes u if eventAt is not older than the lesson's last
// applied video event, then notifies course viewers. It reports whether the row changed.
func applyLessonVideo(ctx context.Context, log *logger.Logger, lessons repos.LessonRepo, notify ProgressNotifier, lessonID uuid.UUID, eventAt time.Time, u videoUpdate) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	changed, err := lessons.UpdateVideoIfNewer(dbc, lessonID, eventAt.UTC(), u.columns())
	if err != nil {
		return false, err
	}
	if !changed {
		log.Debug("stale video event ignored", "lesson_id", lessonID, "event_at", eventAt, "status", u.Status)
		return false, nil
	}
	if notify != nil {
		if fresh, err := lessons.GetByID(dbc, lessonID); err == nil && fresh != nil {
			notify.LessonVideoUpdated(ctx, fresh)
		}
	}
	return true, nil
}

func videoMeta(status string, now time.Time, extra map[string]any) map[string]any {
	m := map[string]any{
		"vimeo_status": status,
		"checked_at":   now.UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// lessonVideoID returns the lesson's current video id or "".
func lessonVideoID(l *types.Lesson) string {
	if l == nil || l.VideoID == nil {
		return ""
	}
	return *l.VideoID
}
