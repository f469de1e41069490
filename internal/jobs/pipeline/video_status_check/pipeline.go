package video_status_check

import (
	"fmt"

	jobrt "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	lessonID, ok := jc.PayloadUUID("lesson_id")
	if !ok {
		jc.Succeed("skipped", map[string]any{"reason": "missing lesson_id"})
		return nil
	}
	videoID := jc.PayloadString("video_id")
	polls := jc.PayloadInt("polls") + 1

	jc.Progress("poll", fmt.Sprintf("Checking video %s (poll %d/%d)", videoID, polls, p.maxPolls))
	res, err := p.videos.Check(jc.Ctx, lessonID, videoID)
	if err != nil {
		jc.Fail("poll", err)
		return nil
	}

	if res.State != services.VideoCheckInProgress {
		jc.Succeed(res.State, map[string]any{
			"state":            res.State,
			"video_id":         res.VideoID,
			"duration_seconds": res.DurationSeconds,
			"detail":           res.Detail,
			"polls":            polls,
		})
		return nil
	}

	if polls >= p.maxPolls {
		detail := fmt.Sprintf("still processing after %d polls", polls)
		if err := p.videos.MarkFailed(jc.Ctx, lessonID, res.VideoID, detail); err != nil {
			jc.Fail("give_up", err)
			return nil
		}
		jc.Log.Warn("video status polling gave up", "lesson_id", lessonID, "video_id", res.VideoID, "polls", polls)
		jc.Succeed("gave_up", map[string]any{"state": services.VideoCheckError, "detail": detail, "polls": polls})
		return nil
	}

	jc.Reschedule("waiting", p.pollInterval, map[string]any{"polls": polls})
	return nil
}
