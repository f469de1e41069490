package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	jobrt "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
)

// Webhook outcomes, also used as the metric label.
const (
	WebhookOutcomeApplied      = "applied"
	WebhookOutcomeStale        = "stale"
	WebhookOutcomeUnknownVideo = "unknown_video"
	WebhookOutcomeIgnored      = "ignored"
)

type WebhookResult struct {
	Outcome   string     `json:"outcome"`
	EventType string     `json:"event_type"`
	LessonID  *uuid.UUID `json:"lesson_id,omitempty"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
}

type VideoWebhookService interface {
	// Handle verifies and applies one provider notification. Unknown event
	// types and videos resolve to an outcome rather than an error.
	Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error)
}

type VideoWebhookServiceDeps struct {
	Log     *logger.Logger
	Secret  string
	Lessons repos.LessonRepo
	Jobs    repos.JobRunRepo
	Notify  ProgressNotifier
	Now     func() time.Time
}

type videoWebhookService struct {
	log     *logger.Logger
	secret  string
	lessons repos.LessonRepo
	jobs    repos.JobRunRepo
	notify  ProgressNotifier
	now     func() time.Time
}

func NewVideoWebhookService(deps VideoWebhookServiceDeps) VideoWebhookService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	notify := deps.Notify
	if notify == nil {
		notify = NopProgressNotifier{}
	}
	return &videoWebhookService{
		log:     deps.Log.With("service", "VideoWebhookService"),
		secret:  deps.Secret,
		lessons: deps.Lessons,
		jobs:    deps.Jobs,
		notify:  notify,
		now:     now,
	}
}

func (s *videoWebhookService) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := vimeo.VerifySignature(s.secret, body, signature); err != nil {
		observability.Current().IncWebhookEvent("unverified", "rejected")
		return nil, err
	}
	ev, err := vimeo.ParseWebhookEvent(body)
	if err != nil {
		observability.Current().IncWebhookEvent("unparsed", "rejected")
		return nil, err
	}
	res, err := s.apply(ctx, ev)
	if err != nil {
		observability.Current().IncWebhookEvent(ev.Type, "error")
		return nil, err
	}
	observability.Current().IncWebhookEvent(ev.Type, res.Outcome)
	return res, nil
}

func (s *videoWebhookService) apply(ctx context.Context, ev *vimeo.WebhookEvent) (*WebhookResult, error) {
	res := &WebhookResult{EventType: ev.Type}
	var upd videoUpdate
	now := s.now()
	switch ev.Type {
	case vimeo.EventUploadComplete:
		upd = videoUpdate{Status: types.VideoStatusUploadComplete, Meta: videoMeta("upload_complete", now, nil)}
	case vimeo.EventTranscodeComplete:
		upd = videoUpdate{Status: types.VideoStatusReady, Duration: ev.DurationSeconds(), Meta: videoMeta("ready", now, nil)}
	case vimeo.EventDelete:
		upd = videoUpdate{Status: types.VideoStatusDeleted, ClearID: true, Meta: videoMeta("deleted", now, nil)}
	default:
		s.log.Info("unhandled video webhook type", "type", ev.Type)
		res.Outcome = WebhookOutcomeIgnored
		return res, nil
	}

	videoID := ev.VideoID()
	lesson, err := s.lessons.GetByVideoID(dbctx.Context{Ctx: ctx}, videoID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		s.log.Warn("video webhook for unknown video", "type", ev.Type, "video_id", videoID)
		res.Outcome = WebhookOutcomeUnknownVideo
		return res, nil
	}
	lessonID := lesson.ID
	res.LessonID = &lessonID

	changed, err := applyLessonVideo(ctx, s.log, s.lessons, s.notify, lesson.ID, ev.EventTime(now), upd)
	if err != nil {
		return nil, err
	}
	if !changed {
		res.Outcome = WebhookOutcomeStale
		return res, nil
	}
	res.Outcome = WebhookOutcomeApplied

	if ev.Type == vimeo.EventUploadComplete && s.jobs != nil {
		job, err := jobrt.Enqueue(dbctx.Context{Ctx: ctx}, s.jobs, jobrt.EnqueueRequest{
			JobType:    JobTypeVideoStatusCheck,
			EntityType: "lesson",
			EntityID:   lesson.ID,
			Payload: map[string]any{
				"lesson_id": lesson.ID.String(),
				"video_id":  videoID,
				"polls":     0,
			},
			Dedupe: true,
		})
		if err != nil {
			s.log.Error("enqueue video status check failed", "lesson_id", lesson.ID, "error", err)
		} else if job != nil {
			jobID := job.ID
			res.JobID = &jobID
		}
	}
	s.log.Info("video webhook applied", "type", ev.Type, "lesson_id", lesson.ID, "video_id", videoID)
	return res, nil
}
