package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	types "github.com/yungbote/coursetrack-backend/internal/domain"
	"github.com/yungbote/coursetrack-backend/internal/platform/dbctx"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
)

const (
	VideoCheckInProgress = "in_progress"
	VideoCheckReady      = "ready"
	VideoCheckError      = "error"
	VideoCheckSkipped    = "skipped"
)

type VideoCheckResult struct {
	State           string `json:"state"`
	VideoID         string `json:"video_id,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

type VideoStatusService interface {
	// Check polls the provider once and records a terminal state on the lesson.
	// In-progress videos leave the lesson untouched.
	Check(ctx context.Context, lessonID uuid.UUID, videoID string) (*VideoCheckResult, error)
	// MarkFailed records a terminal error for videoID unless a newer event won.
	MarkFailed(ctx context.Context, lessonID uuid.UUID, videoID, detail string) error
}

type videoStatusService struct {
	log     *logger.Logger
	lessons repos.LessonRepo
	vimeo   vimeo.Client
	notify  ProgressNotifier
	now     func() time.Time
}

func NewVideoStatusService(baseLog *logger.Logger, lessons repos.LessonRepo, client vimeo.Client, notify ProgressNotifier) VideoStatusService {
	if notify == nil {
		notify = NopProgressNotifier{}
	}
	return &videoStatusService{
		log:     baseLog.With("service", "VideoStatusService"),
		lessons: lessons,
		vimeo:   client,
		notify:  notify,
		now:     time.Now,
	}
}

func (s *videoStatusService) Check(ctx context.Context, lessonID uuid.UUID, videoID string) (*VideoCheckResult, error) {
	lesson, err := s.lessons.GetByID(dbctx.Context{Ctx: ctx}, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return &VideoCheckResult{State: VideoCheckSkipped, Detail: "lesson not found"}, nil
	}
	current := lessonVideoID(lesson)
	if videoID == "" {
		videoID = current
	}
	if videoID == "" || current != videoID {
		return &VideoCheckResult{State: VideoCheckSkipped, VideoID: videoID, Detail: "video no longer attached"}, nil
	}

	st, err := s.vimeo.GetVideoStatus(ctx, videoID)
	if errors.Is(err, vimeo.ErrVideoNotFound) {
		if err := s.MarkFailed(ctx, lessonID, videoID, "video not found at provider"); err != nil {
			return nil, err
		}
		return &VideoCheckResult{State: VideoCheckError, VideoID: videoID, Detail: "video not found at provider"}, nil
	}
	if err != nil {
		return nil, err
	}
	eventAt := st.EventTime(s.now())

	switch {
	case st.InProgress():
		return &VideoCheckResult{State: VideoCheckInProgress, VideoID: videoID}, nil
	case st.Ready():
		_, err := applyLessonVideo(ctx, s.log, s.lessons, s.notify, lessonID, eventAt, videoUpdate{
			Status:   types.VideoStatusReady,
			Duration: st.DurationSeconds,
			Meta:     videoMeta("ready", eventAt, nil),
		})
		if err != nil {
			return nil, err
		}
		return &VideoCheckResult{State: VideoCheckReady, VideoID: videoID, DurationSeconds: st.DurationSeconds}, nil
	default:
		detail := "status=" + st.Status + " upload=" + st.UploadStatus + " transcode=" + st.TranscodeStatus
		_, err := applyLessonVideo(ctx, s.log, s.lessons, s.notify, lessonID, eventAt, videoUpdate{
			Status: types.VideoStatusError,
			Meta:   videoMeta("error", eventAt, map[string]any{"error_details": detail}),
		})
		if err != nil {
			return nil, err
		}
		s.log.Warn("video processing failed", "lesson_id", lessonID, "video_id", videoID, "detail", detail)
		return &VideoCheckResult{State: VideoCheckError, VideoID: videoID, Detail: detail}, nil
	}
}

func (s *videoStatusService) MarkFailed(ctx context.Context, lessonID uuid.UUID, videoID, detail string) error {
	now := s.now()
	_, err := applyLessonVideo(ctx, s.log, s.lessons, s.notify, lessonID, now, videoUpdate{
		Status: types.VideoStatusError,
		Meta:   videoMeta("error", now, map[string]any{"error_details": detail, "video_id": videoID}),
	})
	return err
}
