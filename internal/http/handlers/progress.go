package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursetrack-backend/internal/domain"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/http/response"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

const dropReasonInternal = "internal_error"

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:      log.With("handler", "ProgressHandler"),
		progress: progress,
	}
}

type recordSampleRequest struct {
	UserID          string   `json:"userId" binding:"required,uuid"`
	LessonID        string   `json:"lessonId" binding:"required,uuid"`
	ElapsedSeconds  *float64 `json:"elapsedSeconds" binding:"required,max=2147483647"`
	DurationSeconds *float64 `json:"durationSeconds"`
}

type markCompleteRequest struct {
	UserID           string   `json:"userId" binding:"required,uuid"`
	LessonID         string   `json:"lessonId" binding:"required,uuid"`
	WatchTimeSeconds *int     `json:"watchTimeSeconds" binding:"omitempty,max=2147483647"`
	WatchPercentage  *float64 `json:"watchPercentage"`
}

type courseProgressView struct {
	CourseID           uuid.UUID  `json:"courseId"`
	ProgressPercentage float64    `json:"progressPercentage"`
	Status             string     `json:"status"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

type progressView struct {
	UserID           uuid.UUID           `json:"userId"`
	LessonID         uuid.UUID           `json:"lessonId"`
	WatchTimeSeconds int                 `json:"watchTimeSeconds"`
	WatchPercentage  *float64            `json:"watchPercentage"`
	Completed        bool                `json:"completed"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	LastWatchedAt    *time.Time          `json:"lastWatchedAt,omitempty"`
	AutoComplete     bool                `json:"autoComplete,omitempty"`
	CourseProgress   *courseProgressView `json:"courseProgress,omitempty"`
}

type droppedView struct {
	Dropped bool   `json:"dropped"`
	Reason  string `json:"reason"`
}

func toProgressView(p *types.LessonProgress) progressView {
	return progressView{
		UserID:           p.UserID,
		LessonID:         p.LessonID,
		WatchTimeSeconds: p.WatchTimeSeconds,
		WatchPercentage:  p.WatchPercentage,
		Completed:        p.Completed,
		CompletedAt:      p.CompletedAt,
		LastWatchedAt:    p.LastWatchedAt,
	}
}

// POST /api/progress/sample
func (h *ProgressHandler) RecordSample(c *gin.Context) {
	var req recordSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.progress.RecordSample(c.Request.Context(), services.SampleInput{
		UserID:          uuid.MustParse(req.UserID),
		LessonID:        uuid.MustParse(req.LessonID),
		ElapsedSeconds:  *req.ElapsedSeconds,
		DurationSeconds: req.DurationSeconds,
	})
	h.respondOutcome(c, "record_sample_failed", out, err)
}

// POST /api/progress/complete
func (h *ProgressHandler) MarkComplete(c *gin.Context) {
	var req markCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.progress.MarkComplete(c.Request.Context(), services.CompleteInput{
		UserID:           uuid.MustParse(req.UserID),
		LessonID:         uuid.MustParse(req.LessonID),
		WatchTimeSeconds: req.WatchTimeSeconds,
		WatchPercentage:  req.WatchPercentage,
	})
	h.respondOutcome(c, "mark_complete_failed", out, err)
}

// GET /api/progress/:userId/:lessonId
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	p, err := h.progress.Get(c.Request.Context(), userID, lessonID)
	if err != nil {
		h.log.Error("GetProgress failed", "error", err, "user_id", userID, "lesson_id", lessonID)
		response.RespondServiceError(c, "load_progress_failed", err)
		return
	}
	if p == nil {
		response.RespondOK(c, gin.H{"userId": userID, "lessonId": lessonID, "status": "not_started"})
		return
	}
	response.RespondOK(c, toProgressView(p))
}

// respondOutcome never surfaces a tracking failure other than a malformed
// request: anything else is acknowledged as a dropped sample.
func (h *ProgressHandler) respondOutcome(c *gin.Context, code string, out *services.ProgressOutcome, err error) {
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeValidation) {
			response.RespondServiceError(c, code, err)
			return
		}
		h.log.Error("progress write failed", "code", code, "error", err)
		response.RespondAccepted(c, droppedView{Dropped: true, Reason: dropReasonInternal})
		return
	}
	if out == nil {
		response.RespondServiceError(c, code, errors.New("empty outcome"))
		return
	}
	if out.Dropped {
		response.RespondAccepted(c, droppedView{Dropped: true, Reason: out.Reason})
		return
	}
	view := toProgressView(out.Progress)
	view.AutoComplete = out.AutoComplete
	if e := out.Enrollment; e != nil {
		view.CourseProgress = &courseProgressView{
			CourseID:           e.CourseID,
			ProgressPercentage: e.ProgressPercentage,
			Status:             e.Status,
			CompletedAt:        e.CompletedAt,
		}
	}
	response.RespondOK(c, view)
}
