package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/http/response"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type CourseHandler struct {
	log    *logger.Logger
	viewer services.CourseViewerService
	stats  services.CourseStatsService
}

func NewCourseHandler(log *logger.Logger, viewer services.CourseViewerService, stats services.CourseStatsService) *CourseHandler {
	return &CourseHandler{
		log:    log.With("handler", "CourseHandler"),
		viewer: viewer,
		stats:  stats,
	}
}

// GET /api/courses/:courseId/viewer/:userId?lesson_id=
func (h *CourseHandler) View(c *gin.Context) {
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	var lessonID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("lesson_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
			return
		}
		lessonID = &id
	}
	view, err := h.viewer.View(c.Request.Context(), userID, courseID, lessonID)
	if err != nil {
		h.log.Warn("course view failed", "error", err, "user_id", userID, "course_id", courseID)
		response.RespondServiceError(c, "load_course_failed", err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/courses/:courseId/stats
func (h *CourseHandler) Stats(c *gin.Context) {
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	row, err := h.stats.Get(c.Request.Context(), courseID)
	if err != nil {
		h.log.Error("course stats failed", "error", err, "course_id", courseID)
		response.RespondServiceError(c, "load_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": row})
}
