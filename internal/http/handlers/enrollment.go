package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/http/response"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type EnrollmentHandler struct {
	log         *logger.Logger
	enrollments services.EnrollmentService
}

func NewEnrollmentHandler(log *logger.Logger, enrollments services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:         log.With("handler", "EnrollmentHandler"),
		enrollments: enrollments,
	}
}

type enrollRequest struct {
	UserID   string `json:"userId" binding:"required,uuid"`
	CourseID string `json:"courseId" binding:"required,uuid"`
}

// POST /api/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, created, err := h.enrollments.Enroll(c.Request.Context(), uuid.MustParse(req.UserID), uuid.MustParse(req.CourseID))
	if err != nil {
		h.log.Warn("Enroll failed", "error", err, "user_id", req.UserID, "course_id", req.CourseID)
		response.RespondServiceError(c, "enroll_failed", err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"enrollment": row, "created": true})
		return
	}
	response.RespondOK(c, gin.H{"enrollment": row, "created": false})
}

// GET /api/users/:userId/enrollments
func (h *EnrollmentHandler) ListForUser(c *gin.Context) {
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	rows, err := h.enrollments.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("ListForUser failed", "error", err, "user_id", userID)
		response.RespondServiceError(c, "load_enrollments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": rows})
}

// GET /api/courses/:courseId/enrollments/:userId
func (h *EnrollmentHandler) Get(c *gin.Context) {
	courseID, ok := pathUUID(c, "courseId")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	row, err := h.enrollments.Get(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondServiceError(c, "load_enrollment_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": row})
}
