package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursetrack-backend/internal/http/response"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	log    *logger.Logger
	videos services.VideoWebhookService
}

func NewWebhookHandler(log *logger.Logger, videos services.VideoWebhookService) *WebhookHandler {
	return &WebhookHandler{
		log:    log.With("handler", "WebhookHandler"),
		videos: videos,
	}
}

// POST /webhooks/vimeo
func (h *WebhookHandler) Vimeo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.videos.Handle(c.Request.Context(), raw, c.GetHeader(vimeo.SignatureHeader))
	if err != nil {
		status, _, _ := response.Classify(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("video webhook failed", "error", err)
		}
		response.RespondServiceError(c, "webhook_failed", err)
		return
	}
	response.RespondOK(c, res)
}
