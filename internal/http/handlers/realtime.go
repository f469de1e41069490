package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log: log.With("handler", "RealtimeHandler"),
		Hub: hub,
	}
}

// GET /api/realtime/:userId/stream?courses=<id>,<id>
//
// Every stream joins the user's channel; each listed course adds that
// course's channel for lesson video updates.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	client := h.Hub.NewSSEClient(userID)
	client.Logger = h.Log.With("sse_client_id", client.ID, "user_id", userID)
	h.Hub.AddChannel(client, realtime.UserChannel(userID))
	for _, raw := range strings.Split(c.Query("courses"), ",") {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil && id != uuid.Nil {
			h.Hub.AddChannel(client, realtime.CourseChannel(id))
		}
	}
	client.Logger.Debug("SSE stream open")

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	client.Logger.Debug("SSE stream closed")
}
