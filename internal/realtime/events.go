package realtime

import (
	"strings"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventLessonProgressUpdated SSEEvent = "LessonProgressUpdated"
	SSEEventLessonCompleted       SSEEvent = "LessonCompleted"
	SSEEventCourseProgressUpdated SSEEvent = "CourseProgressUpdated"
	SSEEventCourseCompleted       SSEEvent = "CourseCompleted"
	SSEEventLessonVideoUpdated    SSEEvent = "LessonVideoUpdated"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every stream for a user is subscribed to.
func UserChannel(userID uuid.UUID) string {
	return userID.String()
}

func CourseChannel(courseID uuid.UUID) string {
	return "course:" + courseID.String()
}

func IsCourseChannel(channel string) bool {
	return strings.HasPrefix(strings.TrimSpace(channel), "course:")
}
