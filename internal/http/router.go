package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursetrack-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursetrack-backend/internal/http/middleware"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// TracingService enables otelgin spans under this service name when set.
	TracingService string

	HealthHandler     *httpH.HealthHandler
	ProgressHandler   *httpH.ProgressHandler
	EnrollmentHandler *httpH.EnrollmentHandler
	CourseHandler     *httpH.CourseHandler
	WebhookHandler    *httpH.WebhookHandler
	RealtimeHandler   *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Video host callbacks
	if cfg.WebhookHandler != nil {
		r.POST("/webhooks/vimeo", cfg.WebhookHandler.Vimeo)
	}

	api := r.Group("/api")
	{
		// Progress tracking
		if cfg.ProgressHandler != nil {
			api.POST("/progress/sample", cfg.ProgressHandler.RecordSample)
			api.POST("/progress/complete", cfg.ProgressHandler.MarkComplete)
			api.GET("/progress/:userId/:lessonId", cfg.ProgressHandler.GetProgress)
		}

		// Enrollment
		if cfg.EnrollmentHandler != nil {
			api.POST("/enrollments", cfg.EnrollmentHandler.Enroll)
			api.GET("/users/:userId/enrollments", cfg.EnrollmentHandler.ListForUser)
			api.GET("/courses/:courseId/enrollments/:userId", cfg.EnrollmentHandler.Get)
		}

		// Course
		if cfg.CourseHandler != nil {
			api.GET("/courses/:courseId/viewer/:userId", cfg.CourseHandler.View)
			api.GET("/courses/:courseId/stats", cfg.CourseHandler.Stats)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/realtime/:userId/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
