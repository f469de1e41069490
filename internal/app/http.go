package app

import (
	"github.com/yungbote/coursetrack-backend/internal/http"
	httpH "github.com/yungbote/coursetrack-backend/internal/http/handlers"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/realtime"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Progress   *httpH.ProgressHandler
	Enrollment *httpH.EnrollmentHandler
	Course     *httpH.CourseHandler
	Webhook    *httpH.WebhookHandler
	Realtime   *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Progress:   httpH.NewProgressHandler(log, services.Progress),
		Enrollment: httpH.NewEnrollmentHandler(log, services.Enrollment),
		Course:     httpH.NewCourseHandler(log, services.CourseViewer, services.CourseStats),
		Webhook:    httpH.NewWebhookHandler(log, services.VideoWebhook),
		Realtime:   httpH.NewRealtimeHandler(log, hub),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	var tracing string
	if envutil.Bool("OTEL_ENABLED", false) {
		tracing = envutil.String("OTEL_SERVICE_NAME", "coursetrack-api")
	}
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		TracingService: tracing,

		HealthHandler:     handlers.Health,
		ProgressHandler:   handlers.Progress,
		EnrollmentHandler: handlers.Enrollment,
		CourseHandler:     handlers.Course,
		WebhookHandler:    handlers.Webhook,
		RealtimeHandler:   handlers.Realtime,
	})
}
