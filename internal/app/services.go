package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/jobs/pipeline/progress_reconcile"
	"github.com/yungbote/coursetrack-backend/internal/jobs/pipeline/video_status_check"
	jobruntime "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/realtime"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type Services struct {
	// Aggregates
	LessonAgg domainagg.LessonProgressAggregate
	EnrollAgg domainagg.EnrollmentProgressAggregate

	// Notifications
	Emitter  realtime.Emitter
	Notifier services.ProgressNotifier

	// Domain
	Progress     services.ProgressService
	Enrollment   services.EnrollmentService
	CourseViewer services.CourseViewerService
	CourseStats  services.CourseStatsService
	VideoWebhook services.VideoWebhookService
	VideoStatus  services.VideoStatusService
	Reconcile    services.ReconcileService
	Catalog      services.CatalogService

	// Job infra
	JobRegistry *jobruntime.Registry
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, hub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}
	lessonAgg := aggregates.NewLessonProgressAggregate(aggregates.LessonProgressAggregateDeps{
		Base:     base,
		Users:    repos.User,
		Lessons:  repos.Lesson,
		Progress: repos.LessonProgress,
	})
	enrollAgg := aggregates.NewEnrollmentProgressAggregate(aggregates.EnrollmentProgressAggregateDeps{
		Base:        base,
		Enrollments: repos.Enrollment,
		Lessons:     repos.Lesson,
		Progress:    repos.LessonProgress,
	})

	var emitter realtime.Emitter
	if clients.SSEBus != nil {
		// Every instance forwards bus messages into its own hub.
		emitter = realtime.PublisherEmitter{Bus: clients.SSEBus, Fallback: hub}
	} else {
		emitter = realtime.HubEmitter{Hub: hub}
	}
	notifier := services.NewProgressNotifier(services.ProgressNotifierDeps{
		Log:     log,
		Emit:    emitter,
		Mail:    clients.Mailer,
		Users:   repos.User,
		Courses: repos.Course,
	})

	progress := services.NewProgressService(services.ProgressServiceDeps{
		Log:       log,
		Lessons:   repos.Lesson,
		Progress:  repos.LessonProgress,
		LessonAgg: lessonAgg,
		EnrollAgg: enrollAgg,
		Notifier:  notifier,
		Config: services.ProgressConfig{
			AutoCompleteRatio: cfg.AutoCompleteRatio,
			ConflictRetries:   cfg.ConflictRetries,
		},
	})
	enrollment := services.NewEnrollmentService(log, repos.User, repos.Course, repos.Enrollment)
	viewer := services.NewCourseViewerService(log, repos.Course, repos.Lesson, repos.Enrollment, progress)
	stats := services.NewCourseStatsService(log, repos.Course, repos.CourseStats)

	webhookDeps := services.VideoWebhookServiceDeps{
		Log:     log,
		Secret:  cfg.VimeoWebhookSecret,
		Lessons: repos.Lesson,
		Notify:  notifier,
	}
	var videoStatus services.VideoStatusService
	if clients.Vimeo != nil {
		videoStatus = services.NewVideoStatusService(log, repos.Lesson, clients.Vimeo, notifier)
		webhookDeps.Jobs = repos.JobRun
	}
	if cfg.VimeoWebhookSecret == "" {
		log.Warn("VIMEO_WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	videoWebhook := services.NewVideoWebhookService(webhookDeps)

	reconcile := services.NewReconcileService(services.ReconcileServiceDeps{
		Log:         log,
		Enrollments: repos.Enrollment,
		Courses:     repos.Course,
		Stats:       repos.CourseStats,
		EnrollAgg:   enrollAgg,
		Notify:      notifier,
	})
	catalog := services.NewCatalogService(log, repos.User, repos.Course, repos.Lesson, enrollment)

	// Job registry
	jobRegistry := jobruntime.NewRegistry()
	if err := jobRegistry.Register(progress_reconcile.New(log, reconcile)); err != nil {
		return Services{}, fmt.Errorf("register %s: %w", services.JobTypeProgressReconcile, err)
	}
	if videoStatus != nil {
		statusCheck := video_status_check.New(log, videoStatus, cfg.VideoMaxPolls, cfg.VideoPollInterval)
		if err := jobRegistry.Register(statusCheck); err != nil {
			return Services{}, fmt.Errorf("register %s: %w", services.JobTypeVideoStatusCheck, err)
		}
	}

	return Services{
		LessonAgg:    lessonAgg,
		EnrollAgg:    enrollAgg,
		Emitter:      emitter,
		Notifier:     notifier,
		Progress:     progress,
		Enrollment:   enrollment,
		CourseViewer: viewer,
		CourseStats:  stats,
		VideoWebhook: videoWebhook,
		VideoStatus:  videoStatus,
		Reconcile:    reconcile,
		Catalog:      catalog,
		JobRegistry:  jobRegistry,
	}, nil
}
