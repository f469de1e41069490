package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursetrack-backend/internal/data/db"
	"github.com/yungbote/coursetrack-backend/internal/http"
	jobruntime "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
	"github.com/yungbote/coursetrack-backend/internal/jobs/scheduler"
	"github.com/yungbote/coursetrack-backend/internal/jobs/worker"
	"github.com/yungbote/coursetrack-backend/internal/observability"
	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/realtime"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	Server    *http.Server
	Worker    *worker.Worker
	Scheduler *scheduler.Scheduler

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	LoadEnvFile(log)
	cfg := LoadConfig(log)

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursetrack-api"),
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", ""),
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, hub, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       hub,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}

	if cfg.RunServer {
		a.Server = wireServer(log, cfg, wireHandlers(log, serviceset, hub), metrics)
	}
	if cfg.RunWorker {
		a.Worker = worker.NewWorker(log, reposet.JobRun, serviceset.JobRegistry, worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			PollInterval: cfg.WorkerPoll,
			Policy:       jobruntime.DefaultRetryPolicy(),
		})
		a.Scheduler = scheduler.New(log, reposet.JobRun, cfg.schedulerLocation(log))
		if err := a.Scheduler.Every(cfg.ReconcileCron, services.JobTypeProgressReconcile, nil); err != nil {
			a.Close()
			return nil, fmt.Errorf("schedule reconciliation: %w", err)
		}
	}
	if a.Server == nil && a.Worker == nil {
		a.Close()
		return nil, fmt.Errorf("nothing to run: RUN_SERVER and RUN_WORKER are both off")
	}
	return a, nil
}

// Run blocks until ctx is canceled or one of the long-running parts fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Cfg.RedisAddr)
	a.Metrics.StartJobQueueCollector(gctx, a.Log, a.DB)

	if a.Server != nil {
		if a.Clients.SSEBus != nil {
			if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
				return fmt.Errorf("start SSE forwarder: %w", err)
			}
		}
		g.Go(func() error { return a.Server.Run(gctx, a.Cfg.HTTPAddr) })
	}
	if a.Worker != nil {
		g.Go(func() error { return a.Worker.Run(gctx) })
	}
	if a.Scheduler != nil {
		g.Go(func() error { return a.Scheduler.Run(gctx) })
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil && a.Log != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
