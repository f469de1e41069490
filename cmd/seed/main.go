package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/coursetrack-backend/internal/app"
	"github.com/yungbote/coursetrack-backend/internal/data/db"
	"github.com/yungbote/coursetrack-backend/internal/data/repos"
	"github.com/yungbote/coursetrack-backend/internal/jobs/scheduler"
	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

func main() {
	file := flag.String("file", "catalog.yaml", "path to the catalog YAML file")
	dryRun := flag.Bool("dry-run", false, "validate the catalog without writing")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	app.LoadEnvFile(log)

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("read catalog", "file", *file, "error", err)
	}
	catalog, err := services.ParseCatalog(raw)
	if err != nil {
		log.Fatal("invalid catalog", "file", *file, "error", err)
	}
	if *dryRun {
		log.Info("catalog ok",
			"users", len(catalog.Users),
			"courses", len(catalog.Courses),
			"enrollments", len(catalog.Enrollments),
		)
		return
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("init postgres", "error", err)
	}
	defer pg.Close()
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("postgres automigrate", "error", err)
	}
	gdb := pg.DB()

	users := repos.NewUserRepo(gdb, log)
	courses := repos.NewCourseRepo(gdb, log)
	lessons := repos.NewLessonRepo(gdb, log)
	enrollments := services.NewEnrollmentService(log, users, courses, repos.NewEnrollmentRepo(gdb, log))
	svc := services.NewCatalogService(log, users, courses, lessons, enrollments)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	report, err := svc.Apply(ctx, catalog)
	if err != nil {
		log.Error("seed failed", "file", *file, "error", err)
		cancel()
		pg.Close()
		log.Sync()
		os.Exit(1)
	}
	log.Info("seed complete",
		"users", report.Users,
		"courses", report.Courses,
		"lessons", report.Lessons,
		"lessons_pruned", report.LessonsPruned,
		"enrollments", report.Enrollments,
	)
	if report.LessonsPruned > 0 {
		sched := scheduler.New(log, repos.NewJobRunRepo(gdb, log), nil)
		if _, err := sched.Trigger(ctx, services.JobTypeProgressReconcile, nil); err != nil {
			log.Warn("reconcile enqueue failed; nightly run will pick it up", "error", err)
		}
	}
}
