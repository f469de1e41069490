package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

type Config struct {
	Environment string

	RunServer bool
	RunWorker bool

	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	// Progress ingestion
	AutoCompleteRatio float64
	ConflictRetries   int

	// Video host
	VimeoWebhookSecret string
	VideoMaxPolls      int
	VideoPollInterval  time.Duration

	// Background work
	ReconcileCron     string
	SchedulerTimezone string
	WorkerConcurrency int
	WorkerPoll        time.Duration

	RedisAddr    string
	RedisChannel string
}

// LoadEnvFile loads ENV_FILE (default ".env") into the process environment when
// the file exists. Variables already set are left alone.
func LoadEnvFile(log *logger.Logger) {
	path := envutil.String("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn("could not load env file", "path", path, "error", err)
		return
	}
	log.Info("loaded env file", "path", path)
}

func LoadConfig(log *logger.Logger) Config {
	env := envutil.Logged{Log: log}
	port := env.String("PORT", "8080")
	return Config{
		Environment: env.String("APP_ENV", "development"),

		RunServer: env.Bool("RUN_SERVER", true),
		RunWorker: env.Bool("RUN_WORKER", true),

		HTTPAddr:    env.String("HTTP_ADDR", ":"+port),
		MetricsAddr: env.String("METRICS_ADDR", ""),
		CORSOrigins: splitList(env.String("CORS_ALLOWED_ORIGINS", "")),

		AutoCompleteRatio: env.Float("PROGRESS_AUTO_COMPLETE_RATIO", 0.90),
		ConflictRetries:   env.Int("PROGRESS_CONFLICT_RETRIES", 2),

		VimeoWebhookSecret: env.String("VIMEO_WEBHOOK_SECRET", ""),
		VideoMaxPolls:      env.Int("VIDEO_STATUS_MAX_POLLS", 20),
		VideoPollInterval:  env.Duration("VIDEO_STATUS_POLL_INTERVAL", 3*time.Minute),

		ReconcileCron:     env.String("RECONCILE_CRON", "0 3 * * *"),
		SchedulerTimezone: env.String("SCHEDULER_TIMEZONE", "UTC"),
		WorkerConcurrency: env.Int("WORKER_CONCURRENCY", 4),
		WorkerPoll:        env.Duration("WORKER_POLL_INTERVAL", time.Second),

		RedisAddr:    env.String("REDIS_ADDR", ""),
		RedisChannel: env.String("REDIS_CHANNEL", ""),
	}
}

func (c Config) schedulerLocation(log *logger.Logger) *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		log.Warn("invalid SCHEDULER_TIMEZONE, using UTC", "timezone", c.SchedulerTimezone, "error", err)
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
