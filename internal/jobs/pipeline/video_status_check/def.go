package video_status_check

import (
	"time"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

const (
	DefaultMaxPolls     = 20
	DefaultPollInterval = 3 * time.Minute
)

type Pipeline struct {
	log          *logger.Logger
	videos       services.VideoStatusService
	maxPolls     int
	pollInterval time.Duration
}

func New(baseLog *logger.Logger, videos services.VideoStatusService, maxPolls int, pollInterval time.Duration) *Pipeline {
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Pipeline{
		log:          baseLog.With("job", services.JobTypeVideoStatusCheck),
		videos:       videos,
		maxPolls:     maxPolls,
		pollInterval: pollInterval,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeVideoStatusCheck }
