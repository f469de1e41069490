package progress_reconcile

import (
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	reconcile services.ReconcileService
}

func New(baseLog *logger.Logger, reconcile services.ReconcileService) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeProgressReconcile),
		reconcile: reconcile,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeProgressReconcile }
