package progress_reconcile

import (
	jobrt "github.com/yungbote/coursetrack-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("reconcile", "Recomputing enrollment progress")
	report, err := p.reconcile.Run(jc.Ctx)
	if err != nil {
		jc.Fail("reconcile", err)
		return nil
	}
	jc.Succeed("done", report)
	return nil
}
