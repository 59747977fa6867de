package platform

import (
	"context"
	"os"
	"os/exec"

	"github.com/kbukum/osal/observability"
)

// Health reports whether the configured interpreter and lock directory
// are usable.
func (p *Platform) Health(ctx context.Context) *observability.Report {
	return observability.CheckAll(ctx, p.cfg.Name, ModuleVersion(),
		observability.CheckFunc(p.checkShell),
		observability.CheckFunc(p.checkLockDir),
	)
}

func (p *Platform) checkShell(context.Context) observability.Health {
	h := observability.Health{
		Name:    "shell",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"path": p.cfg.Shell.Path, "flag": p.cfg.Shell.Flag},
	}
	resolved, err := exec.LookPath(p.cfg.Shell.Path)
	if err != nil {
		h.Status = observability.HealthStatusDegraded
		h.Message = "shell-mode launches will fail: " + err.Error()
		return h
	}
	h.Details["resolved"] = resolved
	return h
}

func (p *Platform) checkLockDir(context.Context) observability.Health {
	h := observability.Health{
		Name:    "locks",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"dir": p.cfg.Locks.Dir},
	}
	info, err := os.Stat(p.cfg.Locks.Dir)
	switch {
	case err != nil:
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
	case !info.IsDir():
		h.Status = observability.HealthStatusDown
		h.Message = "not a directory"
	}
	return h
}
