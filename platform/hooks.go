package platform

import (
	"context"
	"fmt"
)

// Hook is a teardown callback run by Close.
type Hook func(ctx context.Context) error

// OnClose registers hooks that run at the start of Close, most recent
// first, before the arena and telemetry are released.
func (p *Platform) OnClose(hooks ...Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = append(p.onClose, hooks...)
}

// runHooks runs every hook in reverse order and collects the failures.
func runHooks(ctx context.Context, hooks []Hook) []error {
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("close hook %d: %w", i, err))
		}
	}
	return errs
}
