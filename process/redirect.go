package process

import (
	stderrors "errors"
	"fmt"
)

// stdSwap is the scope guard for one redirected standard stream. It is
// built by swapStd, which saves the current slot and installs the child
// end, and undone by restore.
type stdSwap struct {
	sys   System
	r     redirection
	saved uintptr
	done  bool
}

func swapStd(sys System, r redirection) (*stdSwap, error) {
	saved, err := sys.SaveStd(r.stream)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", r.stream, err)
	}
	if err := sys.InstallStd(r.stream, r.child.Fd()); err != nil {
		_ = sys.ReleaseSaved(r.stream, saved)
		return nil, fmt.Errorf("install %s: %w", r.stream, err)
	}
	sw := &stdSwap{sys: sys, r: r, saved: saved}
	if err := sys.SetNoInherit(r.parent); err != nil {
		restoreErr := sw.restore()
		return nil, stderrors.Join(fmt.Errorf("protect parent %s: %w", r.stream, err), restoreErr)
	}
	return sw, nil
}

// restore closes the child end, reinstalls the saved slot and releases
// the saved copy. Every step runs even if an earlier one fails.
func (s *stdSwap) restore() error {
	if s.done {
		return nil
	}
	s.done = true

	var errs []error
	if err := s.r.closeChild(); err != nil {
		errs = append(errs, fmt.Errorf("close child %s: %w", s.r.stream, err))
	}
	if err := s.sys.InstallStd(s.r.stream, s.saved); err != nil {
		errs = append(errs, fmt.Errorf("restore %s: %w", s.r.stream, err))
	}
	if err := s.sys.ReleaseSaved(s.r.stream, s.saved); err != nil {
		errs = append(errs, fmt.Errorf("release saved %s: %w", s.r.stream, err))
	}
	return stderrors.Join(errs...)
}

// unwind restores swaps in reverse order of installation.
func unwind(swaps []*stdSwap) error {
	var errs []error
	for i := len(swaps) - 1; i >= 0; i-- {
		errs = append(errs, swaps[i].restore())
	}
	return stderrors.Join(errs...)
}
