package process

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/observability"
)

// WaitMode selects between suspending until the child changes state and
// polling once.
type WaitMode int

const (
	Blocking WaitMode = iota
	Immediate
)

// String returns the mode name used in metrics.
func (m WaitMode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "blocking"
}

// WaitResult is the terminal or transient status reported by Wait.
type WaitResult int

const (
	// Exited means this call reaped the child.
	Exited WaitResult = iota + 1
	// AlreadyExited means an earlier call reaped the child.
	AlreadyExited
	// StillRunning means an Immediate wait found the child alive.
	StillRunning
)

// String returns the result name.
func (r WaitResult) String() string {
	switch r {
	case Exited:
		return "exited"
	case AlreadyExited:
		return "already_exited"
	case StillRunning:
		return "still_running"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Handle tracks one child process. It is safe for concurrent use; the
// internal mutex is never held across the operating system wait.
type Handle struct {
	mu      sync.Mutex
	sys     System
	pid     int
	running bool
	status  ExitStatus
	attr    *Attributes
	metrics *observability.ProcessMetrics
}

func newHandle(sys System, pid int, attr *Attributes, m *observability.ProcessMetrics) *Handle {
	return &Handle{sys: sys, pid: pid, running: true, attr: attr, metrics: m}
}

// Pid returns the process identifier. It is only meaningful while the
// child is running.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// Running reports whether the child has not been reaped yet.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// ExitStatus returns the status recorded when the child was reaped.
func (h *Handle) ExitStatus() ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Stdin returns the parent end of the child's standard input pipe, or nil
// when input was not redirected.
func (h *Handle) Stdin() *os.File { return h.attr.parentIn() }

// Stdout returns the parent end of the child's standard output pipe.
func (h *Handle) Stdout() *os.File { return h.attr.parentOut() }

// Stderr returns the parent end of the child's standard error pipe.
func (h *Handle) Stderr() *os.File { return h.attr.parentErr() }

// CloseStdin closes the parent end of the input pipe so the child sees
// end of file.
func (h *Handle) CloseStdin() error { return h.attr.closeParentIn() }

// Wait reaps the child. Blocking suspends the calling goroutine until the
// child exits or stops; Immediate polls once. A handle that was already
// reaped reports AlreadyExited without touching the operating system.
func (h *Handle) Wait(mode WaitMode) (WaitResult, error) {
	if h == nil {
		return 0, errors.NoSuchProcess(0).WithOp("process.wait")
	}
	res, err := h.wait(mode)
	if err == nil {
		h.metrics.RecordWait(context.Background(), mode.String(), res.String())
	}
	return res, err
}

func (h *Handle) wait(mode WaitMode) (WaitResult, error) {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return AlreadyExited, nil
	}
	pid := h.pid
	h.mu.Unlock()

	wpid, status, err := h.sys.Wait(pid, mode == Immediate)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		// Reaped by a concurrent Wait while this one was in the OS.
		return AlreadyExited, nil
	}
	if err != nil {
		return 0, errors.FromOS("process.wait", err)
	}
	if wpid == 0 {
		return StillRunning, nil
	}
	h.running = false
	h.status = status
	return Exited, nil
}

// Kill terminates the child forcibly. The child still has to be reaped
// with Wait.
func (h *Handle) Kill() error {
	if h == nil {
		return errors.NoSuchProcess(0).WithOp("process.kill")
	}
	return h.signal("process.kill", h.sys.Kill)
}

// Terminate asks the child to exit, giving it a chance to clean up. On
// Windows it is the same as Kill.
func (h *Handle) Terminate() error {
	if h == nil {
		return errors.NoSuchProcess(0).WithOp("process.terminate")
	}
	return h.signal("process.terminate", h.sys.Terminate)
}

func (h *Handle) signal(op string, send func(pid int) error) error {
	h.mu.Lock()
	running, pid := h.running, h.pid
	h.mu.Unlock()
	if !running {
		return errors.NoSuchProcess(pid).WithOp(op)
	}
	if err := send(pid); err != nil {
		return errors.FromOS(op, err)
	}
	return nil
}

// String formats the handle for logs.
func (h *Handle) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return fmt.Sprintf("process(%d, running)", h.pid)
	}
	return fmt.Sprintf("process(%d, %s)", h.pid, h.status)
}
