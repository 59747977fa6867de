package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
)

const (
	defaultPollInterval = 10 * time.Millisecond
	defaultGracePeriod  = 5 * time.Second
)

// ErrWaitDelay is returned by Run when the child was reaped but its pipes
// were still in use once the grace period ran out.
var ErrWaitDelay = stderrors.New("process: I/O still in progress after the child exited")

// Run executes a subprocess with the default launcher and waits for it to
// complete.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	return Default().Run(ctx, cmd)
}

// Run executes a subprocess and waits for it to complete. Output is
// captured through pipes and the child is reaped by polling. If the
// context is canceled the child is asked to terminate, then killed after
// GracePeriod. Once the child is reaped, output is read for at most
// GracePeriod before the pipes are closed.
func (l *Launcher) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Shell && len(cmd.Args) == 0 {
		return nil, errors.InvalidInput("args", "shell command is required").WithOp("process.run")
	}
	if !cmd.Shell && cmd.Binary == "" {
		return nil, errors.InvalidInput("binary", "is required").WithOp("process.run")
	}

	interval := cmd.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	grace := cmd.GracePeriod
	if grace == 0 {
		grace = defaultGracePeriod
	}

	a := arena.New(nil)
	defer func() {
		if err := a.Destroy(); err != nil {
			l.log.Warn("releasing run resources failed", logger.ErrorFields("process.run", err))
		}
	}()

	attr := NewAttributes(a)
	if err := attr.SetIO(cmd.Stdin != nil, true, true); err != nil {
		return nil, err
	}
	if err := attr.SetDir(cmd.Dir); err != nil {
		return nil, err
	}
	argv := append([]string{cmd.Binary}, cmd.Args...)
	if cmd.Shell {
		attr.SetCommandMode(ShellCommand)
		argv = cmd.Args
	}

	start := time.Now()
	h, err := l.Launch(ctx, cmd.Binary, argv, cmd.Env, attr)
	if h == nil {
		return nil, err
	}
	if err != nil {
		l.log.Warn("child started with a launch warning", logger.ErrorFields("process.launch", err))
	}

	var stdout, stderr bytes.Buffer
	var drains sync.WaitGroup
	drains.Add(2)
	go drain(&drains, &stdout, h.Stdout())
	go drain(&drains, &stderr, h.Stderr())
	var fed chan error
	if cmd.Stdin != nil {
		fed = make(chan error, 1)
		go func() { fed <- feed(h, cmd.Stdin) }()
	}

	killed, waitErr := l.await(ctx, h, interval, grace)
	ioErr := awaitIO(&drains, fed, attr, grace)

	status := h.ExitStatus()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: status.Code,
		Status:   status,
		Duration: time.Since(start),
	}

	switch {
	case waitErr != nil:
		return result, waitErr
	case killed:
		// Context cancellation is the expected way to kill a process
		return result, fmt.Errorf("process: killed by context: %w", ctx.Err())
	case !status.Success():
		return result, &ExitError{Status: status}
	case ioErr != nil:
		return result, ioErr
	}
	return result, nil
}

// await polls h until it is reaped. On context cancellation the child is
// stopped.
func (l *Launcher) await(ctx context.Context, h *Handle, interval, grace time.Duration) (bool, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := h.Wait(Immediate)
		if err != nil {
			return false, err
		}
		if res != StillRunning {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return true, l.stop(h, interval, grace)
		case <-ticker.C:
		}
	}
}

// stop asks h to terminate and kills it if it is still running after
// grace. The child is reaped either way.
func (l *Launcher) stop(h *Handle, interval, grace time.Duration) error {
	if err := h.Terminate(); err != nil && !errors.HasCode(err, errors.ErrCodeNoSuchProcess) {
		return err
	}
	deadline := time.Now().Add(grace)
	for {
		res, err := h.Wait(Immediate)
		if err != nil {
			return err
		}
		if res != StillRunning {
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(interval)
	}

	l.log.Debug("child outlived its grace period, killing", logger.Fields(
		logger.FieldPID, h.Pid(),
		"grace_period", grace.String(),
	))
	if err := h.Kill(); err != nil && !errors.HasCode(err, errors.ErrCodeNoSuchProcess) {
		return err
	}
	_, err := h.Wait(Blocking)
	return err
}

// awaitIO waits for the stream copies to finish. Descendants of the child
// can keep the pipes open, so after delay the output pipes are closed to
// end the drains and a pending input copy is abandoned.
func awaitIO(drains *sync.WaitGroup, fed <-chan error, attr *Attributes, delay time.Duration) error {
	drained := make(chan struct{})
	go func() {
		drains.Wait()
		close(drained)
	}()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	expired := false

	select {
	case <-drained:
	case <-timer.C:
		expired = true
		_ = attr.closeParentReads()
		<-drained
	}

	var feedErr error
	if fed != nil {
		if expired {
			select {
			case feedErr = <-fed:
			default:
				_ = attr.closeParentIn()
			}
		} else {
			select {
			case feedErr = <-fed:
			case <-timer.C:
				expired = true
				_ = attr.closeParentIn()
			}
		}
	}

	if expired {
		return ErrWaitDelay
	}
	return feedErr
}

func drain(wg *sync.WaitGroup, dst *bytes.Buffer, src io.Reader) {
	defer wg.Done()
	_, _ = io.Copy(dst, src)
}

// feed copies src to the child's input and closes it. A child that exits
// without reading all of its input is not an error.
func feed(h *Handle, src io.Reader) error {
	_, err := io.Copy(h.Stdin(), src)
	closeErr := h.CloseStdin()
	if err != nil && !isBrokenPipe(err) && !stderrors.Is(err, os.ErrClosed) {
		return fmt.Errorf("process: write stdin: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("process: close stdin: %w", closeErr)
	}
	return nil
}
