package process

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/observability"
)

// forkEnv marks a re-executed duplicate. Its value is the pid of the
// process that created the duplicate.
const forkEnv = "OSAL_FORK_PARENT"

// ForkSide tells the caller of Fork which copy it is running in.
type ForkSide int

const (
	ParentSide ForkSide = iota + 1
	ChildSide
)

// String returns the side name.
func (s ForkSide) String() string {
	switch s {
	case ParentSide:
		return "parent"
	case ChildSide:
		return "child"
	default:
		return "unknown"
	}
}

// ForkResult is the tagged result of Fork.
type ForkResult struct {
	Side ForkSide
	// Handle refers to the child in the parent and to the current process
	// in the child. It never carries attributes.
	Handle *Handle
}

// Fork duplicates the calling program with the default launcher.
func Fork(ctx context.Context) (ForkResult, error) {
	return Default().Fork(ctx)
}

// Fork duplicates the calling program.
//
// A running Go program cannot be copied in place, so the duplicate is a
// fresh execution of the same binary with the same arguments and an
// environment marker. The program must call Fork on the same path early in
// its life: in the duplicate that call returns ChildSide, in the original
// it returns ParentSide with a handle on the duplicate. The duplicate
// inherits the current standard streams and working directory; no
// attribute redirection is applied and the launch exclusion is not taken.
func (l *Launcher) Fork(ctx context.Context) (ForkResult, error) {
	if isForkedChild() {
		_ = os.Unsetenv(forkEnv)
		return ForkResult{Side: ChildSide, Handle: newHandle(l.sys, os.Getpid(), nil, nil)}, nil
	}

	ctx, span := l.tracer.Start(ctx, observability.SpanProcessFork)
	defer span.End()

	exe, err := os.Executable()
	if err != nil {
		appErr := errors.NotSupported("fork").WithCause(err)
		l.finish(ctx, span, "fork", "fork", 0, appErr)
		return ForkResult{}, appErr
	}

	env := append(os.Environ(), forkEnv+"="+strconv.Itoa(os.Getpid()))
	start := time.Now()
	pid, err := l.sys.Spawn(exe, os.Args, env)
	if err != nil {
		appErr := errors.SpawnFailed(exe, errors.FromOS("fork", err)).WithOp("process.fork")
		l.finish(ctx, span, "fork", exe, time.Since(start), appErr)
		return ForkResult{}, appErr
	}
	span.SetAttributes(attribute.Int(observability.AttrPID, pid))
	l.finish(ctx, span, "fork", exe, time.Since(start), nil)
	l.log.WithContext(ctx).Debug("process duplicated", logger.Fields(
		logger.FieldProgram, exe,
		logger.FieldPID, pid,
	))
	return ForkResult{Side: ParentSide, Handle: newHandle(l.sys, pid, nil, l.metrics)}, nil
}

// IsForkedChild reports whether the current process is a duplicate created
// by Fork that has not yet called Fork itself.
func IsForkedChild() bool { return isForkedChild() }

func isForkedChild() bool {
	v, ok := os.LookupEnv(forkEnv)
	if !ok {
		return false
	}
	return v == strconv.Itoa(os.Getppid())
}
