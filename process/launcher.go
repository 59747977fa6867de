package process

import (
	"context"
	"maps"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/observability"
)

const tracerName = "github.com/kbukum/osal/process"

// Launcher starts child processes. The zero value is not usable; create
// one with NewLauncher.
type Launcher struct {
	sys       System
	excl      sync.Locker
	shellPath string
	shellFlag string
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *observability.ProcessMetrics
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithSystem replaces the platform primitives.
func WithSystem(sys System) Option {
	return func(l *Launcher) { l.sys = sys }
}

// WithExclusion replaces the process-wide launch exclusion.
func WithExclusion(excl sync.Locker) Option {
	return func(l *Launcher) { l.excl = excl }
}

// WithShell overrides the command interpreter used in ShellCommand mode.
// Empty values keep the platform default.
func WithShell(path, flag string) Option {
	return func(l *Launcher) {
		if path != "" {
			l.shellPath = path
		}
		if flag != "" {
			l.shellFlag = flag
		}
	}
}

// WithLogger sets the launcher's logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Launcher) { l.log = log }
}

// WithTracer sets the tracer used for launch spans.
func WithTracer(t trace.Tracer) Option {
	return func(l *Launcher) { l.tracer = t }
}

// WithMetrics records launch and wait metrics on m.
func WithMetrics(m *observability.ProcessMetrics) Option {
	return func(l *Launcher) { l.metrics = m }
}

// NewLauncher creates a launcher using the host operating system.
func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{
		sys:  DefaultSystem(),
		excl: &launchExclusion,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get("process")
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer(tracerName)
	}
	shellPath, shellFlag := l.sys.Shell()
	if l.shellPath == "" {
		l.shellPath = shellPath
	}
	if l.shellFlag == "" {
		l.shellFlag = shellFlag
	}
	return l
}

var defaultLauncher atomic.Pointer[Launcher]

// Default returns the launcher used by the package-level functions.
func Default() *Launcher {
	if l := defaultLauncher.Load(); l != nil {
		return l
	}
	defaultLauncher.CompareAndSwap(nil, NewLauncher())
	return defaultLauncher.Load()
}

// SetDefault replaces the launcher used by the package-level functions.
func SetDefault(l *Launcher) { defaultLauncher.Store(l) }

// Launch starts progname with the default launcher.
func Launch(ctx context.Context, progname string, args []string, env map[string]string, attr *Attributes) (*Handle, error) {
	return Default().Launch(ctx, progname, args, env, attr)
}

// Launch starts a child configured by attr.
//
// args is the complete argument vector including argv[0]; an empty vector
// becomes [progname]. In ShellCommand mode the platform interpreter is run
// instead, with args following its run-a-string flag. A nil env inherits
// the caller's environment, otherwise the map is the child's whole
// environment.
//
// Redirection and directory changes are process-wide, so launches that
// request either hold the launch exclusion from the first redirection to
// the last restore. The context is only checked before that point.
//
// A failed spawn returns a nil handle and SPAWN_FAILED. If the child was
// started but restoring a standard stream failed, both the running handle
// and the error are returned.
func (l *Launcher) Launch(ctx context.Context, progname string, args []string, env map[string]string, attr *Attributes) (*Handle, error) {
	if attr == nil {
		attr = NewAttributes(nil)
	}
	path, argv := l.command(progname, args, attr.mode)

	ctx, span := l.tracer.Start(ctx, observability.SpanProcessLaunch, trace.WithAttributes(
		attribute.String(observability.AttrProgram, path),
		attribute.String(observability.AttrMode, attr.mode.String()),
		attribute.Int(observability.AttrRedirects, attr.Redirections()),
		attribute.Bool(observability.AttrDirSet, attr.dir != ""),
	))
	defer span.End()
	log := l.log.WithContext(ctx)

	if err := ctx.Err(); err != nil {
		appErr := errors.SpawnFailed(path, err).WithOp("process.launch")
		l.finish(ctx, span, attr.mode.String(), path, 0, appErr)
		return nil, appErr
	}

	start := time.Now()
	out := l.run(path, argv, environ(env), attr)
	duration := time.Since(start)

	// Logging waits until the standard streams are back in place.
	if out.dirRestoreErr != nil {
		log.Warn("restoring working directory failed", logger.ErrorFields("chdir", out.dirRestoreErr))
	}
	if out.restoreErr != nil {
		log.Warn("restoring standard streams failed", logger.ErrorFields("restore", out.restoreErr))
	}

	if out.err != nil {
		log.Debug("launch failed", logger.Fields(
			logger.FieldProgram, path,
			logger.FieldDir, attr.dir,
			logger.FieldError, out.err.Error(),
		))
		l.finish(ctx, span, attr.mode.String(), path, duration, out.err)
		return nil, out.err
	}

	h := newHandle(l.sys, out.pid, attr, l.metrics)
	span.SetAttributes(attribute.Int(observability.AttrPID, out.pid))
	log.Debug("process launched", logger.Fields(
		logger.FieldProgram, path,
		logger.FieldPID, out.pid,
		logger.FieldDir, attr.dir,
		"mode", attr.mode.String(),
	))

	var err error
	if out.restoreErr != nil {
		err = errors.FromOS("process.launch", out.restoreErr)
	}
	l.finish(ctx, span, attr.mode.String(), path, duration, err)
	return h, err
}

type launchOutcome struct {
	pid           int
	err           *errors.AppError
	restoreErr    error
	dirRestoreErr error
}

// run performs the launch sequence. Deferred steps unwind in reverse:
// directory restore, then stream restore, then exclusion release.
func (l *Launcher) run(path string, argv, env []string, attr *Attributes) (out launchOutcome) {
	if attr.touchesProcessState() {
		ex := acquire(l.excl)
		defer ex.release()
	}

	var swaps []*stdSwap
	defer func() {
		out.restoreErr = unwind(swaps)
	}()
	for _, r := range attr.redirections() {
		sw, err := swapStd(l.sys, r)
		if err != nil {
			out.err = errors.OutOfResources(r.stream.String(), err).WithOp("process.launch")
			return out
		}
		swaps = append(swaps, sw)
	}

	l.sys.ResetChildSignal()

	if attr.dir != "" {
		cwd, err := l.sys.Getwd()
		if err != nil {
			out.err = errors.DirectorySwitchFailed(attr.dir, errors.FromOS("getwd", err)).WithOp("process.launch")
			return out
		}
		if err := l.sys.Chdir(attr.dir); err != nil {
			out.err = errors.DirectorySwitchFailed(attr.dir, errors.FromOS("chdir", err)).WithOp("process.launch")
			return out
		}
		defer func() {
			if err := l.sys.Chdir(cwd); err != nil {
				out.dirRestoreErr = err
			}
		}()
	}

	pid, err := l.sys.Spawn(path, argv, env)
	if err != nil {
		out.err = errors.SpawnFailed(path, errors.FromOS("spawn", err)).WithOp("process.launch")
		return out
	}
	out.pid = pid
	return out
}

// command returns the program to execute and its final argument vector.
func (l *Launcher) command(progname string, args []string, mode CommandMode) (string, []string) {
	if mode == ShellCommand {
		argv := make([]string, 0, len(args)+2)
		argv = append(argv, l.shellPath, l.shellFlag)
		return l.shellPath, append(argv, args...)
	}
	if len(args) == 0 {
		return progname, []string{progname}
	}
	return progname, args
}

func (l *Launcher) finish(ctx context.Context, span trace.Span, mode, program string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if appErr, ok := errors.AsAppError(err); ok {
			l.metrics.RecordError(ctx, string(appErr.Code), "process.launch")
		}
	}
	l.metrics.RecordLaunch(ctx, program, mode, status, d)
}

// environ renders env as sorted KEY=value pairs. A nil map inherits the
// caller's environment.
func environ(env map[string]string) []string {
	if env == nil {
		return os.Environ()
	}
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
