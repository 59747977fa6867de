package platform

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/config"
	"github.com/kbukum/osal/dir"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/lock"
	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/observability"
	"github.com/kbukum/osal/process"
)

const meterName = "github.com/kbukum/osal/process"

// Platform owns the configured osal components.
type Platform struct {
	cfg      *config.Config
	log      *logger.Logger
	launcher *process.Launcher
	arena    *arena.Arena

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	shutdownTimeout time.Duration

	mu      sync.Mutex
	onClose []Hook
	closed  bool
}

// New builds a Platform from cfg. A nil cfg is loaded with config.Load.
// Defaults are applied and the result validated before anything is
// initialized.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Platform, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	p := &Platform{
		cfg:             cfg,
		arena:           arena.New(nil),
		shutdownTimeout: o.shutdownTimeout,
	}

	if o.logger != nil {
		p.log = o.logger
	} else {
		logger.Init(cfg.Logging)
		p.log = logger.GetGlobalLogger()
	}

	metrics, err := p.initTelemetry(ctx)
	if err != nil {
		_ = p.shutdownTelemetry(ctx)
		return nil, err
	}

	if err := dir.MakeAllContext(ctx, cfg.Locks.Dir, 0o755); err != nil {
		_ = p.shutdownTelemetry(ctx)
		return nil, fmt.Errorf("lock directory: %w", err)
	}

	launcherOpts := []process.Option{
		process.WithShell(cfg.Shell.Path, cfg.Shell.Flag),
		process.WithLogger(p.log.WithComponent("process")),
		process.WithMetrics(metrics),
	}
	p.launcher = process.NewLauncher(append(launcherOpts, o.launcherOpts...)...)
	if !o.keepDefault {
		process.SetDefault(p.launcher)
	}

	p.log.Info("osal initialized", logger.Fields(
		"name", cfg.Name,
		"environment", cfg.Environment,
		"version", ModuleVersion(),
		"shell", cfg.Shell.Path,
		"locks_dir", cfg.Locks.Dir,
		"tracing", cfg.Observability.Tracing,
		"metrics", cfg.Observability.Metrics,
	))
	return p, nil
}

func (p *Platform) initTelemetry(ctx context.Context) (*observability.ProcessMetrics, error) {
	oc := p.cfg.Observability
	if oc.Tracing {
		tp, err := observability.InitTracer(ctx, &observability.TracerConfig{
			ServiceName:    p.cfg.Name,
			ServiceVersion: ModuleVersion(),
			Environment:    p.cfg.Environment,
			Endpoint:       oc.Endpoint,
			Insecure:       oc.Insecure,
			SampleRate:     oc.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("tracer: %w", err)
		}
		p.tracerProvider = tp
	}
	if !oc.Metrics {
		return nil, nil
	}
	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
		ServiceName:    p.cfg.Name,
		ServiceVersion: ModuleVersion(),
		Environment:    p.cfg.Environment,
		Endpoint:       oc.Endpoint,
		Insecure:       oc.Insecure,
		Interval:       oc.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("meter: %w", err)
	}
	p.meterProvider = mp
	metrics, err := observability.NewProcessMetrics(observability.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("process metrics: %w", err)
	}
	return metrics, nil
}

// Config returns the applied configuration.
func (p *Platform) Config() *config.Config { return p.cfg }

// Logger returns the platform logger.
func (p *Platform) Logger() *logger.Logger { return p.log }

// Launcher returns the configured process launcher.
func (p *Platform) Launcher() *process.Launcher { return p.launcher }

// Arena returns the region owning platform-created resources.
func (p *Platform) Arena() *arena.Arena { return p.arena }

// NewLock creates a lock in the configured lock directory, owned by the
// platform arena. It fails once the platform is closed.
func (p *Platform) NewLock(scope lock.Scope, name string) (*lock.Lock, error) {
	if err := p.checkOpen("platform.new_lock"); err != nil {
		return nil, err
	}
	return lock.New(p.arena, scope, name,
		lock.WithDir(p.cfg.Locks.Dir),
		lock.WithLogger(p.log.WithComponent("lock")),
	)
}

// OpenDir opens path for enumeration on the platform arena. It fails once
// the platform is closed.
func (p *Platform) OpenDir(path string) (*dir.Dir, error) {
	if err := p.checkOpen("platform.open_dir"); err != nil {
		return nil, err
	}
	return dir.Open(p.arena, path)
}

func (p *Platform) checkOpen(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.InvalidInput("platform", "is closed").WithOp(op)
	}
	return nil
}

// Run executes cmd to completion with the platform launcher.
func (p *Platform) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	return p.launcher.Run(ctx, cmd)
}

// Close runs the close hooks, destroys the arena and flushes telemetry.
// Calling Close again is a no-op.
func (p *Platform) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	hooks := p.onClose
	p.onClose = nil
	p.mu.Unlock()

	errs := runHooks(ctx, hooks)
	if err := p.arena.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if err := p.shutdownTelemetry(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		p.log.Warn("osal close finished with errors", logger.ErrorFields("platform.close", stderrors.Join(errs...)))
		return stderrors.Join(errs...)
	}
	p.log.Debug("osal closed")
	return nil
}

func (p *Platform) shutdownTelemetry(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		p.meterProvider = nil
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		p.tracerProvider = nil
	}
	return stderrors.Join(errs...)
}
