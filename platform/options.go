package platform

import (
	"time"

	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/process"
)

// Option configures the Platform during creation.
type Option func(*options)

type options struct {
	logger          *logger.Logger
	launcherOpts    []process.Option
	shutdownTimeout time.Duration
	keepDefault     bool
}

func resolveOptions(opts []Option) *options {
	o := &options{shutdownTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. If not set, the global logger is
// initialized from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLauncherOptions appends launcher options after the ones derived from
// the configuration.
func WithLauncherOptions(opts ...process.Option) Option {
	return func(o *options) { o.launcherOpts = append(o.launcherOpts, opts...) }
}

// WithShutdownTimeout bounds telemetry flushing in Close.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) { o.shutdownTimeout = d }
}

// WithoutDefaultLauncher leaves process.Default untouched.
func WithoutDefaultLauncher() Option {
	return func(o *options) { o.keepDefault = true }
}
