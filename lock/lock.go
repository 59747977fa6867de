// Package lock provides mutual-exclusion locks between goroutines of one
// process or between processes.
//
// A Lock is acquired with Lock and released with Unlock. Releasing a lock
// that is not held does nothing, so paired cleanup paths may both call
// Unlock safely. Destroy releases the lock if held and frees the
// underlying OS handle exactly once. Locks are not reentrant.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/observability"
)

// Scope selects who the lock excludes.
type Scope int

const (
	// IntraProcess excludes goroutines of the current process.
	IntraProcess Scope = iota
	// CrossProcess additionally excludes other processes through a lock
	// file.
	CrossProcess
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case IntraProcess:
		return "intra_process"
	case CrossProcess:
		return "cross_process"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

type options struct {
	dir string
	log *logger.Logger
}

// Option configures a Lock.
type Option func(*options)

// WithDir sets the directory holding cross-process lock files. It
// defaults to os.TempDir().
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithLogger sets the logger used for lock lifecycle events.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Lock is a named mutual-exclusion lock.
type Lock struct {
	name  string
	scope Scope
	path  string
	log   *logger.Logger

	mu sync.Mutex // the exclusion itself

	state     sync.Mutex // guards the fields below
	held      bool
	destroyed bool
	file      *os.File

	arena   *arena.Arena
	cleanup *arena.Cleanup
}

// New creates a lock owned by a, which destroys it on teardown. An empty
// name creates an anonymous lock with a random name. Cross-process locks
// open or create <dir>/<name>.lock; the name must not contain a path
// separator.
func New(a *arena.Arena, scope Scope, name string, opts ...Option) (*Lock, error) {
	o := options{dir: os.TempDir()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("lock")
	}
	if name == "" {
		name = uuid.NewString()
	}
	if strings.ContainsAny(name, `/\`) || strings.IndexByte(name, 0) >= 0 {
		return nil, errors.InvalidInput("name", "lock names cannot contain path separators").WithOp("lock.new")
	}
	if scope != IntraProcess && scope != CrossProcess {
		return nil, errors.InvalidInput("scope", fmt.Sprintf("unknown scope %d", int(scope))).WithOp("lock.new")
	}
	if a == nil {
		a = arena.New(nil)
	}

	l := &Lock{name: name, scope: scope, log: o.log.WithFields(logger.Fields(logger.FieldLock, name)), arena: a}
	if scope == CrossProcess {
		l.path = filepath.Join(o.dir, name+".lock")
		f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, errors.FromOS("lock.new", err)
		}
		l.file = f
	}
	l.cleanup = a.Register("lock "+name, l.release)
	l.log.Debug("lock created", logger.Fields("scope", scope.String(), logger.FieldPath, l.path))
	return l, nil
}

// Name returns the lock name.
func (l *Lock) Name() string { return l.name }

// Scope returns the lock scope.
func (l *Lock) Scope() Scope { return l.scope }

// Path returns the lock file of a cross-process lock, empty otherwise.
func (l *Lock) Path() string { return l.path }

// Held reports whether the lock is currently acquired through this Lock.
func (l *Lock) Held() bool {
	l.state.Lock()
	defer l.state.Unlock()
	return l.held
}

// Lock blocks until the lock is acquired.
func (l *Lock) Lock() error {
	return l.Acquire(context.Background())
}

// Acquire is Lock with a trace span. ctx is only checked before blocking;
// a waiting acquisition cannot be cancelled.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanLockAcquire)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrLockName, l.name)
	observability.SetSpanAttribute(ctx, observability.AttrLockScope, l.scope.String())

	if err := l.acquire(); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

func (l *Lock) acquire() error {
	l.mu.Lock()

	l.state.Lock()
	destroyed, file := l.destroyed, l.file
	l.state.Unlock()
	if destroyed {
		l.mu.Unlock()
		return errDestroyed()
	}

	// The file lock may wait on another process; state stays available
	// to Held and Destroy meanwhile.
	if file != nil {
		if err := lockFile(file); err != nil {
			l.mu.Unlock()
			return errors.FromOS("lock.acquire", err)
		}
	}

	l.state.Lock()
	defer l.state.Unlock()
	if l.destroyed {
		l.mu.Unlock()
		return errDestroyed()
	}
	l.held = true
	return nil
}

func errDestroyed() error {
	return errors.InvalidInput("lock", "lock is destroyed").WithOp("lock.acquire")
}

// Unlock releases the lock. It does nothing if the lock is not held.
func (l *Lock) Unlock() error {
	l.state.Lock()
	defer l.state.Unlock()
	return l.unlockLocked()
}

func (l *Lock) unlockLocked() error {
	if !l.held {
		return nil
	}
	l.held = false
	var err error
	if l.file != nil {
		if uerr := unlockFile(l.file); uerr != nil {
			err = errors.FromOS("lock.release", uerr)
		}
	}
	l.mu.Unlock()
	return err
}

// Destroy releases the lock if held and closes its OS handle. Later calls
// return the first result.
func (l *Lock) Destroy() error {
	return l.arena.Run(l.cleanup)
}

func (l *Lock) release() error {
	l.state.Lock()
	defer l.state.Unlock()
	l.destroyed = true
	err := l.unlockLocked()
	if l.file != nil {
		if cerr := l.file.Close(); cerr != nil && err == nil {
			err = errors.FromOS("lock.destroy", cerr)
		}
		l.file = nil
	}
	l.log.Debug("lock destroyed")
	return err
}
