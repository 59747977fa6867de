// Package arena provides scoped resource regions.
//
// An Arena collects cleanup callbacks for the OS handles allocated on its
// behalf (pipe ends, lock files, directory handles). Destroy runs every
// outstanding cleanup in reverse registration order, after destroying any
// child arenas. Each cleanup runs at most once, whether it is triggered by
// Destroy or by an explicit Run.
package arena

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/osal/logger"
)

// CleanupFunc releases one resource.
type CleanupFunc func() error

// Cleanup is the registration token returned by Register.
type Cleanup struct {
	name string
	fn   CleanupFunc
	once sync.Once
	err  error
}

// Name returns the label the cleanup was registered with.
func (c *Cleanup) Name() string { return c.name }

func (c *Cleanup) run() error {
	c.once.Do(func() {
		c.err = c.fn()
		c.fn = nil
	})
	return c.err
}

// Arena is a scoped region owning cleanup callbacks and child arenas.
// It is safe for concurrent use.
type Arena struct {
	mu        sync.Mutex
	parent    *Arena
	children  []*Arena
	cleanups  []*Cleanup
	destroyed bool
	log       *logger.Logger
}

// New creates an arena. A non-nil parent destroys the new arena when the
// parent itself is destroyed. A child of an already destroyed parent is
// born destroyed, so cleanups registered on it run immediately.
func New(parent *Arena) *Arena {
	a := &Arena{log: logger.Get("arena")}
	if parent != nil {
		parent.mu.Lock()
		if parent.destroyed {
			a.destroyed = true
		} else {
			a.parent = parent
			parent.children = append(parent.children, a)
		}
		parent.mu.Unlock()
	}
	return a
}

// Register attaches fn to the arena. If the arena is already destroyed the
// cleanup runs immediately so the resource does not leak.
func (a *Arena) Register(name string, fn CleanupFunc) *Cleanup {
	c := &Cleanup{name: name, fn: fn}
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		if err := c.run(); err != nil {
			a.log.Warn("cleanup on destroyed arena failed", logger.ErrorFields(name, err))
		}
		return c
	}
	a.cleanups = append(a.cleanups, c)
	a.mu.Unlock()
	return c
}

// Run executes c now and unregisters it. Running a cleanup twice returns
// the first result without calling the function again.
func (a *Arena) Run(c *Cleanup) error {
	if c == nil {
		return nil
	}
	a.forget(c)
	return c.run()
}

// Kill unregisters c without running it. Use it when ownership of the
// resource moves elsewhere.
func (a *Arena) Kill(c *Cleanup) {
	if c == nil {
		return
	}
	a.forget(c)
}

func (a *Arena) forget(c *Cleanup) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, registered := range a.cleanups {
		if registered == c {
			a.cleanups = append(a.cleanups[:i], a.cleanups[i+1:]...)
			return
		}
	}
}

// Len returns the number of cleanups still pending.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cleanups)
}

// Destroyed reports whether Destroy has been called.
func (a *Arena) Destroyed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.destroyed
}

// Destroy destroys child arenas, then runs pending cleanups in reverse
// registration order. Every cleanup runs even if an earlier one fails; the
// failures are combined into the returned error. Calling Destroy again is a
// no-op.
func (a *Arena) Destroy() error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return nil
	}
	a.destroyed = true
	children := a.children
	cleanups := a.cleanups
	a.children = nil
	a.cleanups = nil
	a.mu.Unlock()

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		c := cleanups[i]
		if err := c.run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			a.log.Warn("cleanup failed", logger.ErrorFields(c.name, err))
		}
	}

	if a.parent != nil {
		a.parent.detach(a)
	}

	if len(errs) > 0 {
		return fmt.Errorf("arena: %d cleanup(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (a *Arena) detach(child *Arena) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, c := range a.children {
		if c == child {
			a.children = append(a.children[:i], a.children[i+1:]...)
			return
		}
	}
}
