package process

import "sync"

// launchExclusion serializes every launch that mutates process-wide state
// (standard stream slots, working directory). It is shared by all
// launchers in the process unless one is given its own with WithExclusion.
var launchExclusion sync.Mutex

// exclusion holds a sync.Locker for the lifetime of a launch. release is
// safe to call more than once and on a guard that never acquired.
type exclusion struct {
	l    sync.Locker
	held bool
}

func acquire(l sync.Locker) *exclusion {
	l.Lock()
	return &exclusion{l: l, held: true}
}

func (e *exclusion) release() {
	if e == nil || !e.held {
		return
	}
	e.held = false
	e.l.Unlock()
}
