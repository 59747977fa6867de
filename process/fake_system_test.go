package process

import (
	"os"
	"sync"
	"syscall"
	"time"
)

type spawnCall struct {
	path  string
	argv  []string
	env   []string
	dir   string
	slots map[StdStream]uintptr
}

type waitReply struct {
	pid    int
	status ExitStatus
	err    error
}

// fakeSystem records every primitive the launcher and waiter invoke. The
// standard slots start at 100, 101 and 102; saved copies are numbered from
// 1000 and resolve back to the slot value they captured.
type fakeSystem struct {
	mu sync.Mutex

	cwd      string
	chdirErr map[string]error
	getwdErr error

	slots      map[StdStream]uintptr
	saved      map[uintptr]uintptr
	nextSaved  uintptr
	released   []uintptr
	installErr error
	restoreErr error
	noInherit  int
	sigResets  int

	spawnErr   error
	spawnDelay time.Duration
	nextPid    int
	spawns     []spawnCall

	waits     int
	waitModes []bool
	replies   []waitReply
	kills     []int
	killErr   error
	terms     []int
	// exitOnTerm makes the next Immediate wait after Terminate report an
	// exit, as for a child that honours the request.
	exitOnTerm bool
	// exitOnKill drops queued replies on Kill so the next wait reaps.
	exitOnKill bool
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		cwd:       "/home/caller",
		chdirErr:  map[string]error{},
		slots:     map[StdStream]uintptr{StreamIn: 100, StreamOut: 101, StreamErr: 102},
		saved:     map[uintptr]uintptr{},
		nextSaved: 1000,
		nextPid:   4000,
	}
}

func (f *fakeSystem) SaveStd(s StdStream) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.nextSaved
	f.nextSaved++
	f.saved[h] = f.slots[s]
	return h, nil
}

func (f *fakeSystem) InstallStd(s StdStream, h uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if orig, ok := f.saved[h]; ok {
		if f.restoreErr != nil {
			return f.restoreErr
		}
		f.slots[s] = orig
		return nil
	}
	if f.installErr != nil {
		return f.installErr
	}
	f.slots[s] = h
	return nil
}

func (f *fakeSystem) ReleaseSaved(_ StdStream, h uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, h)
	f.released = append(f.released, h)
	return nil
}

func (f *fakeSystem) SetNoInherit(*os.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noInherit++
	return nil
}

func (f *fakeSystem) ResetChildSignal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigResets++
}

func (f *fakeSystem) Getwd() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cwd, f.getwdErr
}

func (f *fakeSystem) Chdir(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.chdirErr[dir]; err != nil {
		return err
	}
	f.cwd = dir
	return nil
}

func (f *fakeSystem) Spawn(path string, argv, env []string) (int, error) {
	f.mu.Lock()
	call := spawnCall{path: path, argv: argv, env: env, dir: f.cwd, slots: map[StdStream]uintptr{}}
	for k, v := range f.slots {
		call.slots[k] = v
	}
	delay := f.spawnDelay
	f.mu.Unlock()

	// Widen the window between observing state and returning so that an
	// unserialized launch would be caught changing it.
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cwd != call.dir {
		call.dir = "changed during spawn: " + f.cwd
	}
	f.spawns = append(f.spawns, call)
	if f.spawnErr != nil {
		return 0, f.spawnErr
	}
	f.nextPid++
	return f.nextPid, nil
}

func (f *fakeSystem) Wait(pid int, nohang bool) (int, ExitStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	f.waitModes = append(f.waitModes, nohang)
	if len(f.replies) == 0 {
		return pid, ExitStatus{}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.pid, r.status, r.err
}

func (f *fakeSystem) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, pid)
	if f.exitOnTerm {
		f.replies = []waitReply{{pid: pid, status: ExitStatus{Code: -1, Signal: syscall.SIGTERM}}}
	}
	return f.killErr
}

func (f *fakeSystem) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills = append(f.kills, pid)
	if f.exitOnKill {
		f.replies = []waitReply{{pid: pid, status: ExitStatus{Code: -1, Signal: syscall.SIGKILL}}}
	}
	return f.killErr
}

func (f *fakeSystem) Shell() (string, string) { return "/fake/sh", "-c" }

func (f *fakeSystem) spawnCalls() []spawnCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spawnCall(nil), f.spawns...)
}

// countingLocker counts acquisitions of the launch exclusion.
type countingLocker struct {
	mu    sync.Mutex
	count int
	held  bool
	stat  sync.Mutex
}

func (c *countingLocker) Lock() {
	c.mu.Lock()
	c.stat.Lock()
	c.count++
	c.held = true
	c.stat.Unlock()
}

func (c *countingLocker) Unlock() {
	c.stat.Lock()
	c.held = false
	c.stat.Unlock()
	c.mu.Unlock()
}

func (c *countingLocker) snapshot() (int, bool) {
	c.stat.Lock()
	defer c.stat.Unlock()
	return c.count, c.held
}
