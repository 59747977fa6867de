package process

import (
	"fmt"
	"os"
	"syscall"
)

// StdStream identifies one of the three standard stream slots of the
// calling process.
type StdStream int

const (
	StreamIn StdStream = iota
	StreamOut
	StreamErr
)

// String returns the conventional name of the stream.
func (s StdStream) String() string {
	switch s {
	case StreamIn:
		return "stdin"
	case StreamOut:
		return "stdout"
	case StreamErr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// ExitStatus is the state a child reported when it was reaped.
type ExitStatus struct {
	// Code is the exit code, or -1 when the child was signalled or stopped.
	Code int
	// Signal is the terminating or stopping signal, zero if none.
	Signal syscall.Signal
	// Stopped is set when the child was stopped rather than terminated.
	Stopped bool
}

// Success reports whether the child exited normally with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0 && !s.Stopped
}

// String formats the status for logs.
func (s ExitStatus) String() string {
	switch {
	case s.Stopped:
		return fmt.Sprintf("stopped (%v)", s.Signal)
	case s.Signal != 0:
		return fmt.Sprintf("signal: %v", s.Signal)
	default:
		return fmt.Sprintf("exit status %d", s.Code)
	}
}

// System is the set of platform primitives the launcher and waiter are
// built on. Production code uses the implementation returned by
// DefaultSystem; tests substitute an instrumented fake.
type System interface {
	// SaveStd returns a private copy of the handle currently installed in
	// slot s. The copy is not inherited by children.
	SaveStd(s StdStream) (uintptr, error)
	// InstallStd makes slot s refer to handle h.
	InstallStd(s StdStream, h uintptr) error
	// ReleaseSaved frees a handle obtained from SaveStd once it has been
	// reinstalled.
	ReleaseSaved(s StdStream, h uintptr) error
	// SetNoInherit keeps f out of spawned children.
	SetNoInherit(f *os.File) error
	// ResetChildSignal restores the default disposition of the
	// child-termination signal.
	ResetChildSignal()
	Getwd() (string, error)
	Chdir(dir string) error
	// Spawn starts path with argv and env without waiting for it. The child
	// inherits the current standard stream slots and working directory.
	Spawn(path string, argv, env []string) (int, error)
	// Wait reaps pid. With nohang set it returns pid 0 while the child is
	// still running.
	Wait(pid int, nohang bool) (int, ExitStatus, error)
	// Terminate asks pid to exit. On platforms without a polite request it
	// is the same as Kill.
	Terminate(pid int) error
	// Kill terminates pid forcibly.
	Kill(pid int) error
	// Shell returns the command interpreter and its run-a-string flag.
	Shell() (path, flag string)
}

var defaultSystem System = newOSSystem()

// DefaultSystem returns the System backed by the host operating system.
func DefaultSystem() System { return defaultSystem }
