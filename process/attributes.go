package process

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/pipe"
)

// createPipe is replaced in tests to simulate descriptor exhaustion.
var createPipe = pipe.Create

// CommandMode selects how the program name and arguments are interpreted.
type CommandMode int

const (
	// DirectProgram executes the named program with the arguments as given.
	DirectProgram CommandMode = iota
	// ShellCommand runs the arguments through the platform command
	// interpreter.
	ShellCommand
)

// String returns the mode name used in logs and spans.
func (m CommandMode) String() string {
	switch m {
	case DirectProgram:
		return "direct"
	case ShellCommand:
		return "shell"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Attributes accumulates the configuration of a child before launch.
// It is not safe for concurrent use and is logically consumed by Launch:
// do not mutate it while a launch using it is in progress.
type Attributes struct {
	arena *arena.Arena
	in    *pipe.Pipe
	out   *pipe.Pipe
	err   *pipe.Pipe
	dir   string
	mode  CommandMode
}

// NewAttributes returns attributes with no redirection, no working
// directory and DirectProgram mode. Pipes created later are owned by a;
// a nil arena gives the attributes a private one.
func NewAttributes(a *arena.Arena) *Attributes {
	if a == nil {
		a = arena.New(nil)
	}
	return &Attributes{arena: a, mode: DirectProgram}
}

// SetIO creates a pipe for each requested standard stream. On failure the
// pairs created before the failing one stay assigned and the error is
// OUT_OF_RESOURCES; do not call SetIO again on the same attributes.
// Requesting a stream that already has a pipe is INVALID_INPUT.
func (a *Attributes) SetIO(in, out, err bool) error {
	slots := []struct {
		want bool
		pair **pipe.Pipe
		name string
	}{
		{in, &a.in, "stdin"},
		{out, &a.out, "stdout"},
		{err, &a.err, "stderr"},
	}
	for _, s := range slots {
		if s.want && *s.pair != nil {
			return errors.InvalidInput(s.name, "already redirected").WithOp("process.set_io")
		}
	}
	for _, s := range slots {
		if !s.want {
			continue
		}
		p, perr := createPipe(a.arena)
		if perr != nil {
			if appErr, ok := errors.AsAppError(perr); ok {
				return appErr.WithOp("process.set_io").WithDetail("stream", s.name)
			}
			return errors.OutOfResources(s.name+" pipe", perr).WithOp("process.set_io")
		}
		*s.pair = p
	}
	return nil
}

// SetDir sets the working directory the child starts in. An empty path
// restores the default of inheriting the caller's directory.
func (a *Attributes) SetDir(path string) error {
	if strings.IndexByte(path, 0) >= 0 {
		return errors.InvalidInput("dir", "contains a NUL byte").WithOp("process.set_dir")
	}
	a.dir = strings.Clone(path)
	return nil
}

// SetCommandMode selects direct or shell execution.
func (a *Attributes) SetCommandMode(mode CommandMode) {
	a.mode = mode
}

// Dir returns the configured working directory, empty when inherited.
func (a *Attributes) Dir() string { return a.dir }

// Mode returns the configured command mode.
func (a *Attributes) Mode() CommandMode { return a.mode }

// Redirections returns how many standard streams are redirected.
func (a *Attributes) Redirections() int {
	return len(a.redirections())
}

// Close closes every pipe end still open, parent and child side.
func (a *Attributes) Close() error {
	var errs []error
	for _, p := range []*pipe.Pipe{a.in, a.out, a.err} {
		if p != nil {
			errs = append(errs, p.Close())
		}
	}
	return stderrors.Join(errs...)
}

// parentIn and friends return the parent-side ends, nil when the stream
// was not redirected.
func (a *Attributes) parentIn() *os.File {
	if a == nil || a.in == nil {
		return nil
	}
	return a.in.Write
}

func (a *Attributes) parentOut() *os.File {
	if a == nil || a.out == nil {
		return nil
	}
	return a.out.Read
}

func (a *Attributes) parentErr() *os.File {
	if a == nil || a.err == nil {
		return nil
	}
	return a.err.Read
}

// closeParentIn signals end of input to the child.
func (a *Attributes) closeParentIn() error {
	if a == nil || a.in == nil {
		return nil
	}
	return a.in.CloseWrite()
}

// closeParentReads closes the parent ends of the output pipes, ending any
// read still blocked on them.
func (a *Attributes) closeParentReads() error {
	var errs []error
	for _, p := range []*pipe.Pipe{a.out, a.err} {
		if p != nil {
			errs = append(errs, p.CloseRead())
		}
	}
	return stderrors.Join(errs...)
}

// redirection describes one standard stream handed to the child.
type redirection struct {
	stream     StdStream
	child      *os.File
	parent     *os.File
	closeChild func() error
}

func (a *Attributes) redirections() []redirection {
	var rs []redirection
	if a.in != nil {
		rs = append(rs, redirection{StreamIn, a.in.Read, a.in.Write, a.in.CloseRead})
	}
	if a.out != nil {
		rs = append(rs, redirection{StreamOut, a.out.Write, a.out.Read, a.out.CloseWrite})
	}
	if a.err != nil {
		rs = append(rs, redirection{StreamErr, a.err.Write, a.err.Read, a.err.CloseWrite})
	}
	return rs
}

// touchesProcessState reports whether launching with these attributes
// mutates process-wide state and so needs the launch exclusion.
func (a *Attributes) touchesProcessState() bool {
	return a.in != nil || a.out != nil || a.err != nil || a.dir != ""
}
