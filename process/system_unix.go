//go:build unix

package process

import (
	stderrors "errors"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/kbukum/osal/pipe"
)

const (
	defaultShellPath = "/bin/sh"
	defaultShellFlag = "-c"
)

type unixSystem struct{}

func newOSSystem() System { return unixSystem{} }

func (unixSystem) SaveStd(s StdStream) (uintptr, error) {
	// Duplicate above the std range, close-on-exec, so the copy never
	// reaches a child.
	fd, err := unix.FcntlInt(uintptr(s), unix.F_DUPFD_CLOEXEC, 3)
	if err != nil {
		return 0, err
	}
	return uintptr(fd), nil
}

func (unixSystem) InstallStd(s StdStream, h uintptr) error {
	if h == uintptr(s) {
		return nil
	}
	return unix.Dup2(int(h), int(s))
}

func (unixSystem) ReleaseSaved(_ StdStream, h uintptr) error {
	return unix.Close(int(h))
}

func (unixSystem) SetNoInherit(f *os.File) error {
	return pipe.SetNoInherit(f)
}

func (unixSystem) ResetChildSignal() {
	signal.Reset(syscall.SIGCHLD)
}

func (unixSystem) Getwd() (string, error) {
	return unix.Getwd()
}

func (unixSystem) Chdir(dir string) error {
	return unix.Chdir(dir)
}

func (unixSystem) Spawn(path string, argv, env []string) (int, error) {
	resolved, err := resolveProgram(path)
	if err != nil {
		return 0, err
	}
	return syscall.ForkExec(resolved, argv, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{0, 1, 2},
	})
}

func (unixSystem) Wait(pid int, nohang bool) (int, ExitStatus, error) {
	options := unix.WUNTRACED
	if nohang {
		options |= unix.WNOHANG
	}
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, ExitStatus{}, err
		}
		if wpid == 0 {
			return 0, ExitStatus{}, nil
		}
		return wpid, statusOf(ws), nil
	}
}

func (unixSystem) Terminate(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func (unixSystem) Kill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

func (unixSystem) Shell() (string, string) {
	return defaultShellPath, defaultShellFlag
}

func isBrokenPipe(err error) bool {
	return stderrors.Is(err, unix.EPIPE)
}

func statusOf(ws unix.WaitStatus) ExitStatus {
	switch {
	case ws.Exited():
		return ExitStatus{Code: ws.ExitStatus()}
	case ws.Signaled():
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	case ws.Stopped():
		return ExitStatus{Code: -1, Signal: ws.StopSignal(), Stopped: true}
	default:
		return ExitStatus{Code: -1}
	}
}

// resolveProgram searches PATH for names without a slash. The lookup runs
// after the working directory switch so relative PATH entries resolve the
// way the child would see them.
func resolveProgram(name string) (string, error) {
	if strings.ContainsRune(name, '/') {
		return name, nil
	}
	resolved, err := exec.LookPath(name)
	if err != nil && !stderrors.Is(err, exec.ErrDot) {
		return "", &fs.PathError{Op: "exec", Path: name, Err: syscall.ENOENT}
	}
	return resolved, nil
}
