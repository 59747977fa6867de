//go:build windows

package process

import (
	stderrors "errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/kbukum/osal/pipe"
)

const defaultShellFlag = "/c"

var stdHandleIDs = [...]uint32{
	StreamIn:  windows.STD_INPUT_HANDLE,
	StreamOut: windows.STD_OUTPUT_HANDLE,
	StreamErr: windows.STD_ERROR_HANDLE,
}

// windowsSystem keeps the process handles returned by StartProcess so Wait
// and Kill can use them without reopening the process.
type windowsSystem struct {
	mu    sync.Mutex
	procs map[int]windows.Handle
}

func newOSSystem() System {
	return &windowsSystem{procs: make(map[int]windows.Handle)}
}

// SaveStd returns the installed handle itself. SetStdHandle stores the
// value it is given, so the saved handle must stay open to be reinstalled.
func (*windowsSystem) SaveStd(s StdStream) (uintptr, error) {
	h, err := windows.GetStdHandle(stdHandleIDs[s])
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (*windowsSystem) InstallStd(s StdStream, h uintptr) error {
	return windows.SetStdHandle(stdHandleIDs[s], windows.Handle(h))
}

func (*windowsSystem) ReleaseSaved(StdStream, uintptr) error { return nil }

func (*windowsSystem) SetNoInherit(f *os.File) error {
	return pipe.SetNoInherit(f)
}

func (*windowsSystem) ResetChildSignal() {}

func (*windowsSystem) Getwd() (string, error) { return os.Getwd() }

func (*windowsSystem) Chdir(dir string) error { return os.Chdir(dir) }

func (w *windowsSystem) Spawn(path string, argv, env []string) (int, error) {
	resolved, err := resolveProgram(path)
	if err != nil {
		return 0, err
	}
	files := make([]uintptr, len(stdHandleIDs))
	for i, id := range stdHandleIDs {
		h, err := windows.GetStdHandle(id)
		if err != nil {
			return 0, err
		}
		files[i] = uintptr(h)
	}
	pid, handle, err := syscall.StartProcess(resolved, argv, &syscall.ProcAttr{
		Env:   env,
		Files: files,
	})
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	w.procs[pid] = windows.Handle(handle)
	w.mu.Unlock()
	return pid, nil
}

func (w *windowsSystem) Wait(pid int, nohang bool) (int, ExitStatus, error) {
	h, err := w.handle(pid)
	if err != nil {
		return -1, ExitStatus{}, err
	}
	timeout := uint32(windows.INFINITE)
	if nohang {
		timeout = 0
	}
	event, err := windows.WaitForSingleObject(h, timeout)
	if err != nil {
		return -1, ExitStatus{}, err
	}
	if event == uint32(windows.WAIT_TIMEOUT) {
		return 0, ExitStatus{}, nil
	}
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return -1, ExitStatus{}, err
	}
	w.forget(pid)
	return pid, ExitStatus{Code: int(code)}, nil
}

// Terminate has no console-less graceful form, so it kills.
func (w *windowsSystem) Terminate(pid int) error { return w.Kill(pid) }

func (w *windowsSystem) Kill(pid int) error {
	h, err := w.handle(pid)
	if err != nil {
		return err
	}
	return windows.TerminateProcess(h, 1)
}

func (*windowsSystem) Shell() (string, string) {
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec, defaultShellFlag
	}
	return "cmd.exe", defaultShellFlag
}

func (w *windowsSystem) handle(pid int) (windows.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if h, ok := w.procs[pid]; ok {
		return h, nil
	}
	access := uint32(windows.SYNCHRONIZE | windows.PROCESS_QUERY_LIMITED_INFORMATION | windows.PROCESS_TERMINATE)
	h, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return 0, err
	}
	w.procs[pid] = h
	return h, nil
}

func (w *windowsSystem) forget(pid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if h, ok := w.procs[pid]; ok {
		_ = windows.CloseHandle(h)
		delete(w.procs, pid)
	}
}

func isBrokenPipe(err error) bool {
	return stderrors.Is(err, windows.ERROR_BROKEN_PIPE) || stderrors.Is(err, windows.ERROR_NO_DATA)
}

func resolveProgram(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return name, nil
	}
	resolved, err := exec.LookPath(name)
	if err != nil && !stderrors.Is(err, exec.ErrDot) {
		return "", &fs.PathError{Op: "exec", Path: name, Err: syscall.ERROR_FILE_NOT_FOUND}
	}
	return resolved, nil
}
