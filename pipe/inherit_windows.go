//go:build windows

package pipe

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/kbukum/osal/errors"
)

// SetNoInherit clears the inherit flag on f's handle.
func SetNoInherit(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return errors.FromOS("pipe.set_no_inherit", err)
	}
	var opErr error
	err = rc.Control(func(h uintptr) {
		opErr = windows.SetHandleInformation(windows.Handle(h), windows.HANDLE_FLAG_INHERIT, 0)
	})
	if err == nil {
		err = opErr
	}
	if err != nil {
		return errors.FromOS("pipe.set_no_inherit", err)
	}
	return nil
}
