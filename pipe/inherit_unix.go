//go:build unix

package pipe

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/kbukum/osal/errors"
)

// SetNoInherit marks f close-on-exec so spawned children do not receive it.
// The descriptor is reached through SyscallConn so f keeps its
// non-blocking mode.
func SetNoInherit(f *os.File) error {
	return control(f, "pipe.set_no_inherit", func(fd uintptr) error {
		_, err := unix.FcntlInt(fd, unix.F_SETFD, unix.FD_CLOEXEC)
		return err
	})
}

// Inheritable reports whether f would be inherited by a spawned child.
func Inheritable(f *os.File) (bool, error) {
	var flags int
	err := control(f, "pipe.inheritable", func(fd uintptr) error {
		var err error
		flags, err = unix.FcntlInt(fd, unix.F_GETFD, 0)
		return err
	})
	if err != nil {
		return false, err
	}
	return flags&unix.FD_CLOEXEC == 0, nil
}

func control(f *os.File, op string, fn func(fd uintptr) error) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return errors.FromOS(op, err)
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) { opErr = fn(fd) }); err != nil {
		return errors.FromOS(op, err)
	}
	if opErr != nil {
		return errors.FromOS(op, opErr)
	}
	return nil
}
