//go:build !windows

package errors

import "syscall"

var platformCodes = map[syscall.Errno]ErrorCode{}
