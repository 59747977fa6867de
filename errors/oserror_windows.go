//go:build windows

package errors

import (
	"syscall"

	"golang.org/x/sys/windows"
)

var platformCodes = map[syscall.Errno]ErrorCode{
	windows.ERROR_NOT_ENOUGH_MEMORY:   ErrCodeOutOfMemory,
	windows.ERROR_OUTOFMEMORY:         ErrCodeOutOfMemory,
	windows.ERROR_TOO_MANY_OPEN_FILES: ErrCodeOutOfResources,
	windows.ERROR_NO_PROC_SLOTS:       ErrCodeOutOfResources,
	windows.ERROR_FILE_NOT_FOUND:      ErrCodeNotFound,
	windows.ERROR_PATH_NOT_FOUND:      ErrCodeNotFound,
	windows.ERROR_DIRECTORY:           ErrCodeNotFound,
	windows.ERROR_ALREADY_EXISTS:      ErrCodeAlreadyExists,
	windows.ERROR_FILE_EXISTS:         ErrCodeAlreadyExists,
	windows.ERROR_ACCESS_DENIED:       ErrCodePermissionDenied,
	windows.ERROR_INVALID_HANDLE:      ErrCodeInvalidInput,
	windows.ERROR_INVALID_PARAMETER:   ErrCodeInvalidInput,
	windows.ERROR_BAD_EXE_FORMAT:      ErrCodeInvalidInput,
	windows.ERROR_WAIT_NO_CHILDREN:    ErrCodeNoSuchProcess,
	windows.ERROR_NOT_SUPPORTED:       ErrCodeNotSupported,
}
