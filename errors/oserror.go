package errors

import (
	stderrors "errors"
	"io/fs"
	"syscall"
)

var errnoCodes = map[syscall.Errno]ErrorCode{
	syscall.ENOMEM:       ErrCodeOutOfMemory,
	syscall.EMFILE:       ErrCodeOutOfResources,
	syscall.ENFILE:       ErrCodeOutOfResources,
	syscall.EAGAIN:       ErrCodeOutOfResources,
	syscall.ENOSPC:       ErrCodeOutOfResources,
	syscall.ENOENT:       ErrCodeNotFound,
	syscall.ENOTDIR:      ErrCodeNotFound,
	syscall.EEXIST:       ErrCodeAlreadyExists,
	syscall.EACCES:       ErrCodePermissionDenied,
	syscall.EPERM:        ErrCodePermissionDenied,
	syscall.ECHILD:       ErrCodeNoSuchProcess,
	syscall.ESRCH:        ErrCodeNoSuchProcess,
	syscall.EINVAL:       ErrCodeInvalidInput,
	syscall.ENAMETOOLONG: ErrCodeInvalidInput,
	syscall.EBADF:        ErrCodeInvalidInput,
	syscall.ENOSYS:       ErrCodeNotSupported,
}

var codeMessages = map[ErrorCode]string{
	ErrCodeOutOfMemory:      "not enough memory",
	ErrCodeOutOfResources:   "the system is out of handles or descriptors",
	ErrCodeNotFound:         "no such file or directory",
	ErrCodeAlreadyExists:    "object already exists",
	ErrCodePermissionDenied: "permission denied",
	ErrCodeNoSuchProcess:    "no such process",
	ErrCodeInvalidInput:     "invalid argument",
	ErrCodeNotSupported:     "operation not supported",
	ErrCodeInternal:         "unexpected operating system error",
}

// Classify returns the portable code for a raw OS error.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		if code, ok := platformCodes[errno]; ok {
			return code
		}
		if code, ok := errnoCodes[errno]; ok {
			return code
		}
	}
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case stderrors.Is(err, fs.ErrExist):
		return ErrCodeAlreadyExists
	case stderrors.Is(err, fs.ErrPermission):
		return ErrCodePermissionDenied
	case stderrors.Is(err, fs.ErrInvalid), stderrors.Is(err, fs.ErrClosed):
		return ErrCodeInvalidInput
	}
	return ErrCodeInternal
}

// FromOS translates a raw OS error into an AppError tagged with op.
// A nil error stays nil and an AppError passes through, gaining op if it had none.
func FromOS(op string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		if appErr.Op == "" {
			appErr.Op = op
		}
		return appErr
	}
	code := Classify(err)
	return &AppError{
		Code:      code,
		Message:   codeMessages[code],
		Op:        op,
		Retryable: IsRetryableCode(code),
		Cause:     err,
	}
}
