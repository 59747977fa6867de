package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the portable error type returned by every osal operation.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Op names the operation that failed, e.g. "pipe.create" or "process.launch".
	Op string `json:"op,omitempty"`
	// Retryable indicates the condition may clear without caller changes.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error, usually the raw OS error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	prefix := string(e.Code)
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithOp sets the failing operation and returns the receiver.
func (e *AppError) WithOp(op string) *AppError {
	e.Op = op
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// OutOfMemory creates an AppError for an allocation failure.
func OutOfMemory(what string) *AppError {
	return &AppError{
		Code: ErrCodeOutOfMemory, Message: fmt.Sprintf("not enough memory to allocate %s", what),
		Retryable: true,
	}
}

// OutOfResources creates an AppError for a refused pipe, handle or descriptor.
func OutOfResources(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeOutOfResources, Message: fmt.Sprintf("the system could not allocate a %s", resource),
		Retryable: true, Cause: cause,
		Details: map[string]any{"resource": resource},
	}
}

// DirectorySwitchFailed creates an AppError for a failed working-directory change.
func DirectorySwitchFailed(dir string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDirectorySwitchFailed, Message: fmt.Sprintf("cannot switch to directory %q", dir),
		Cause: cause, Details: map[string]any{"dir": dir},
	}
}

// SpawnFailed creates an AppError for a failed process creation.
func SpawnFailed(program string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSpawnFailed, Message: fmt.Sprintf("cannot start %s", program),
		Cause: cause, Details: map[string]any{"program": program},
	}
}

// NoSuchProcess creates an AppError for an absent handle or an unknown child.
func NoSuchProcess(pid int) *AppError {
	e := &AppError{Code: ErrCodeNoSuchProcess, Message: "no such process"}
	if pid > 0 {
		e.WithDetail("pid", pid)
	}
	return e
}

// NotFound creates an AppError for an object that does not exist.
func NotFound(name string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s does not exist", name),
		Details: map[string]any{"name": name},
	}
}

// AlreadyExists creates an AppError for an object that already exists.
func AlreadyExists(name string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s already exists", name),
		Details: map[string]any{"name": name},
	}
}

// PermissionDenied creates an AppError for an access the OS refused.
func PermissionDenied(name string) *AppError {
	return &AppError{
		Code: ErrCodePermissionDenied, Message: fmt.Sprintf("permission denied on %s", name),
		Details: map[string]any{"name": name},
	}
}

// InvalidInput creates an AppError for an argument the OS cannot accept.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// NotSupported creates an AppError for an operation this platform lacks.
func NotSupported(operation string) *AppError {
	return &AppError{
		Code: ErrCodeNotSupported, Message: fmt.Sprintf("%s is not supported on this platform", operation),
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates an AppError for an OS error with no portable equivalent.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "unexpected operating system error",
		Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
