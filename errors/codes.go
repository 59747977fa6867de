package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resource exhaustion (retryable once the pressure is gone)
const (
	// ErrCodeOutOfMemory indicates an allocation failure.
	ErrCodeOutOfMemory ErrorCode = "OUT_OF_MEMORY"
	// ErrCodeOutOfResources indicates the OS refused to create a pipe, handle or descriptor.
	ErrCodeOutOfResources ErrorCode = "OUT_OF_RESOURCES"
)

// Process lifecycle errors
const (
	// ErrCodeDirectorySwitchFailed indicates the working directory change before a spawn failed.
	ErrCodeDirectorySwitchFailed ErrorCode = "DIRECTORY_SWITCH_FAILED"
	// ErrCodeSpawnFailed indicates the OS process-creation primitive failed.
	ErrCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	// ErrCodeNoSuchProcess indicates an absent handle or an unknown child.
	ErrCodeNoSuchProcess ErrorCode = "NO_SUCH_PROCESS"
)

// Filesystem and object errors
const (
	// ErrCodeNotFound indicates the named file, directory or object does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the named object already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodePermissionDenied indicates the OS denied access.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// Caller errors
const (
	// ErrCodeInvalidInput indicates an argument the OS cannot accept.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotSupported indicates the operation is unavailable on this platform.
	ErrCodeNotSupported ErrorCode = "NOT_SUPPORTED"
)

// ErrCodeInternal indicates an OS error with no portable equivalent.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeOutOfMemory:    true,
	ErrCodeOutOfResources: true,
}

// IsRetryableCode returns true if the error code indicates a transient condition.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
