package process

import "time"

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed.
	ExitCode int
	// Status is the full status reported when the child was reaped.
	Status ExitStatus
	// Duration is how long the process ran.
	Duration time.Duration
}

// ExitError reports a child that did not exit successfully.
type ExitError struct {
	Status ExitStatus
}

func (e *ExitError) Error() string {
	return "process: " + e.Status.String()
}
