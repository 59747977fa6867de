package process

import (
	"io"
	"time"
)

// Command configures a one-shot subprocess for Run.
type Command struct {
	// Binary is the executable path or name (resolved via PATH). It is
	// ignored when Shell is set.
	Binary string
	// Args are the command-line arguments after the program name. With
	// Shell set they follow the interpreter's run-a-string flag.
	Args []string
	// Shell runs Args through the platform command interpreter.
	Shell bool
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is the complete child environment. Nil inherits os.Environ.
	Env map[string]string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// PollInterval is how often the child is polled for exit.
	// Defaults to 10 milliseconds if zero.
	PollInterval time.Duration
	// GracePeriod is how long a cancelled child has between the
	// termination request and the forced kill. It also bounds how long
	// output is read after the child is reaped, since descendants may
	// still hold the pipes. Defaults to 5 seconds if zero.
	GracePeriod time.Duration
}
