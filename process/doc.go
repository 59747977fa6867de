// Package process creates and reaps child processes.
//
// A child is described by Attributes (standard stream pipes, working
// directory, direct or shell execution) and started by a Launcher:
//
//	attr := process.NewAttributes(a)
//	if err := attr.SetIO(false, true, false); err != nil {
//		return err
//	}
//	h, err := process.Launch(ctx, "echo", []string{"echo", "hi"}, nil, attr)
//	if err != nil {
//		return err
//	}
//	out, _ := io.ReadAll(h.Stdout())
//	res, err := h.Wait(process.Blocking)
//
// Standard stream slots and the working directory belong to the whole
// process. A launch that redirects a stream or sets a directory installs
// the child's view on those slots, spawns, and restores them, all while
// holding a process-wide exclusion shared by every Launcher. Launches that
// change neither never take it. Other goroutines writing to os.Stdout or
// os.Stderr during such a window write into the child's pipe.
//
// Wait has a Blocking and an Immediate mode and no timeout; Run shows how
// to poll with a deadline.
package process
