// Package pipe creates connected pipe endpoint pairs for child stream wiring.
package pipe

import (
	stderrors "errors"
	"os"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
)

// Pipe is a connected endpoint pair. Bytes written to Write are read from Read.
// Both ends are created close-on-exec and are owned by the arena passed to Create.
type Pipe struct {
	Read  *os.File
	Write *os.File

	arena  *arena.Arena
	rClose *arena.Cleanup
	wClose *arena.Cleanup
}

// Create allocates a new pipe. Both ends are registered on a so they are
// closed when the arena is destroyed; a nil arena gives the pipe a private one.
func Create(a *arena.Arena) (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.OutOfResources("pipe", err).WithOp("pipe.create")
	}
	if a == nil {
		a = arena.New(nil)
	}
	return &Pipe{
		Read:   r,
		Write:  w,
		arena:  a,
		rClose: a.Register("pipe read end", closeFile(r)),
		wClose: a.Register("pipe write end", closeFile(w)),
	}, nil
}

// CloseRead closes the read end. Repeated calls return the first result.
func (p *Pipe) CloseRead() error {
	return p.arena.Run(p.rClose)
}

// CloseWrite closes the write end. Repeated calls return the first result.
func (p *Pipe) CloseWrite() error {
	return p.arena.Run(p.wClose)
}

// Close closes both ends.
func (p *Pipe) Close() error {
	return stderrors.Join(p.CloseRead(), p.CloseWrite())
}

// closeFile treats an end already closed through its *os.File as released.
func closeFile(f *os.File) arena.CleanupFunc {
	return func() error {
		if err := f.Close(); err != nil && !stderrors.Is(err, os.ErrClosed) {
			return errors.FromOS("pipe.close", err)
		}
		return nil
	}
}
