// Package dir enumerates and manages directories.
//
// A Dir is opened on an arena and yields one Entry per Read until io.EOF.
// Rewind restarts the enumeration. The "." and ".." entries are never
// reported. All OS failures are mapped through errors.FromOS.
package dir

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
	"github.com/kbukum/osal/observability"
)

// batchSize bounds the entries fetched from the OS per refill.
const batchSize = 64

// Type classifies a directory entry.
type Type int

const (
	Unknown Type = iota
	Regular
	Directory
	Symlink
	Pipe
	Socket
	Device
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case Regular:
		return "regular"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	case Pipe:
		return "pipe"
	case Socket:
		return "socket"
	case Device:
		return "device"
	default:
		return "unknown"
	}
}

func typeOf(m fs.FileMode) Type {
	switch {
	case m.IsRegular():
		return Regular
	case m.IsDir():
		return Directory
	case m&fs.ModeSymlink != 0:
		return Symlink
	case m&fs.ModeNamedPipe != 0:
		return Pipe
	case m&fs.ModeSocket != 0:
		return Socket
	case m&fs.ModeDevice != 0:
		return Device
	default:
		return Unknown
	}
}

// Entry describes one directory member. Symlinks are not followed.
type Entry struct {
	Name    string
	Type    Type
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// Dir is an open directory.
type Dir struct {
	path string

	mu      sync.Mutex
	f       *os.File
	pending []fs.DirEntry
	eof     bool

	arena   *arena.Arena
	cleanup *arena.Cleanup
}

// Open opens path for enumeration. The handle is closed when a is
// destroyed if Close was not called first.
func Open(a *arena.Arena, path string) (*Dir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FromOS("dir.open", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.FromOS("dir.open", err)
	}
	if !info.IsDir() {
		_ = f.Close()
		return nil, errors.InvalidInput("path", fmt.Sprintf("%s is not a directory", path)).WithOp("dir.open")
	}
	if a == nil {
		a = arena.New(nil)
	}
	d := &Dir{path: path, f: f, arena: a}
	d.cleanup = a.Register("dir "+path, d.release)
	return d, nil
}

// Path returns the path the directory was opened with.
func (d *Dir) Path() string { return d.path }

// Read returns the next entry, or io.EOF once the directory is exhausted.
// An entry removed between listing and stat is skipped.
func (d *Dir) Read() (Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return Entry{}, errors.InvalidInput("dir", "directory is closed").WithOp("dir.read")
	}
	for {
		if len(d.pending) == 0 {
			if d.eof {
				return Entry{}, io.EOF
			}
			if err := d.fill(); err != nil {
				return Entry{}, err
			}
			continue
		}
		de := d.pending[0]
		d.pending = d.pending[1:]
		info, err := de.Info()
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Entry{}, errors.FromOS("dir.read", err)
		}
		return Entry{
			Name:    de.Name(),
			Type:    typeOf(info.Mode()),
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
		}, nil
	}
}

func (d *Dir) fill() error {
	entries, err := d.f.ReadDir(batchSize)
	d.pending = entries
	if err == io.EOF {
		d.eof = true
		return nil
	}
	if err != nil {
		return errors.FromOS("dir.read", err)
	}
	return nil
}

// Rewind restarts the enumeration from the first entry.
func (d *Dir) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return errors.InvalidInput("dir", "directory is closed").WithOp("dir.rewind")
	}
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return errors.FromOS("dir.rewind", err)
	}
	d.pending = nil
	d.eof = false
	return nil
}

// Close releases the directory handle. Closing twice is a no-op.
func (d *Dir) Close() error {
	return d.arena.Run(d.cleanup)
}

func (d *Dir) release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	d.pending = nil
	if err != nil {
		return errors.FromOS("dir.close", err)
	}
	return nil
}

// Make creates a single directory. The parent must exist.
func Make(path string, perm fs.FileMode) error {
	if err := os.Mkdir(path, perm); err != nil {
		return errors.FromOS("dir.make", err)
	}
	return nil
}

// MakeAll creates path and any missing parents. An existing directory is
// success; an existing non-directory is ALREADY_EXISTS.
func MakeAll(path string, perm fs.FileMode) error {
	return MakeAllContext(context.Background(), path, perm)
}

// MakeAllContext is MakeAll with a trace span.
func MakeAllContext(ctx context.Context, path string, perm fs.FileMode) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanDirMakeAll)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrPath, path)

	if err := os.MkdirAll(path, perm); err != nil {
		observability.SetSpanError(ctx, err)
		if stderrors.Is(err, syscall.ENOTDIR) {
			return errors.AlreadyExists(path).WithOp("dir.make_all").WithCause(err)
		}
		return errors.FromOS("dir.make_all", err)
	}
	logger.Get("dir").Debug("directory ensured", logger.Fields(logger.FieldPath, path))
	return nil
}

// Remove deletes an empty directory.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.FromOS("dir.remove", err)
	}
	return nil
}
