//go:build unix

package pipe_test

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kbukum/osal/pipe"
)

func TestCreate_EndsAreNotInheritable(t *testing.T) {
	p, err := pipe.Create(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	for name, f := range map[string]interface{ Fd() uintptr }{"read": p.Read, "write": p.Write} {
		flags, err := unix.FcntlInt(f.Fd(), unix.F_GETFD, 0)
		if err != nil {
			t.Fatalf("%s: fcntl: %v", name, err)
		}
		if flags&unix.FD_CLOEXEC == 0 {
			t.Errorf("%s end should be close-on-exec", name)
		}
	}
}

func TestSetNoInherit(t *testing.T) {
	p, err := pipe.Create(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if _, err := unix.FcntlInt(p.Read.Fd(), unix.F_SETFD, 0); err != nil {
		t.Fatalf("clear cloexec: %v", err)
	}
	inherit, err := pipe.Inheritable(p.Read)
	if err != nil {
		t.Fatalf("inheritable: %v", err)
	}
	if !inherit {
		t.Fatal("expected read end to be inheritable after clearing the flag")
	}

	if err := pipe.SetNoInherit(p.Read); err != nil {
		t.Fatalf("set no inherit: %v", err)
	}
	inherit, err = pipe.Inheritable(p.Read)
	if err != nil {
		t.Fatalf("inheritable: %v", err)
	}
	if inherit {
		t.Fatal("expected read end to be non-inheritable")
	}
}
