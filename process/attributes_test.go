package process

import (
	"strings"
	"syscall"
	"testing"

	"github.com/kbukum/osal/arena"
	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/pipe"
)

func TestNewAttributes_Defaults(t *testing.T) {
	attr := NewAttributes(nil)
	if attr.Mode() != DirectProgram {
		t.Errorf("expected DirectProgram, got %v", attr.Mode())
	}
	if attr.Dir() != "" || attr.Redirections() != 0 {
		t.Error("expected no dir and no redirection")
	}
	if attr.touchesProcessState() {
		t.Error("defaults must not need the launch exclusion")
	}
}

func TestSetIO(t *testing.T) {
	tests := []struct {
		name          string
		in, out, err  bool
		wantRedirects int
	}{
		{"none", false, false, false, 0},
		{"stdout", false, true, false, 1},
		{"stdin and stdout", true, true, false, 2},
		{"all", true, true, true, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := arena.New(nil)
			defer a.Destroy()
			attr := NewAttributes(a)
			if err := attr.SetIO(tc.in, tc.out, tc.err); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := attr.Redirections(); got != tc.wantRedirects {
				t.Errorf("expected %d redirections, got %d", tc.wantRedirects, got)
			}
			if a.Len() != 2*tc.wantRedirects {
				t.Errorf("expected %d pipe ends on the arena, got %d", 2*tc.wantRedirects, a.Len())
			}
		})
	}
}

func TestSetIO_AlreadyRedirected(t *testing.T) {
	attr := NewAttributes(nil)
	defer attr.Close()
	if err := attr.SetIO(false, true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := attr.SetIO(true, true, false)
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if attr.in != nil {
		t.Error("a rejected SetIO must not create any pipe")
	}
	if err := attr.SetIO(false, false, true); err != nil {
		t.Fatalf("a different stream should still be allowed: %v", err)
	}
}

func TestSetIO_PipeExhaustion(t *testing.T) {
	// Room for exactly one pipe, as with a nearly exhausted descriptor table.
	created := 0
	createPipe = func(a *arena.Arena) (*pipe.Pipe, error) {
		if created == 1 {
			return nil, errors.OutOfResources("pipe", syscall.EMFILE).WithOp("pipe.create")
		}
		created++
		return pipe.Create(a)
	}
	t.Cleanup(func() { createPipe = pipe.Create })

	a := arena.New(nil)
	defer a.Destroy()
	attr := NewAttributes(a)
	err := attr.SetIO(true, true, true)
	if !errors.HasCode(err, errors.ErrCodeOutOfResources) {
		t.Fatalf("expected OUT_OF_RESOURCES, got %v", err)
	}
	if attr.in == nil {
		t.Error("the pair created before the failure must stay assigned")
	}
	if attr.out != nil || attr.err != nil {
		t.Error("no pair may be assigned from the failing request onwards")
	}
	if attr.Redirections() != 1 || a.Len() != 2 {
		t.Errorf("expected one redirection and two pipe ends, got %d and %d", attr.Redirections(), a.Len())
	}
	if n := strings.Count(err.Error(), string(errors.ErrCodeOutOfResources)); n != 1 {
		t.Errorf("expected the code once in %q", err.Error())
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Op != "process.set_io" || appErr.Details["stream"] != "stdout" {
		t.Errorf("expected op process.set_io on stdout, got %s %v", appErr.Op, appErr.Details)
	}
}

func TestSetDir(t *testing.T) {
	attr := NewAttributes(nil)
	if err := attr.SetDir("/tmp/work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Dir() != "/tmp/work" || !attr.touchesProcessState() {
		t.Error("expected the directory to be recorded")
	}
	if err := attr.SetDir("bad\x00dir"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a NUL byte, got %v", err)
	}
	if attr.Dir() != "/tmp/work" {
		t.Error("a rejected dir must not replace the previous one")
	}
	if err := attr.SetDir(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.touchesProcessState() {
		t.Error("an empty dir restores inheritance")
	}
}

func TestSetCommandMode(t *testing.T) {
	attr := NewAttributes(nil)
	attr.SetCommandMode(ShellCommand)
	if attr.Mode() != ShellCommand {
		t.Fatalf("expected ShellCommand, got %v", attr.Mode())
	}
	if ShellCommand.String() != "shell" || DirectProgram.String() != "direct" {
		t.Error("unexpected mode names")
	}
}

func TestAttributes_Close(t *testing.T) {
	a := arena.New(nil)
	attr := NewAttributes(a)
	if err := attr.SetIO(true, true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := attr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := attr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("expected every pipe end released, %d pending", a.Len())
	}
	if !isClosed(attr.parentOut()) || !isClosed(attr.out.Write) {
		t.Error("expected both ends closed")
	}
}
