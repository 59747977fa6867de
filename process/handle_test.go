package process

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/kbukum/osal/errors"
	"github.com/kbukum/osal/logger"
)

func TestWait_NilHandle(t *testing.T) {
	var h *Handle
	_, err := h.Wait(Blocking)
	if !errors.HasCode(err, errors.ErrCodeNoSuchProcess) {
		t.Fatalf("expected NO_SUCH_PROCESS, got %v", err)
	}
	if !errors.HasCode(h.Kill(), errors.ErrCodeNoSuchProcess) {
		t.Error("expected NO_SUCH_PROCESS from Kill on a nil handle")
	}
}

func TestWait_NotRunningSkipsSystem(t *testing.T) {
	sys := newFakeSystem()
	h := newHandle(sys, 12, nil, nil)
	h.running = false

	for _, mode := range []WaitMode{Blocking, Immediate} {
		res, err := h.Wait(mode)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res != AlreadyExited {
			t.Errorf("expected AlreadyExited, got %v", res)
		}
	}
	if sys.waits != 0 {
		t.Fatalf("the OS wait was called %d times", sys.waits)
	}
}

func TestWait_ImmediatePolling(t *testing.T) {
	sys := newFakeSystem()
	sys.replies = []waitReply{
		{pid: 0},
		{pid: 0},
		{pid: 7, status: ExitStatus{Code: 3}},
	}
	h := newHandle(sys, 7, nil, nil)

	want := []WaitResult{StillRunning, StillRunning, Exited, AlreadyExited, AlreadyExited, AlreadyExited}
	for i, w := range want {
		res, err := h.Wait(Immediate)
		if err != nil {
			t.Fatalf("poll %d: unexpected error: %v", i, err)
		}
		if res != w {
			t.Fatalf("poll %d: expected %v, got %v", i, w, res)
		}
	}
	if sys.waits != 3 {
		t.Errorf("expected 3 OS waits, got %d", sys.waits)
	}
	if !slices.Equal(sys.waitModes, []bool{true, true, true}) {
		t.Errorf("Immediate must not block: %v", sys.waitModes)
	}
	if h.Running() {
		t.Error("handle should not be running")
	}
	if h.ExitStatus().Code != 3 {
		t.Errorf("expected exit code 3, got %d", h.ExitStatus().Code)
	}
}

func TestWait_Blocking(t *testing.T) {
	sys := newFakeSystem()
	sys.replies = []waitReply{{pid: 9, status: ExitStatus{Code: -1, Signal: syscall.SIGKILL}}}
	h := newHandle(sys, 9, nil, nil)

	res, err := h.Wait(Blocking)
	if err != nil || res != Exited {
		t.Fatalf("expected Exited, got %v, %v", res, err)
	}
	if sys.waitModes[0] {
		t.Error("Blocking wait should not pass nohang")
	}
	if st := h.ExitStatus(); st.Signal != syscall.SIGKILL || st.Success() {
		t.Errorf("unexpected status %v", st)
	}
}

func TestWait_BlockingNoChildYet(t *testing.T) {
	sys := newFakeSystem()
	sys.replies = []waitReply{{pid: 0}}
	h := newHandle(sys, 9, nil, nil)

	res, err := h.Wait(Blocking)
	if err != nil || res != StillRunning {
		t.Fatalf("expected StillRunning, got %v, %v", res, err)
	}
	if !h.Running() {
		t.Error("handle should still be running")
	}
}

func TestWait_StoppedChild(t *testing.T) {
	sys := newFakeSystem()
	sys.replies = []waitReply{{pid: 5, status: ExitStatus{Code: -1, Signal: syscall.Signal(19), Stopped: true}}}
	h := newHandle(sys, 5, nil, nil)

	res, err := h.Wait(Blocking)
	if err != nil || res != Exited {
		t.Fatalf("expected Exited for a state change, got %v, %v", res, err)
	}
	if !h.ExitStatus().Stopped {
		t.Error("expected stopped status to be recorded")
	}
	if !strings.HasPrefix(h.ExitStatus().String(), "stopped") {
		t.Errorf("unexpected status string %q", h.ExitStatus())
	}
}

func TestWait_ErrorMapped(t *testing.T) {
	sys := newFakeSystem()
	sys.replies = []waitReply{{pid: -1, err: syscall.ECHILD}}
	h := newHandle(sys, 5, nil, nil)

	_, err := h.Wait(Immediate)
	if !errors.HasCode(err, errors.ErrCodeNoSuchProcess) {
		t.Fatalf("expected NO_SUCH_PROCESS, got %v", err)
	}
	if !h.Running() {
		t.Error("a failed wait must not mark the handle as exited")
	}
}

func TestTerminate(t *testing.T) {
	sys := newFakeSystem()
	h := newHandle(sys, 32, nil, nil)
	if err := h.Terminate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(sys.terms, []int{32}) || len(sys.kills) != 0 {
		t.Errorf("expected only a terminate of 32, got terms=%v kills=%v", sys.terms, sys.kills)
	}

	_, _ = h.Wait(Blocking)
	if !errors.HasCode(h.Terminate(), errors.ErrCodeNoSuchProcess) {
		t.Error("expected NO_SUCH_PROCESS after reaping")
	}
	var nilHandle *Handle
	if !errors.HasCode(nilHandle.Terminate(), errors.ErrCodeNoSuchProcess) {
		t.Error("expected NO_SUCH_PROCESS on a nil handle")
	}
}

func TestKill(t *testing.T) {
	sys := newFakeSystem()
	h := newHandle(sys, 31, nil, nil)
	if err := h.Kill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(sys.kills, []int{31}) {
		t.Errorf("expected kill of 31, got %v", sys.kills)
	}

	sys.killErr = syscall.ESRCH
	if !errors.HasCode(h.Kill(), errors.ErrCodeNoSuchProcess) {
		t.Error("expected ESRCH to map to NO_SUCH_PROCESS")
	}

	_, _ = h.Wait(Blocking)
	if !errors.HasCode(h.Kill(), errors.ErrCodeNoSuchProcess) {
		t.Error("expected NO_SUCH_PROCESS after reaping")
	}
}

func TestHandle_NoAttributes(t *testing.T) {
	h := newHandle(newFakeSystem(), 1, nil, nil)
	if h.Stdin() != nil || h.Stdout() != nil || h.Stderr() != nil {
		t.Error("a handle without attributes has no streams")
	}
	if err := h.CloseStdin(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if h.String() != "process(1, running)" {
		t.Errorf("unexpected string %q", h.String())
	}
}

func TestFork_ParentSide(t *testing.T) {
	sys := newFakeSystem()
	l, lock := newTestLauncher(sys)

	res, err := l.Fork(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Side != ParentSide {
		t.Fatalf("expected parent side, got %v", res.Side)
	}
	if !res.Handle.Running() || res.Handle.Pid() != 4001 {
		t.Errorf("unexpected handle %v", res.Handle)
	}
	if res.Handle.Stdout() != nil {
		t.Error("fork handles carry no attributes")
	}

	call := sys.spawnCalls()[0]
	exe, _ := os.Executable()
	if call.path != exe {
		t.Errorf("expected re-exec of %q, got %q", exe, call.path)
	}
	if !slices.Equal(call.argv, os.Args) {
		t.Errorf("expected argv %q, got %q", os.Args, call.argv)
	}
	marker := forkEnv + "=" + strconv.Itoa(os.Getpid())
	if !slices.Contains(call.env, marker) {
		t.Errorf("expected %s in the child environment", marker)
	}
	if n, _ := lock.snapshot(); n != 0 {
		t.Error("fork must not take the launch exclusion")
	}
}

func TestFork_ChildSide(t *testing.T) {
	t.Setenv(forkEnv, strconv.Itoa(os.Getppid()))
	if !IsForkedChild() {
		t.Fatal("expected to be detected as a forked child")
	}
	sys := newFakeSystem()
	l := NewLauncher(WithSystem(sys), WithLogger(logger.NewNop()))

	res, err := l.Fork(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Side != ChildSide {
		t.Fatalf("expected child side, got %v", res.Side)
	}
	if res.Handle.Pid() != os.Getpid() || !res.Handle.Running() {
		t.Errorf("unexpected child handle %v", res.Handle)
	}
	if len(sys.spawnCalls()) != 0 {
		t.Error("the child side must not spawn")
	}
	if IsForkedChild() {
		t.Error("the marker should be consumed by the first Fork")
	}
}

func TestFork_StaleMarkerIgnored(t *testing.T) {
	t.Setenv(forkEnv, "-1")
	if IsForkedChild() {
		t.Fatal("a marker naming another parent must be ignored")
	}
}

func TestFork_SpawnFailure(t *testing.T) {
	sys := newFakeSystem()
	sys.spawnErr = syscall.EAGAIN
	l, _ := newTestLauncher(sys)
	_, err := l.Fork(context.Background())
	if !errors.HasCode(err, errors.ErrCodeSpawnFailed) {
		t.Fatalf("expected SPAWN_FAILED, got %v", err)
	}
}

func TestStop_TerminateHonoured(t *testing.T) {
	sys := newFakeSystem()
	sys.exitOnTerm = true
	l, _ := newTestLauncher(sys)
	h := newHandle(sys, 40, nil, nil)

	if err := l.stop(h, time.Millisecond, time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !slices.Equal(sys.terms, []int{40}) || len(sys.kills) != 0 {
		t.Errorf("expected a terminate and no kill, got terms=%v kills=%v", sys.terms, sys.kills)
	}
	if h.Running() || h.ExitStatus().Signal != syscall.SIGTERM {
		t.Errorf("expected the child reaped after SIGTERM, got %v", h)
	}
}

func TestStop_EscalatesAfterGracePeriod(t *testing.T) {
	sys := newFakeSystem()
	sys.exitOnKill = true
	for range 1000 {
		sys.replies = append(sys.replies, waitReply{pid: 0})
	}
	l, _ := newTestLauncher(sys)
	h := newHandle(sys, 41, nil, nil)

	start := time.Now()
	if err := l.stop(h, 5*time.Millisecond, 50*time.Millisecond); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("killed before the grace period ran out: %v", elapsed)
	}
	if !slices.Equal(sys.terms, []int{41}) || !slices.Equal(sys.kills, []int{41}) {
		t.Errorf("expected terminate then kill, got terms=%v kills=%v", sys.terms, sys.kills)
	}
	if h.Running() || h.ExitStatus().Signal != syscall.SIGKILL {
		t.Errorf("expected the child reaped after SIGKILL, got %v", h)
	}
}

func TestStop_AlreadyGone(t *testing.T) {
	sys := newFakeSystem()
	sys.killErr = syscall.ESRCH
	l, _ := newTestLauncher(sys)
	h := newHandle(sys, 42, nil, nil)

	if err := l.stop(h, time.Millisecond, time.Second); err != nil {
		t.Fatalf("a vanished child is not an error: %v", err)
	}
	if h.Running() {
		t.Error("expected the child reaped")
	}
}
