package svc

import (
	"testing"

	"github.com/bparli/rpi3kernel/internal/sched"
)

type fakeSched struct {
	blockedPred sched.Pred
	blockedEC   *sched.Context
	exited      bool
}

func (f *fakeSched) Block(ec *sched.Context, pred sched.Pred) {
	f.blockedEC = ec
	f.blockedPred = pred
}

func (f *fakeSched) ExitTask(ec *sched.Context) { f.exited = true }

func TestSleepBlocksWithCapturedDeadline(t *testing.T) {
	now := uint64(1000)
	clock := func() uint64 { return now }
	fs := &fakeSched{}
	g := New(fs, clock)

	ec := &sched.Context{}
	ec.GPR[8] = CallSleep
	ec.GPR[0] = 50 // sleep(50ms)
	g.Handle(ec)

	if fs.blockedPred == nil {
		t.Fatalf("expected sleep to block the caller")
	}

	// Predicate false before the deadline.
	now = 1040
	if fs.blockedPred(ec) {
		t.Fatalf("predicate fired before now > target")
	}

	// Predicate true once now exceeds target (1000+50=1050).
	now = 1051
	if !fs.blockedPred(ec) {
		t.Fatalf("expected predicate to fire once now > target")
	}
	if ec.GPR[7] != StatusOK {
		t.Fatalf("expected x7=0 on wake, got %d", ec.GPR[7])
	}
	if ec.GPR[0] < 50 {
		t.Fatalf("sleep bound violated: elapsed %d ms < requested 50ms", ec.GPR[0])
	}
}

func TestExitCallsSchedulerExitTask(t *testing.T) {
	fs := &fakeSched{}
	g := New(fs, func() uint64 { return 0 })

	ec := &sched.Context{}
	ec.GPR[8] = CallExit
	g.Handle(ec)

	if !fs.exited {
		t.Fatalf("expected exit() to call ExitTask")
	}
}

func TestUnknownCallNumberSetsENOSYSAndLeavesCallerRunning(t *testing.T) {
	fs := &fakeSched{}
	g := New(fs, func() uint64 { return 0 })

	ec := &sched.Context{}
	ec.GPR[8] = 99
	ec.GPR[0] = 0x1234 // must remain untouched
	g.Handle(ec)

	if ec.GPR[7] != StatusENOSYS {
		t.Fatalf("expected x7=ENOSYS, got %d", ec.GPR[7])
	}
	if ec.GPR[0] != 0x1234 {
		t.Fatalf("x0 must be left untouched for unknown syscalls, got %#x", ec.GPR[0])
	}
	if fs.exited || fs.blockedPred != nil {
		t.Fatalf("unknown syscall must neither block nor exit the caller")
	}
}
