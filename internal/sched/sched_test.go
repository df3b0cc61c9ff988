package sched

import (
	"testing"
	"unsafe"
)

// fakeHeap is a trivial bump/free-list-free stand-in for internal/heap: it
// hands back distinct fake addresses and records frees, since sched's own
// tests care about stack bookkeeping, not allocator correctness (that's
// internal/heap's job).
type fakeHeap struct {
	next  uintptr
	freed []uintptr
}

func (h *fakeHeap) Alloc(size uint32) unsafe.Pointer {
	h.next += uintptr(size) + 16
	return unsafe.Pointer(h.next)
}

func (h *fakeHeap) Free(ptr unsafe.Pointer) {
	h.freed = append(h.freed, uintptr(ptr))
}

func TestAgeReplenishesCounter(t *testing.T) {
	cases := []struct{ counter, priority, want int32 }{
		{0, 5, 5},
		{4, 1, 3},
		{-1, 2, 1}, // arithmetic shift of -1 is still -1
	}
	for _, c := range cases {
		if got := age(c.counter, c.priority); got != c.want {
			t.Fatalf("age(%d,%d) = %d, want %d", c.counter, c.priority, got, c.want)
		}
	}
}

func TestTimerTickBootstrapsOnFirstCall(t *testing.T) {
	s := New(&fakeHeap{}, 2)
	ec := &Context{TPIDR: 1, ELR: 0x1000}
	s.TimerTick(ec)
	if s.Len() != 1 {
		t.Fatalf("expected bootstrap task to be enqueued, Len=%d", s.Len())
	}
	if ec.ELR != 0x1000 {
		t.Fatalf("bootstrap must not clobber the caller's frame")
	}
}

func TestTimerTickRoundRobinFairness(t *testing.T) {
	s := New(&fakeHeap{}, 2)
	a := s.AddTask(0x100, 1, 4096)
	b := s.AddTask(0x200, 1, 4096)

	ec := &Context{TPIDR: uint64(a.PID)}
	a.State = Running

	s.TimerTick(ec) // a's single tick of counter expires, b installed
	if ec.TPIDR != uint64(b.PID) {
		t.Fatalf("expected task b installed after a's counter expired, got pid %d", ec.TPIDR)
	}
	if a.State != Ready {
		t.Fatalf("expired running task should return to Ready, got %v", a.State)
	}
}

func TestTimerTickSameTaskContinuesWhileCounterPositive(t *testing.T) {
	s := New(&fakeHeap{}, 2)
	a := s.AddTask(0x100, 3, 4096) // counter starts at 3
	s.AddTask(0x200, 1, 4096)

	ec := &Context{TPIDR: uint64(a.PID)}
	a.State = Running

	s.TimerTick(ec)
	if ec.TPIDR != uint64(a.PID) {
		t.Fatalf("task with counter remaining should keep running, switched to pid %d", ec.TPIDR)
	}
	if a.Counter != 2 {
		t.Fatalf("counter should have decremented once, got %d", a.Counter)
	}
}

func TestBlockTransitionsToWaitingAndWakesOnPredicate(t *testing.T) {
	s := New(&fakeHeap{}, 2)
	a := s.AddTask(0x100, 1, 4096)
	b := s.AddTask(0x200, 1, 4096)
	a.State = Running

	ec := &Context{TPIDR: uint64(a.PID)}
	woken := false
	s.Block(ec, func(ctx *Context) bool { return woken })
	if ec.TPIDR != uint64(b.PID) {
		t.Fatalf("expected b installed while a waits, got pid %d", ec.TPIDR)
	}
	if a.State != Waiting {
		t.Fatalf("expected a Waiting, got %v", a.State)
	}

	// Drive b off CPU; a's predicate still false, so a stays Waiting and
	// its counter ages instead of being installed.
	ec2 := &Context{TPIDR: uint64(b.PID)}
	b.State = Running
	s.TimerTick(ec2)
	if a.State != Waiting {
		t.Fatalf("a should remain Waiting while predicate is false")
	}

	woken = true
	ec3 := &Context{TPIDR: ec2.TPIDR}
	s.TimerTick(ec3)
	if ec3.TPIDR != uint64(a.PID) {
		t.Fatalf("expected a installed once its predicate returns true, got pid %d", ec3.TPIDR)
	}
	if a.State != Running {
		t.Fatalf("woken task must be marked Running once installed, got %v", a.State)
	}
}

func TestExitTaskReclaimsStackAndGuaranteesProgress(t *testing.T) {
	h := &fakeHeap{}
	s := New(h, 2)
	a := s.AddTask(0x100, 1, 4096)
	b := s.AddTask(0x200, 1, 4096)
	a.State = Running
	aStack := a.Stack

	ec := &Context{TPIDR: uint64(a.PID)}
	s.ExitTask(ec)

	if ec.TPIDR != uint64(b.PID) {
		t.Fatalf("expected forward progress to task b, got pid %d", ec.TPIDR)
	}
	found := false
	for _, f := range h.freed {
		if f == aStack {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected exiting task's stack to be freed")
	}
	if s.Len() != 1 {
		t.Fatalf("zombie task must be evicted from the queue, Len=%d", s.Len())
	}
}

func TestMaybeFlushTLBOnlyWhenStackBaseDiffersFromTTBR1(t *testing.T) {
	oldRead, oldWrite, oldFlush := readTTBR1, writeTTBR1, tlbFlush
	defer func() { readTTBR1, writeTTBR1, tlbFlush = oldRead, oldWrite, oldFlush }()

	var programmed uintptr
	flushes := 0
	readTTBR1 = func() uintptr { return programmed }
	writeTTBR1 = func(base uintptr) { programmed = base }
	tlbFlush = func() { flushes++ }

	task := &Task{Stack: programmed} // matches current TTBR1_EL1: no flush
	maybeFlushTLB(task)
	if flushes != 0 {
		t.Fatalf("expected no flush when stack base already matches TTBR1_EL1, got %d", flushes)
	}

	task.Stack = programmed + 0x1000 // differs: must program and flush
	maybeFlushTLB(task)
	if flushes != 1 {
		t.Fatalf("expected exactly one flush when stack base differs, got %d", flushes)
	}
	if programmed != task.Stack {
		t.Fatalf("expected TTBR1_EL1 programmed to the new stack base, got %#x", programmed)
	}

	// Now matches again: a second call must not re-flush.
	maybeFlushTLB(task)
	if flushes != 1 {
		t.Fatalf("expected no additional flush once TTBR1_EL1 matches again, got %d", flushes)
	}
}

func TestExitTaskSpinsUntilAWaitingTaskWakes(t *testing.T) {
	s := New(&fakeHeap{}, 2)
	a := s.AddTask(0x100, 1, 4096)
	b := s.AddTask(0x200, 1, 4096)
	a.State = Running
	b.State = Waiting
	wakeAfter := 2
	b.Pred = func(ctx *Context) bool {
		wakeAfter--
		return wakeAfter <= 0
	}

	wfiCalls := 0
	old := wfi
	defer func() { wfi = old }()
	wfi = func() { wfiCalls++ }

	ec := &Context{TPIDR: uint64(a.PID)}
	s.ExitTask(ec)

	if wfiCalls == 0 {
		t.Fatalf("expected at least one wfi while b's predicate was still false")
	}
	if ec.TPIDR != uint64(b.PID) {
		t.Fatalf("expected b eventually installed, got pid %d", ec.TPIDR)
	}
}
