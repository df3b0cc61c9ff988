// Package svc is the supervisor-call gate spec.md §4.5 describes: the
// vector table's synchronous EL0→EL1 SVC handler decodes x8 as a call
// number and dispatches to sleep or exit against the scheduler. Grounded
// on mazboot/golang/main/exceptions.go's synchronous-exception dispatch
// shape (read the ESR class, switch on it), narrowed here to the one
// class spec.md needs, SVC.
//
// Gate takes its scheduler and clock as constructor arguments rather than
// reaching for arm64-only globals, so the decode/dispatch logic in this
// file — including the unknown-syscall path DESIGN.md's Open Questions
// settle — is host-testable without any build tag.
package svc

import "github.com/bparli/rpi3kernel/internal/sched"

// Call numbers, per spec.md §4.5.
const (
	CallSleep = 1
	CallExit  = 2
)

// Status codes written into the caller's x7, per spec.md §4.5's "Syscall
// ABI". StatusENOSYS is this kernel's resolution for an unrecognized call
// number (spec.md §9 leaves it as "caller observes x7 != 0" and defers the
// exact value) — chosen to read like a familiar errno, not a novel code.
const (
	StatusOK     = 0
	StatusENOSYS = 38
)

// scheduler is the minimal surface Gate needs from *sched.Scheduler, kept
// as an interface so the gate is unit-testable against a fake.
type scheduler interface {
	Block(ec *sched.Context, pred sched.Pred)
	ExitTask(ec *sched.Context)
}

// Gate decodes and dispatches SVC entries against sched and a millisecond
// clock (nowMillis), per spec.md §4.5's sleep semantics.
type Gate struct {
	sched     scheduler
	nowMillis func() uint64
}

// New constructs a Gate. nowMillis must return a monotonically
// non-decreasing millisecond count (the system timer's free-running
// counter divided by 1000, on real hardware).
func New(s scheduler, nowMillis func() uint64) *Gate {
	return &Gate{sched: s, nowMillis: nowMillis}
}

// Handle decodes ec.GPR[8] (x8) as the call number and dispatches:
//   - sleep(ms): ms in x0 (GPR[0]). Blocks the caller with a predicate
//     that captures begin = now() and target = begin + ms; on a later
//     poll where now() > target, the predicate writes x7=0, x0=elapsed ms
//     and wakes the task, per spec.md §4.5 and §8 property 6 (the elapsed
//     time is never less than ms).
//   - exit(): terminates the caller via sched.ExitTask.
//   - anything else: x7 = StatusENOSYS. The caller is not blocked or
//     killed — it simply continues running with x0 untouched, per
//     DESIGN.md's resolution of spec.md §9's open unknown-syscall question.
func (g *Gate) Handle(ec *sched.Context) {
	switch ec.GPR[8] {
	case CallSleep:
		ms := ec.GPR[0]
		begin := g.nowMillis()
		target := begin + ms
		pred := func(ctx *sched.Context) bool {
			now := g.nowMillis()
			if now <= target {
				return false
			}
			ctx.GPR[7] = StatusOK
			ctx.GPR[0] = now - begin
			return true
		}
		g.sched.Block(ec, pred)
	case CallExit:
		g.sched.ExitTask(ec)
	default:
		ec.GPR[7] = StatusENOSYS
	}
}
