//go:build arm64

package kernel

import (
	"github.com/bparli/rpi3kernel/internal/asm"
	"github.com/bparli/rpi3kernel/internal/sched"
)

// curFrame holds the exception frame currently being serviced, populated
// by the SAVE_CONTEXT trampoline in vectors_arm64.s before any Go handler
// runs. One instance: only the boot core drives the scheduler; SecondaryMain
// cores idle
// in wfe and never reach these handlers.
var curFrame sched.Context

func currentFrame() *sched.Context { return &curFrame }

// vectorTableAddr is implemented in vectors_arm64.s; it returns the
// link-time address of the vector table as a plain integer so Go code
// never has to take the address of a func value (which would otherwise
// need reflect).
func vectorTableAddr() uintptr

// installVectors points VBAR_EL1 at the vector table built in
// vectors_arm64.s, per spec.md §4.5. Called once per core during bring-up.
func installVectors() {
	asm.SetVBAR(vectorTableAddr())
}

// dispatchSync is called from vecSyncEL1h with esr = ESR_EL1, curFrame
// already populated. ESR bits [31:26] are the exception class; spec.md
// §4.5 only names SVC (EC 0b010101 at AArch64 EL0) as a class this kernel
// handles — anything else is an unrecoverable fault, grounded on
// mazboot/golang/main/exceptions.go's EC_SVC_EL0_A64 constant.
func dispatchSync(esr uint64) {
	const ecSVC64 = 0b010101
	ec := (esr >> 26) & 0x3F
	if ec != ecSVC64 {
		logger.Fatalf("synchronous exception, not SVC")
		return
	}
	svcGate.Handle(&curFrame)
}

// dispatchIRQ is called from vecIRQ/vecFIQ with curFrame populated. It
// dispatches the per-core local controller first and then the shared
// peripheral controller, where the periodic system timer is registered
// (irq.PeripheralSystemTimer).
func dispatchIRQ() {
	irqMgr.DispatchLocal()
	irqMgr.DispatchPeripheral()
}

// unexpectedFault is called from vecUnexpected for any class this kernel
// does not implement (data/prefetch aborts, SError, EL1t traps, AArch32
// EL0) — there is nothing meaningful to resume, per spec.md §7's Fatal
// class.
func unexpectedFault() {
	logger.Fatalf("unhandled exception class")
}
