//go:build arm64

// Package kernel is the top-level glue binding every internal/ driver into
// a running system: boot-time bring-up, the exception vector table, and
// the dispatch that routes IRQ/FIQ/SVC entries into internal/irq,
// internal/timer, internal/svc and internal/sched. Grounded on
// mazboot/golang/main/kernel.go's role as the package that wires its
// sibling drivers together, though the wiring itself follows spec.md §4
// rather than mazboot's framebuffer/PCI/virtio surface — see
// DESIGN.md "Dropped teacher modules".
package kernel

import (
	"unsafe"

	"github.com/bparli/rpi3kernel/internal/asm"
	"github.com/bparli/rpi3kernel/internal/config"
	"github.com/bparli/rpi3kernel/internal/console"
	"github.com/bparli/rpi3kernel/internal/heap"
	"github.com/bparli/rpi3kernel/internal/irq"
	"github.com/bparli/rpi3kernel/internal/klog"
	"github.com/bparli/rpi3kernel/internal/layout"
	"github.com/bparli/rpi3kernel/internal/mmu"
	"github.com/bparli/rpi3kernel/internal/sched"
	"github.com/bparli/rpi3kernel/internal/svc"
	"github.com/bparli/rpi3kernel/internal/timer"
)

// kernelHeap backs every Task stack (internal/sched.AddTask) and any other
// kernel allocation. Reserved BSS, zeroed by the loader before start runs,
// per internal/heap.Init's contract.
var (
	kernelHeap  heap.Heap
	heapStorage [layout.HeapEnd - layout.HeapStart]byte

	logger    *klog.Logger
	uart      *console.UART
	irqMgr    *irq.Manager
	scheduler *sched.Scheduler
	svcGate   *svc.Gate
	sysTimer  *timer.Timer
)

// nowMillis derives a monotonic millisecond clock from the system timer's
// free-running counter, for internal/svc's sleep(ms) deadline arithmetic.
//
//go:nosplit
func nowMillis() uint64 {
	return uint64(asm.MmioRead32(layout.PeripheralBase+layout.SystemTimerOff+0x04)) / 1000
}

// demoTask1Addr and demoTask2Addr are implemented in boot_arm64.s; they
// return the link-time address of demoTask1/demoTask2 for AddTask's entry
// argument, the same address-of-func trick vectorTableAddr uses.
func demoTask1Addr() uintptr
func demoTask2Addr() uintptr

// spinMillis busy-waits for roughly d milliseconds against the system
// timer's free-running counter, standing in for original_source's
// time_manager().spin_for — there is no blocking sleep available to a
// kernel-mode task that hasn't gone through internal/svc's gate.
//
//go:nosplit
func spinMillis(d uint64) {
	start := nowMillis()
	for nowMillis()-start < d {
		asm.Nop()
	}
}

// demoTask1 and demoTask2 are the two kernel-mode tasks installed on the
// ready queue by BootMain, mirroring original_source/src/main.rs's
// process1/process2: each logs and spins on its own period so the
// round-robin timer preemption in internal/sched actually has a second
// (and third) task to switch between on real boot, not just in
// internal/sched's own unit tests.
//
//go:nosplit
func demoTask1() {
	for {
		logger.Infof("demo task 1 alive")
		spinMillis(3000)
	}
}

//go:nosplit
func demoTask2() {
	for {
		logger.Infof("demo task 2 alive")
		spinMillis(2000)
	}
}

// BootMain is the boot core's Go-side entry point, reached from
// boot_arm64.s's afterDescent once EL1 is live on core 0. It brings up the
// full driver stack and never returns: once interrupts are unmasked, the
// timer tick and syscall gate drive every further transition.
//
//go:nosplit
func BootMain() {
	uart = console.New(layout.PeripheralBase + layout.UARTOff)
	logger = klog.New(uart, klog.LevelInfo)
	logger.Infof("booting on core 0")

	if err := mmu.Init(layout.Default); err != nil {
		logger.Fatalf("mmu: " + err.Error())
	}
	mmu.CoreSetup()
	logger.Infof("mmu: tables built, core 0 translation enabled")

	installVectors()

	kernelHeap.Init(uintptr(unsafe.Pointer(&heapStorage[0])), uint32(len(heapStorage)))

	irqMgr = irq.NewManager(layout.PeripheralBase+layout.PeripheralICOff, layout.LocalICBase)
	irqMgr.OnUnregisteredPeripheral(func(n uint8) {
		logger.Fatalf("unregistered peripheral IRQ")
	})
	irqMgr.OnUnregisteredLocal(func(n uint8) {
		logger.Warnf("local IRQ 8 (GPU-forwarded) with no handler, ignoring")
	})

	scheduler = sched.New(&kernelHeap, config.FirstUserPID)
	svcGate = svc.New(scheduler, nowMillis)

	sysTimer = timer.NewSystemTimer(layout.PeripheralBase+layout.SystemTimerOff, config.TimerIntervalMicros, onTimerTick)
	if err := irqMgr.RegisterPeripheral(irq.PeripheralSystemTimer, sysTimer.HandleIRQ); err != nil {
		logger.Fatalf("timer: " + err.Error())
	}
	sysTimer.Arm()

	scheduler.AddTask(demoTask1Addr(), config.DefaultPriority, config.TaskStackSize)
	scheduler.AddTask(demoTask2Addr(), config.DefaultPriority, config.TaskStackSize)

	logger.Infof("enabling interrupts, entering scheduler")
	asm.UnmaskIRQ()
	asm.UnmaskFIQ()

	for {
		asm.Wfi()
	}
}

// SecondaryMain brings a secondary core the rest of the way up once
// boot_arm64.s has dropped it to EL1: it re-enables the MMU against the
// boot core's already-built shared tables (spec.md §4.1 "re-enable its MMU
// via the shared tables") and idles in wfe, since only the boot core drives
// this kernel's scheduler instance.
//
//go:nosplit
func SecondaryMain(coreID uint64) {
	mmu.CoreSetup()
	installVectors()
	asm.UnmaskIRQ()
	for {
		asm.Wfe()
	}
}

// onTimerTick is the callback internal/timer invokes on every system-timer
// fire. It receives the interrupted task's exception frame via
// currentFrame, maintained by the IRQ entry trampoline in vectors_arm64.s.
func onTimerTick() {
	scheduler.TimerTick(currentFrame())
}
