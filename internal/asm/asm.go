//go:build arm64

// Package asm is the kernel's only doorway to privileged AArch64 state and
// to MMIO: system-register access, exception-level transition instructions,
// barriers, and volatile memory-mapped register reads/writes. Every other
// package reaches the CPU and the bus exclusively through this package, the
// same separation mazboot/golang/main draws between its Go files and its
// (unretrieved) asm package — register offsets and bit layouts live next to
// their owning driver, but the instructions that touch them live here.
package asm

import (
	"sync/atomic"
	"unsafe"
)

// MmioRead32 performs a volatile 32-bit load from a memory-mapped register.
//
//go:nosplit
func MmioRead32(addr uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

// MmioWrite32 performs a volatile 32-bit store to a memory-mapped register.
//
//go:nosplit
func MmioWrite32(addr uintptr, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), val)
}

// MmioRead64 performs a volatile 64-bit load from a memory-mapped register.
//
//go:nosplit
func MmioRead64(addr uintptr) uint64 {
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(addr)))
}

// MmioWrite64 performs a volatile 64-bit store to a memory-mapped register.
//
//go:nosplit
func MmioWrite64(addr uintptr, val uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(addr)), val)
}

// The following are implemented in regs_arm64.s. Declaring them as bodyless
// Go functions and letting the assembler supply TEXT symbols is the same
// pattern usbarmory/tamago uses for flush_tlb/set_ttbr0 and mazboot/golang
// uses (via go:linkname) for read_cntv_ctl_el0 and friends; here the Go
// declaration and its assembly body share a name directly, no linkname
// indirection needed since both live in this package.

// CurrentEL returns the current exception level shifted into bits [3:2], as
// read from the CurrentEL system register (EL3=0xC, EL2=0x8, EL1=0x4).
func CurrentEL() uint64

// EnterEL1FromEL3 programs SCR_EL3, SPSR_EL3 and ELR_EL3 for a drop from EL3
// to EL2h at entry, then issues eret. entry is the address to resume at in
// EL2 (the boot code passes descendToEL1, which then performs the EL2->EL1
// step). Never returns.
func EnterEL1FromEL3(entry uintptr)

// EnterEL1FromEL2 programs CNTHCTL_EL2/CNTVOFF_EL2/HCR_EL2/SPSR_EL2/ELR_EL2
// and the EL1 stack pointer for a drop from EL2 to EL1h, then issues eret.
// entry is the address to resume at in EL1, sp is the initial SP_EL1. Never
// returns.
func EnterEL1FromEL2(entry uintptr, sp uintptr)

// ReadMMFR0 returns ID_AA64MMFR0_EL1.
func ReadMMFR0() uint64

// SetVBAR sets VBAR_EL1 to the given (16-byte, architecturally 2 KiB)
// aligned exception vector base.
func SetVBAR(addr uintptr)

// WriteMAIR programs MAIR_EL1.
func WriteMAIR(val uint64)

// WriteTCR programs TCR_EL1.
func WriteTCR(val uint64)

// WriteTTBR0 programs TTBR0_EL1 (low VA half — kernel RO/RW/device ranges).
func WriteTTBR0(addr uintptr)

// WriteTTBR1 programs TTBR1_EL1 (high VA half — not used by the current
// identity-mapped layout, but programmed so the TLB-flush hook in
// internal/sched has a real register to compare a task's stack base
// against, per spec.md §4.6 "TLB flush").
func WriteTTBR1(addr uintptr)

// ReadTTBR1 reads back TTBR1_EL1.
func ReadTTBR1() uintptr

// EnableMMU sets SCTLR_EL1.{M,C,I} and issues the isb required after.
func EnableMMU()

// ReadTPIDR reads TPIDR_EL1, which this kernel overlays with the running
// task's pid (spec.md §3 "tpidr ... doubles as the task id").
func ReadTPIDR() uint64

// WriteTPIDR writes TPIDR_EL1.
func WriteTPIDR(pid uint64)

// MaskIRQ sets PSTATE.I, masking IRQ delivery at the current EL.
func MaskIRQ()

// UnmaskIRQ clears PSTATE.I.
func UnmaskIRQ()

// MaskFIQ sets PSTATE.F, masking FIQ delivery at the current EL.
func MaskFIQ()

// UnmaskFIQ clears PSTATE.F.
func UnmaskFIQ()

// Dsb issues a full-system data synchronization barrier.
func Dsb()

// Isb issues an instruction synchronization barrier.
func Isb()

// TlbiVmalle1is invalidates all stage-1 TLB entries, inner-shareable.
func TlbiVmalle1is()

// Wfi waits for interrupt.
func Wfi()

// Wfe waits for event.
func Wfe()

// Sev signals an event to all cores.
func Sev()

// Nop is a single no-op instruction, used to pad and to give the spin loop
// in boot.go something cheap to retry on.
func Nop()
