//go:build arm64

package irq

import (
	"sync"

	"github.com/bparli/rpi3kernel/internal/asm"
)

// Peripheral controller register offsets from layout.PeripheralICOff's
// base, matching the register names spec.md §4.3 calls out.
const (
	offIRQPending1    = 0x00
	offIRQPending2    = 0x04
	offFIQControl     = 0x0C
	offEnableIRQ1     = 0x10
	offEnableIRQ2     = 0x14
	offDisableIRQ1    = 0x1C
	offDisableIRQ2    = 0x20
)

// peripheralController is the BCM2837 peripheral interrupt controller.
type peripheralController struct {
	base uintptr
	mu   sync.Mutex // guards the write-only enable/disable/FIQ registers
}

func newPeripheralController(base uintptr) *peripheralController {
	return &peripheralController{base: base}
}

// enable writes 1<<(n%32) to ENABLE_1 or ENABLE_2, selected by n<=31, per
// spec.md §4.3. Idempotent: hardware ignores zero bits on write.
func (p *peripheralController) enable(n uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	off := uintptr(offEnableIRQ1)
	if n > 31 {
		off = offEnableIRQ2
	}
	asm.MmioWrite32(p.base+off, 1<<(uint(n)%32))
}

// enableFIQ disables n's ordinary IRQ route, then writes (1<<7)|n to
// FIQ_CONTROL, per spec.md §4.3.
func (p *peripheralController) enableFIQ(n uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	off := uintptr(offDisableIRQ1)
	if n > 31 {
		off = offDisableIRQ2
	}
	asm.MmioWrite32(p.base+off, 1<<(uint(n)%32))
	asm.MmioWrite32(p.base+offFIQControl, uint32(1<<7)|uint32(n))
}

// pending reads PENDING_1/2 (read-only, lock-free per spec.md §5) and packs
// them into the 64-bit mask PendingIRQs expects.
func (p *peripheralController) pending() uint64 {
	lo := asm.MmioRead32(p.base + offIRQPending1)
	hi := asm.MmioRead32(p.base + offIRQPending2)
	return uint64(lo) | uint64(hi)<<32
}

// Local controller register offsets, relative to layout.LocalICBase plus a
// per-core stride (the BCM2837 local interrupt controller banks its
// per-core registers at fixed offsets from the shared base).
const (
	localTimerControlBase = 0x40
	localIRQSourceBase    = 0x60
	coreRegStride         = 0x04
)

type localController struct {
	base uintptr
}

func newLocalController(base uintptr) *localController {
	return &localController{base: base}
}

// enableTimer sets bit 1 of this core's timer-control register, per
// spec.md §4.3 "Local controller ... enables the local timer IRQ (bit 1 of
// the per-core timer-control register)".
func (l *localController) enableTimer() {
	coreID := uintptr(asm.ReadTPIDR() & 0x3)
	addr := l.base + localTimerControlBase + coreID*coreRegStride
	asm.MmioWrite32(addr, asm.MmioRead32(addr)|(1<<1))
}

// pending reads this core's IRQ-source register, keeping its 12 local
// source bits.
func (l *localController) pending() uint32 {
	coreID := uintptr(asm.ReadTPIDR() & 0x3)
	addr := l.base + localIRQSourceBase + coreID*coreRegStride
	return asm.MmioRead32(addr) & 0xFFF
}

// NewManager constructs a Manager wired to real MMIO, per spec.md §6's
// "MMIO physical map" (peripheralBase = 0x3F00_B200, localBase = 0x4000_0000).
func NewManager(peripheralBase, localBase uintptr) *Manager {
	m := newManager(newPeripheralController(peripheralBase), newLocalController(localBase))
	m.unmaskFIQ = asm.UnmaskFIQ
	m.maskFIQ = asm.MaskFIQ
	return m
}
