//go:build arm64

package timer

import "github.com/bparli/rpi3kernel/internal/asm"

// System timer register offsets from layout.SystemTimerOff's base, per
// spec.md §4.4.
const (
	offCS  = 0x00 // control/status: match bits, write-1-to-clear
	offCLO = 0x04 // free-running counter, low 32 bits
	offC1  = 0x10 // compare register 1
)

const matchBit1 = 1 << 1

type hwTimer struct {
	base uintptr
}

// NewHardware constructs the MMIO-backed sysTimer at base (layout.PeripheralBase
// + layout.SystemTimerOff).
func NewHardware(base uintptr) *hwTimer {
	return &hwTimer{base: base}
}

func (h *hwTimer) counterLow() uint32 { return asm.MmioRead32(h.base + offCLO) }
func (h *hwTimer) compare1() uint32   { return asm.MmioRead32(h.base + offC1) }

func (h *hwTimer) setCompare1(v uint32) { asm.MmioWrite32(h.base+offC1, v) }

// clearMatch1 writes M1=Match (bit 1) to CS, the documented write-1-to-clear
// acknowledgement for compare-channel 1, per spec.md §4.4.
func (h *hwTimer) clearMatch1() { asm.MmioWrite32(h.base+offCS, matchBit1) }

// NewSystemTimer constructs a Timer driving real BCM2837 hardware at base,
// firing every intervalMicros and calling onTick on each fire.
func NewSystemTimer(base uintptr, intervalMicros uint32, onTick func()) *Timer {
	return New(NewHardware(base), intervalMicros, onTick)
}
