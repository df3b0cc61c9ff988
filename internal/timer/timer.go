// Package timer drives the BCM2837 system timer's compare-channel 1 as the
// kernel's single periodic tick source, per spec.md §4.4. The
// one-register-access-per-function style (read the free-running counter,
// write the compare register) is grounded on
// mazboot/golang/main/timer_qemu.go's read_cntv_*/write_cntv_* family, but
// the design itself is the BCM2837 match-channel, not mazboot's ARM generic
// timer does not implement — see DESIGN.md's Open Question #3 resolution.
//
// The re-arm arithmetic (advance the compare register by the interval) is
// pure and lives in this file so it is host-testable; the MMIO register
// access lives in timer_arm64.go (build tag arm64).
package timer

// sysTimer is the MMIO-facing half of the system timer, implemented
// against real registers in timer_arm64.go.
type sysTimer interface {
	counterLow() uint32
	compare1() uint32
	setCompare1(v uint32)
	clearMatch1()
}

// Timer arms and re-arms system timer compare-channel 1 at a fixed
// interval, invoking onTick from its IRQ handler.
type Timer struct {
	hw       sysTimer
	interval uint32
	onTick   func()
}

// New constructs a Timer that fires every intervalMicros microseconds
// (the system timer's free-running counter increments once per
// microsecond, per spec.md §4.4), calling onTick on each fire.
func New(hw sysTimer, intervalMicros uint32, onTick func()) *Timer {
	return &Timer{hw: hw, interval: intervalMicros, onTick: onTick}
}

// nextCompare computes the next compare-register value given the current
// free-running counter: CLO + interval, wrapping at 32 bits the same way
// the hardware counter does. Exposed as a pure function so the wraparound
// arithmetic is unit-testable without real hardware.
func nextCompare(clo, interval uint32) uint32 {
	return clo + interval
}

// Arm programs compare-channel 1 for the first tick, per spec.md §4.4
// "One periodic timer arms compare-channel 1 with CLO + interval".
func (t *Timer) Arm() {
	t.hw.setCompare1(nextCompare(t.hw.counterLow(), t.interval))
}

// HandleIRQ re-arms the compare register by advancing it another interval,
// clears the match bit, and invokes the configured tick callback — spec.md
// §4.4's handler sequence, registered against internal/irq's
// PeripheralSystemTimer line.
func (t *Timer) HandleIRQ() {
	t.hw.setCompare1(nextCompare(t.hw.compare1(), t.interval))
	t.hw.clearMatch1()
	if t.onTick != nil {
		t.onTick()
	}
}
