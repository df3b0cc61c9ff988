// Package irq implements the BCM2837 interrupt subsystem: a peripheral
// controller, a per-core local controller, and a single Manager that
// dispatches pending IRQs to registered handlers. Grounded on
// mazboot/golang/main/gic_qemu.go's register-offset-table style and
// registerInterruptHandler/gicAcknowledgeInterrupt/gicEndOfInterrupt shape,
// reworked from a single GICv2 controller to spec.md §4.3's two-controller
// BCM2837 design. The FIQ-unmask-around-peripheral-dispatch bracket is
// restored from original_source/asynchronous.rs's local_irq/local_fiq mask
// helpers, a SUPPLEMENTED FEATURE per SPEC_FULL.md.
//
// The hardware-facing controllers live in irq_arm64.go (build tag arm64);
// this file holds the host-testable logic spec.md §8 properties 3-4 cover
// (the pending-bit iterator and handler-table registration) against the
// peripheralCtrl/localCtrl interfaces, so it builds and tests on any GOARCH.
package irq

import (
	"errors"
	"math/bits"
	"sync"
)

// Number is the tagged IRQNumber union from spec.md §4.3: either a
// peripheral IRQ (0..63) or a per-core local IRQ (0..11).
type Number struct {
	Local bool
	N     uint8
}

// Peripheral constructs a peripheral IRQ number. n must be < 64.
func Peripheral(n uint8) Number { return Number{Local: false, N: n} }

// LocalNumber constructs a per-core local IRQ number. n must be < 12.
func LocalNumber(n uint8) Number { return Number{Local: true, N: n} }

// Peripheral IRQ numbers named in spec.md §6's "IRQ map".
const (
	PeripheralSystemTimer = 1
	PeripheralUSB         = 2
	PeripheralUART        = 57
	PeripheralUSBFIQ      = 9
)

// LocalTimer is the per-core generic timer's local IRQ line.
const LocalTimer = 1

// Handler is called with the pending IRQ masked for the duration of the
// call; user handlers are expected infallible (spec.md §7).
type Handler func()

// handlerTable is a fixed-size slot array with a reader-writer lock:
// writers only appear during init, readers on every IRQ dispatch, per
// spec.md §4.3 "Concurrency".
type handlerTable struct {
	mu       sync.RWMutex
	handlers []Handler
}

func newHandlerTable(size int) *handlerTable {
	return &handlerTable{handlers: make([]Handler, size)}
}

// ErrAlreadyRegistered is returned by register when a slot is occupied.
var ErrAlreadyRegistered = errors.New("IRQ handler already registered")

func (t *handlerTable) register(n uint8, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handlers[n] != nil {
		return ErrAlreadyRegistered
	}
	t.handlers[n] = h
	return nil
}

func (t *handlerTable) get(n uint8) Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handlers[n]
}

// peripheralCtrl is the MMIO-facing side of the peripheral controller,
// implemented against real registers in irq_arm64.go.
type peripheralCtrl interface {
	enable(n uint8)
	enableFIQ(n uint8)
	pending() uint64
}

// localCtrl is the MMIO-facing side of the per-core local controller.
type localCtrl interface {
	enableTimer()
	pending() uint32
}

// Manager owns both sub-controllers and dispatches pending IRQs, per
// spec.md §4.3.
type Manager struct {
	peripheral peripheralCtrl
	local      localCtrl

	peripheralHandlers *handlerTable // 64 slots
	localHandlers      *handlerTable // 12 slots per core

	onUnregisteredPeripheral func(n uint8)
	onUnregisteredLocal      func(n uint8)

	unmaskFIQ func()
	maskFIQ   func()
}

// newManager builds a Manager against already-constructed controllers; used
// by the real arm64 NewManager and by this package's host tests (against a
// fake peripheralCtrl/localCtrl).
func newManager(p peripheralCtrl, l localCtrl) *Manager {
	return &Manager{
		peripheral:         p,
		local:              l,
		peripheralHandlers: newHandlerTable(64),
		localHandlers:      newHandlerTable(12),
		unmaskFIQ:          func() {},
		maskFIQ:            func() {},
	}
}

// OnUnregisteredPeripheral installs the fatal-panic hook spec.md §4.3 calls
// for when a peripheral bit has no handler. Defaults to a no-op if unset.
func (m *Manager) OnUnregisteredPeripheral(f func(n uint8)) { m.onUnregisteredPeripheral = f }

// OnUnregisteredLocal installs the benign-log hook for local bit 8 (a
// GPU-forwarded edge with no handler, per spec.md §4.3).
func (m *Manager) OnUnregisteredLocal(f func(n uint8)) { m.onUnregisteredLocal = f }

// RegisterPeripheral registers h for peripheral IRQ n, enabling it in the
// controller. Fails with ErrAlreadyRegistered if n already has a handler.
// Only valid during kernel init, per spec.md §4.3.
func (m *Manager) RegisterPeripheral(n uint8, h Handler) error {
	if err := m.peripheralHandlers.register(n, h); err != nil {
		return err
	}
	m.peripheral.enable(n)
	return nil
}

// RegisterPeripheralFIQ registers h for a FIQ-routed peripheral IRQ (spec.md
// §6 names IRQ 9, USB, as FIQ-routed).
func (m *Manager) RegisterPeripheralFIQ(n uint8, h Handler) error {
	if err := m.peripheralHandlers.register(n, h); err != nil {
		return err
	}
	m.peripheral.enableFIQ(n)
	return nil
}

// RegisterLocal registers h for local IRQ n (on the calling core) and
// enables the local timer source if n == LocalTimer.
func (m *Manager) RegisterLocal(n uint8, h Handler) error {
	if err := m.localHandlers.register(n, h); err != nil {
		return err
	}
	if n == LocalTimer {
		m.local.enableTimer()
	}
	return nil
}

// PendingIRQs returns the sorted positions of set bits in m, least
// significant first, by repeatedly counting trailing zeros and clearing
// that bit — spec.md §8 property 3's iterator.
func PendingIRQs(m uint64) []uint8 {
	var out []uint8
	for m != 0 {
		n := bits.TrailingZeros64(m)
		out = append(out, uint8(n))
		m &^= 1 << uint(n)
	}
	return out
}

// DispatchPeripheral reads the peripheral pending bitmask and dispatches
// each set bit to its handler, unmasking FIQ around each call so
// time-critical FIQ work can preempt it, per spec.md §4.3.
func (m *Manager) DispatchPeripheral() {
	pending := m.peripheral.pending()
	for _, n := range PendingIRQs(pending) {
		h := m.peripheralHandlers.get(n)
		if h == nil {
			if m.onUnregisteredPeripheral != nil {
				m.onUnregisteredPeripheral(n)
			}
			continue
		}
		m.unmaskFIQ()
		h()
		m.maskFIQ()
	}
}

// DispatchLocal reads the calling core's local pending source and
// dispatches to its handler.
func (m *Manager) DispatchLocal() {
	pending := m.local.pending()
	for _, n := range PendingIRQs(uint64(pending)) {
		h := m.localHandlers.get(n)
		if h == nil {
			if n == 8 && m.onUnregisteredLocal != nil {
				m.onUnregisteredLocal(n)
			}
			continue
		}
		h()
	}
}
