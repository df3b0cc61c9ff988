// Package console is the PL011 UART driver used as the kernel log/debug
// console. Grounded on mazboot/golang/main/uart_qemu.go's direct-MMIO style,
// but pared to the blocking byte-I/O contract spec.md §6 actually specifies
// ("write_fmt(args)", "read_char()", "flush()") rather than mazboot's
// interrupt-driven ring buffer — register-bit layout of the UART is
// explicitly out of scope beyond that contract (spec.md §1).
package console

import "github.com/bparli/rpi3kernel/internal/asm"

// PL011 register offsets from layout.UARTOff's base, per spec.md §6.
const (
	regDR = 0x00 // data register
	regFR = 0x18 // flag register

	frTXFF = 1 << 5 // transmit FIFO full
	frRXFE = 1 << 4 // receive FIFO empty
	frBUSY = 1 << 3 // UART busy (still shifting out)
)

// UART drives one PL011 instance at a fixed MMIO base.
type UART struct {
	base uintptr
}

// New returns a UART driver for the PL011 instance at base.
func New(base uintptr) *UART {
	return &UART{base: base}
}

// WriteByte blocks until the transmit FIFO has room, then writes c. '\n' is
// not translated to "\r\n" here; callers that want that do it themselves,
// matching mazboot's uartPutc/uartPuts split.
//
//go:nosplit
func (u *UART) WriteByte(c byte) {
	for asm.MmioRead32(u.base+regFR)&frTXFF != 0 {
	}
	asm.MmioWrite32(u.base+regDR, uint32(c))
}

// WriteString writes every byte of s via WriteByte.
//
//go:nosplit
func (u *UART) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		u.WriteByte(s[i])
	}
}

// ReadByte blocks until a byte is available and returns it, normalising
// '\r' to '\n' per spec.md §6's console contract.
//
//go:nosplit
func (u *UART) ReadByte() byte {
	for asm.MmioRead32(u.base+regFR)&frRXFE != 0 {
	}
	c := byte(asm.MmioRead32(u.base + regDR))
	if c == '\r' {
		return '\n'
	}
	return c
}

// Flush blocks until the UART has finished shifting out every queued byte.
//
//go:nosplit
func (u *UART) Flush() {
	for asm.MmioRead32(u.base+regFR)&frBUSY != 0 {
	}
}
