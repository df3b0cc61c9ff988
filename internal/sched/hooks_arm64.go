//go:build arm64

package sched

import "github.com/bparli/rpi3kernel/internal/asm"

func init() {
	maskIRQ = asm.MaskIRQ
	unmaskIRQ = asm.UnmaskIRQ
	writeTTBR1 = asm.WriteTTBR1
	readTTBR1 = asm.ReadTTBR1
	tlbFlush = asm.TlbiVmalle1is
	wfi = asm.Wfi
}
