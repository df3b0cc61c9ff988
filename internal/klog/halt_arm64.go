//go:build arm64

package klog

import "github.com/bparli/rpi3kernel/internal/asm"

// halt masks both interrupt sources and spins in wfi forever, the same
// unrecoverable stop mazboot/golang/main/kernel.go reaches via its
// abort-and-hang panic path.
func halt() {
	asm.MaskIRQ()
	asm.MaskFIQ()
	for {
		asm.Wfi()
	}
}
