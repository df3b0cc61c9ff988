package sched

import "sync"

// lock is the ready-queue mutex type; a plain type alias keeps sched.go
// free of a direct "sync" import collision with hooks in this file.
type lock = sync.Mutex

// maskIRQ/unmaskIRQ/writeTTBR1/readTTBR1/tlbFlush/wfi are the scheduler's
// only points of contact with the hardware: masking interrupts around
// queue manipulation (spec.md §5), and the TLB-flush precondition check
// (spec.md §4.6, §8 property 8). Defaulting to no-ops keeps this package
// buildable and testable on any GOARCH; hooks_arm64.go installs the real
// implementations via init() on arm64.
var (
	maskIRQ    = func() {}
	unmaskIRQ  = func() {}
	writeTTBR1 = func(base uintptr) {}
	readTTBR1  = func() uintptr { return 0 }
	tlbFlush   = func() {}
	wfi        = func() {}
)
