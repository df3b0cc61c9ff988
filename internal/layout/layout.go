// Package layout holds the kernel's virtual memory map: a closed list of
// named ranges, each carrying the access policy the MMU populate pass
// (internal/mmu) combines into a page descriptor's attribute bits. Grounded
// on spec.md §3 "Memory layout descriptor" and, for the idea of a real typed
// range table rather than inline if/else chains, on
// original_source/bsp/raspberrypi's memory-map module (see
// original_source/_INDEX.md) — a SUPPLEMENTED FEATURE per SPEC_FULL.md.
package layout

import (
	"fmt"

	"github.com/bparli/rpi3kernel/internal/bitfield"
)

// MemAttr selects the MAIR_EL1 attribute index a range is mapped with.
type MemAttr uint8

const (
	// MemDevice is attribute index 0: device nGnRE, per spec.md §4.2.
	MemDevice MemAttr = 0
	// MemNormal is attribute index 1: normal write-back R/W-allocate.
	MemNormal MemAttr = 1
)

// AccPerm selects a range's AP (access permission) bits.
type AccPerm uint8

const (
	AccRW AccPerm = 0 // read/write
	AccRO AccPerm = 1 // read-only
)

// RangeAttrs is the access policy portion of a RangeDescriptor, packed with
// internal/bitfield the same way internal/mmu packs a page descriptor — the
// DOMAIN STACK wiring SPEC_FULL.md calls for.
type RangeAttrs struct {
	MemAttr      MemAttr
	AccessRO     bool
	ExecuteNever bool
}

// Pack compacts a into its bitfield representation. Mostly useful so tests
// and internal/mmu can compare attribute sets by value instead of by field.
func (a RangeAttrs) Pack() (uint64, error) {
	type packable struct {
		MemAttr      uint8 `bitfield:"1"`
		AccessRO     bool  `bitfield:"1"`
		ExecuteNever bool  `bitfield:"1"`
	}
	return bitfield.Pack(&packable{
		MemAttr:      uint8(a.MemAttr),
		AccessRO:     a.AccessRO,
		ExecuteNever: a.ExecuteNever,
	}, &bitfield.Config{NumBits: 3})
}

// RangeDescriptor names one entry in the closed kernel virtual layout.
type RangeDescriptor struct {
	Name  string
	Start uintptr // inclusive
	End   uintptr // exclusive
	Attrs RangeAttrs
}

// Contains reports whether addr falls within [Start, End).
func (r RangeDescriptor) Contains(addr uintptr) bool {
	return addr >= r.Start && addr < r.End
}

// Granule64K is the translation granule spec.md §1/§4.2 requires.
const Granule64K = 64 * 1024

// Board physical memory, per spec.md §6 "MMIO physical map".
const (
	PeripheralBase = 0x3F00_0000
	SystemTimerOff = 0x0000_3000
	PeripheralICOff = 0x0000_B200
	GPIOOff         = 0x0020_0000
	UARTOff         = 0x0020_1000
	LocalICBase     = 0x4000_0000

	MMIOStart = 0x3F00_0000
	MMIOEnd   = 0x4000_FFFF + 1

	// KernelCodeStart/End, KernelDataStart/End and HeapStart/End are
	// ordinarily supplied by the linker script (__ro_start/__ro_end/...).
	// Since this repository has no linked binary to extract them from at
	// spec-writing time, they are declared here as the same kind of
	// board constant mazboot/golang/main/mmu.go hardcodes
	// (PAGE_TABLE_BASE, KMALLOC_HEAP_BASE): a flat, reviewable layout
	// chosen to satisfy §8's non-overlap and alignment properties.
	KernelCodeStart = 0x0008_0000
	KernelCodeEnd   = 0x0010_0000
	KernelDataStart = 0x0010_0000
	KernelDataEnd   = 0x0020_0000
	HeapStart       = 0x0020_0000
	HeapEnd         = 0x0100_0000
)

// Default describes the kernel's standing virtual memory map: kernel
// code/RO, kernel data/BSS, heap, MMIO — the closed list spec.md §3 names.
var Default = []RangeDescriptor{
	{
		Name:  "kernel-code-ro",
		Start: KernelCodeStart,
		End:   KernelCodeEnd,
		Attrs: RangeAttrs{MemAttr: MemNormal, AccessRO: true, ExecuteNever: false},
	},
	{
		Name:  "kernel-data-bss",
		Start: KernelDataStart,
		End:   KernelDataEnd,
		Attrs: RangeAttrs{MemAttr: MemNormal, AccessRO: false, ExecuteNever: true},
	},
	{
		Name:  "heap",
		Start: HeapStart,
		End:   HeapEnd,
		Attrs: RangeAttrs{MemAttr: MemNormal, AccessRO: false, ExecuteNever: true},
	},
	{
		Name:  "mmio",
		Start: MMIOStart,
		End:   MMIOEnd,
		Attrs: RangeAttrs{MemAttr: MemDevice, AccessRO: false, ExecuteNever: true},
	},
}

// defaultAttrs is used for any address outside the closed list, per spec.md
// §3 "Addresses outside the layout default to RW + PXN + cacheable."
var defaultAttrs = RangeAttrs{MemAttr: MemNormal, AccessRO: false, ExecuteNever: true}

// Lookup returns the attrs for addr: those of the first range in descs that
// contains it, or defaultAttrs if none does.
func Lookup(descs []RangeDescriptor, addr uintptr) RangeAttrs {
	for _, d := range descs {
		if d.Contains(addr) {
			return d.Attrs
		}
	}
	return defaultAttrs
}

// Validate checks the two closed-list invariants spec.md §8 properties 1-2
// require: no pair of ranges overlaps, and every range is 64 KiB aligned at
// both start and end (kernel data/BSS is exempted, per spec.md §4.2's note
// that it's linker-controlled).
func Validate(descs []RangeDescriptor) error {
	for i, d := range descs {
		if d.Start >= d.End {
			return fmt.Errorf("layout: %s: empty or inverted range [%#x, %#x)", d.Name, d.Start, d.End)
		}
		if d.Name != "kernel-data-bss" {
			if d.Start%Granule64K != 0 {
				return fmt.Errorf("layout: %s: start %#x not 64KiB aligned", d.Name, d.Start)
			}
			if d.End%Granule64K != 0 {
				return fmt.Errorf("layout: %s: end %#x not 64KiB aligned", d.Name, d.End)
			}
		}
		for j, other := range descs {
			if i == j {
				continue
			}
			if d.Contains(other.Start) || d.Contains(other.End-1) {
				return fmt.Errorf("layout: %s overlaps %s", d.Name, other.Name)
			}
		}
	}
	return nil
}
