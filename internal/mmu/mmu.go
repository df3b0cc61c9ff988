// Package mmu builds the kernel's two-level (L2+L3), 64 KiB granule
// translation tables and programs the per-core MMU system registers.
// Grounded on mazboot/golang/main/mmu.go (the PTE bit-layout constants, the
// go:nosplit discipline, and the idea of a flat board-constant region for
// the tables) but the table depth and granule are changed from the
// teacher's 4-level/4 KiB demand-paged design to the two-level/64 KiB
// design spec.md §3–4.2 is explicit about — see DESIGN.md.
package mmu

import (
	"errors"
	"unsafe"

	"github.com/bparli/rpi3kernel/internal/asm"
	"github.com/bparli/rpi3kernel/internal/bitfield"
	"github.com/bparli/rpi3kernel/internal/layout"
)

const (
	l3EntriesPerTable = 8192                         // 512 MiB / 64 KiB
	regionSize        = l3EntriesPerTable * layout.Granule64K // 512 MiB per L2 entry

	// AddrSpaceSize must cover every range in layout.Default, including
	// MMIO (which ends at 0x4000_FFFF): 3*512MiB = 1.5 GiB.
	AddrSpaceSize = 3 * regionSize

	// L2Entries is N = addr_space_size >> 29, per spec.md §3.
	L2Entries = AddrSpaceSize / regionSize
)

// Shareability encodings, per the ARMv8 descriptor SH field.
const (
	shOuter = 2 // OuterShareable — used for device memory (DOMAIN STACK: MMIO ranges)
	shInner = 3 // InnerShareable — used for normal memory
)

// pteDescriptor mirrors the bit layout of a 64 KiB-granule level-3 page (or
// level-2 table) descriptor. Packed/unpacked with internal/bitfield instead
// of hand-assembled `|` chains — the DOMAIN STACK wiring SPEC_FULL.md calls
// for (see DESIGN.md "Adapted: internal/bitfield").
type pteDescriptor struct {
	Valid      bool   `bitfield:"1"`  // bit 0
	Table      bool   `bitfield:"1"`  // bit 1 (1 for both table and L3 page descriptors)
	AttrIndx   uint8  `bitfield:"3"`  // bits [4:2], MAIR_EL1 index
	NS         bool   `bitfield:"1"`  // bit 5
	AP         uint8  `bitfield:"2"`  // bits [7:6]
	SH         uint8  `bitfield:"2"`  // bits [9:8]
	AF         bool   `bitfield:"1"`  // bit 10
	NG         bool   `bitfield:"1"`  // bit 11
	Reserved0  uint8  `bitfield:"4"`  // bits [15:12]
	OutputAddr uint64 `bitfield:"32"` // bits [47:16], output address >> 16
	Reserved1  uint8  `bitfield:"4"`  // bits [51:48]
	Cont       bool   `bitfield:"1"`  // bit 52
	PXN        bool   `bitfield:"1"`  // bit 53
	UXN        bool   `bitfield:"1"`  // bit 54
}

var pteConfig = &bitfield.Config{NumBits: 64}

func (d pteDescriptor) pack() uint64 {
	packed, err := bitfield.Pack(&d, pteConfig)
	if err != nil {
		// Every field above fits its declared width by construction;
		// a packing error here means a caller built an out-of-range
		// descriptor, which is a programming error, not a runtime one.
		panic("mmu: pack: " + err.Error())
	}
	return packed
}

// Tables are 64 KiB aligned, zero-initialised BSS arrays, per spec.md §3.
// Populated only by the boot core before secondary cores are released
// (spec.md §4.1) — see DESIGN.md "Open Questions resolved" item 4.
var (
	l2Table  [L2Entries]uint64
	l3Tables [L2Entries][l3EntriesPerTable]uint64
)

// ErrGranuleUnsupported is returned by Init when
// ID_AA64MMFR0_EL1.TGran64 reports the 64 KiB granule is not implemented.
var ErrGranuleUnsupported = errors.New("mmu: 64KiB translation granule not supported")

// granuleSupported reads ID_AA64MMFR0_EL1.TGran64 (bits [27:24]); the value
// 0x0 means supported, 0xF means not supported (ARM ARM D17.2.64).
func granuleSupported() bool {
	mmfr0 := asm.ReadMMFR0()
	return (mmfr0>>24)&0xF == 0x0
}

// parange reads ID_AA64MMFR0_EL1.PARange (bits [3:0]) for TCR_EL1.IPS.
func parange() uint64 {
	return asm.ReadMMFR0() & 0xF
}

// Init builds the translation tables from descs and returns
// ErrGranuleUnsupported if the hardware cannot honor a 64 KiB granule.
// Table construction only; call CoreSetup afterward to activate the MMU on
// the calling core.
//
//go:nosplit
func Init(descs []layout.RangeDescriptor) error {
	if !granuleSupported() {
		return ErrGranuleUnsupported
	}
	populate(descs)
	return nil
}

// populate walks every L2/L3 slot, resolving (phys, attrs) for each 64 KiB
// page via layout.Lookup and writing a page descriptor, per spec.md §4.2.
// The current layout is identity-mapped, so phys == virt.
//
//go:nosplit
func populate(descs []layout.RangeDescriptor) {
	for l2 := 0; l2 < L2Entries; l2++ {
		l3Base := uintptr(unsafe.Pointer(&l3Tables[l2][0]))
		l2Table[l2] = tableDescriptor(l3Base)

		for l3 := 0; l3 < l3EntriesPerTable; l3++ {
			virt := uintptr(l2)<<29 + uintptr(l3)<<16
			attrs := layout.Lookup(descs, virt)
			l3Tables[l2][l3] = pageDescriptor(virt, attrs)
		}
	}
}

//go:nosplit
func tableDescriptor(phys uintptr) uint64 {
	return pteDescriptor{
		Valid:      true,
		Table:      true,
		OutputAddr: uint64(phys) >> 16,
	}.pack()
}

//go:nosplit
func pageDescriptor(phys uintptr, attrs layout.RangeAttrs) uint64 {
	sh := uint8(shInner)
	if attrs.MemAttr == layout.MemDevice {
		sh = shOuter
	}
	ap := uint8(0) // RW
	if attrs.AccessRO {
		ap = 2 // RO
	}
	return pteDescriptor{
		Valid:      true,
		Table:      true,
		AttrIndx:   uint8(attrs.MemAttr),
		AP:         ap,
		SH:         sh,
		AF:         true,
		PXN:        attrs.ExecuteNever,
		OutputAddr: uint64(phys) >> 16,
	}.pack()
}

// MAIR_EL1 attribute encodings, per spec.md §4.2.
const (
	mairDeviceNGnRE   = 0x04
	mairNormalWBRWAlloc = 0xFF
)

// tcrValue encodes TG0=64KiB(01), SH0=Inner(11), ORGN0=IRGN0=WB-RA-WA(01),
// T0SZ=32, plus the mirrored T1SZ/TG1/SH1/ORGN1/IRGN1 fields for TTBR1
// (programmed so internal/sched's TLB-flush hook has a consistently
// configured register to compare against, per spec.md §4.6).
func tcrValue() uint64 {
	const (
		t0sz  = 32 << 0
		irgn0 = 1 << 8
		orgn0 = 1 << 10
		sh0   = 3 << 12
		tg0   = 1 << 14 // 64 KiB

		t1sz  = uint64(32) << 16
		irgn1 = 1 << 24
		orgn1 = 1 << 26
		sh1   = 3 << 28
		tg1   = 3 << 30 // 64 KiB for TTBR1 is encoded 11, not 01
	)
	ips := parange() << 32
	return t0sz | irgn0 | orgn0 | sh0 | tg0 | t1sz | irgn1 | orgn1 | sh1 | tg1 | ips
}

// CoreSetup programs MAIR_EL1, TCR_EL1, TTBR0/TTBR1_EL1 and enables the MMU
// on the calling core, per spec.md §4.2 "Per-core core_setup". Secondary
// cores call this against the same shared tables built by Init on the boot
// core (spec.md §4.1).
//
//go:nosplit
func CoreSetup() {
	mair := uint64(mairDeviceNGnRE) | uint64(mairNormalWBRWAlloc)<<8
	asm.WriteMAIR(mair)
	asm.WriteTCR(tcrValue())
	asm.WriteTTBR0(uintptr(unsafe.Pointer(&l2Table[0])))
	asm.WriteTTBR1(uintptr(unsafe.Pointer(&l2Table[0])))
	asm.Isb()
	asm.EnableMMU()
}
