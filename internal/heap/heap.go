// Package heap is the kernel's linked-list first-fit allocator over
// [heapStart, heapEnd), grounded on mazboot/golang/main/heap.go's
// heapSegment doubly-linked list (next/prev/isAllocated/segmentSize) but
// trimmed to the policy spec.md §2 names for this component: first-fit, not
// best-fit, and no framebuffer/g0-stack special-casing (that machinery
// belonged to mazboot's different boot sequence — see DESIGN.md
// "Dropped teacher modules").
package heap

import "unsafe"

// segment is placed at the start of every free or allocated block. Grounded
// on mazboot/golang/main/heap.go's heapSegment.
type segment struct {
	next        *segment
	prev        *segment
	isAllocated bool
	size        uint32 // total size of this block, including the header
}

// headerSize is the segment header rounded up to 16 bytes, so every data
// area Alloc returns stays 16-byte aligned.
const headerSize = (uint32(unsafe.Sizeof(segment{})) + 15) &^ 15

// Heap is a first-fit allocator over a single contiguous byte range. The
// zero value is not usable; call Init.
type Heap struct {
	head *segment
	base uintptr
	size uint32
}

// Init carves start[:size] into one free segment spanning the whole range.
// start must already be zeroed (BSS or freshly reserved memory) and 16-byte
// aligned, matching mazboot's heapInit contract.
//
//go:nosplit
func (h *Heap) Init(start uintptr, size uint32) {
	h.base = start
	h.size = size
	h.head = (*segment)(unsafe.Pointer(start))
	*h.head = segment{size: size}
}

// align rounds n up to the next multiple of a (a must be a power of two).
func align(n uint32, a uint32) uint32 {
	return (n + a - 1) &^ (a - 1)
}

// Alloc finds the first free segment large enough for size bytes (first-fit)
// and returns a pointer to its data area, or nil if none fits.
//
//go:nosplit
func (h *Heap) Alloc(size uint32) unsafe.Pointer {
	if size == 0 || h.head == nil {
		return nil
	}
	need := align(headerSize+size, 16)

	for s := h.head; s != nil; s = s.next {
		if s.isAllocated || s.size < need {
			continue
		}
		h.split(s, need)
		s.isAllocated = true
		return unsafe.Pointer(uintptr(unsafe.Pointer(s)) + uintptr(headerSize))
	}
	return nil
}

// split carves want bytes off the front of s into its own allocated-sized
// segment, leaving the remainder (if big enough to hold a header) as a new
// free segment immediately after it.
//
//go:nosplit
func (h *Heap) split(s *segment, want uint32) {
	const minRemainder = headerSize + 16
	if s.size < want+minRemainder {
		return // not worth splitting; caller gets the whole block
	}
	newAddr := uintptr(unsafe.Pointer(s)) + uintptr(want)
	tail := (*segment)(unsafe.Pointer(newAddr))
	*tail = segment{
		next: s.next,
		prev: s,
		size: s.size - want,
	}
	if tail.next != nil {
		tail.next.prev = tail
	}
	s.next = tail
	s.size = want
}

// Free returns ptr (previously returned by Alloc) to the free list and
// coalesces it with an adjacent free neighbor, matching mazboot/golang's
// kfree coalescing loop.
//
//go:nosplit
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	s := (*segment)(unsafe.Pointer(uintptr(ptr) - uintptr(headerSize)))
	s.isAllocated = false

	if s.prev != nil && !s.prev.isAllocated {
		prev := s.prev
		prev.next = s.next
		prev.size += s.size
		if s.next != nil {
			s.next.prev = prev
		}
		s = prev
	}
	if s.next != nil && !s.next.isAllocated {
		next := s.next
		s.size += next.size
		s.next = next.next
		if next.next != nil {
			next.next.prev = s
		}
	}
}

// FreeBytes sums the size of every free segment (header included), used by
// spec.md §8 property 7's "heap free-bytes recovers by >= 4KiB" test.
func (h *Heap) FreeBytes() uint32 {
	var total uint32
	for s := h.head; s != nil; s = s.next {
		if !s.isAllocated {
			total += s.size
		}
	}
	return total
}
