package galloc

import (
	"fmt"
	"unsafe"
)

// Allocate requests size bytes from a (or the system-direct handle if a is
// nil), trying a's own strategy first and then each fallback in order. It
// returns nil once the whole chain is exhausted, and for size == 0 without
// trying anything (spec §6).
func Allocate(a *Allocator, size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	a = normalize(a)
	for cur := a; cur != nil; cur = cur.fallback {
		if h, err := cur.strategyOf().make(size); err == nil {
			return userPointer(h)
		}
	}
	return nil
}

// AllocateZeroed is like Allocate(a, count*elemSize) except the memory is
// zero-filled before it is returned.
func AllocateZeroed(a *Allocator, count, elemSize int) unsafe.Pointer {
	if count <= 0 || elemSize <= 0 {
		return nil
	}
	p := Allocate(a, count*elemSize)
	if p == nil {
		return nil
	}
	zero(p, count*elemSize)
	return p
}

// CopyFrom allocates size bytes from a and copies size bytes from src into
// it. A nil src or non-positive size returns nil without allocating.
func CopyFrom(a *Allocator, src unsafe.Pointer, size int) unsafe.Pointer {
	if src == nil || size <= 0 {
		return nil
	}
	p := Allocate(a, size)
	if p == nil {
		return nil
	}
	copyBytes(p, src, size)
	return p
}

// findOwner walks a's fallback chain looking for the handle that owns h,
// returning nil if none does.
func findOwner(a *Allocator, h *header) *Allocator {
	for cur := a; cur != nil; cur = cur.fallback {
		if cur.strategyOf().owns(h) {
			return cur
		}
	}
	return nil
}

// Free releases the allocation at p. p == nil is a no-op; p not owned by
// any handle reachable from a is a fatal ownership violation (spec §5,
// §7).
func Free(a *Allocator, p unsafe.Pointer) {
	if p == nil {
		return
	}
	a = normalize(a)
	h := headerFromUser(p)
	owner := findOwner(a, h)
	if owner == nil {
		abort(CategoryOwnership, "free of pointer not owned by any handle in the chain: %p", p)
	}
	if err := owner.strategyOf().free(h); err != nil {
		abort(CategoryOwnership, "strategy refused to free an owned pointer %p: %v", p, err)
	}
}

// Resize changes the allocation at p to size bytes, possibly moving it. A
// nil p behaves as Allocate; size == 0 behaves as Free and returns nil. If
// the owning strategy can neither resize in place nor relocate internally,
// Resize migrates the allocation to a fresh block obtained from the root
// of a's fallback chain, copying min(old, new) payload bytes and freeing
// the original via its owning handle — the only cross-strategy migration
// this package performs (spec §4.7).
func Resize(a *Allocator, p unsafe.Pointer, size int) unsafe.Pointer {
	a = normalize(a)
	if p == nil {
		return Allocate(a, size)
	}
	if size == 0 {
		Free(a, p)
		return nil
	}

	h := headerFromUser(p)
	owner := findOwner(a, h)
	if owner == nil {
		abort(CategoryOwnership, "resize of pointer not owned by any handle in the chain: %p", p)
	}

	if newH, err := owner.strategyOf().resize(h, size); err == nil {
		return userPointer(newH)
	}

	newP := Allocate(a, size)
	if newP == nil {
		return nil
	}
	oldPayload := payloadBytes(h)
	n := len(oldPayload)
	if size < n {
		n = size
	}
	copyBytes(newP, userPointer(h), n)
	if err := owner.strategyOf().free(h); err != nil {
		abort(CategoryOwnership, "strategy refused to free a migrated pointer %p: %v", p, err)
	}
	return newP
}

// Destroy releases every resource a's chain owns, fallback first. Calling
// Destroy on the system-direct handle (directly, or by reaching it as a
// fallback) is a fatal error: it is a process-wide sentinel, not a handle
// anyone may tear down (spec §3, §5).
func Destroy(a *Allocator) {
	a = normalize(a)
	if a.fallback != nil {
		Destroy(a.fallback)
	}
	switch a.kind {
	case kindSystemDirect:
		abort(CategorySentinel, "destroy of the system-direct handle is forbidden")
	case kindTrackedSystem:
		a.tracked.destroy()
	case kindFixedRegion:
		a.fixed.destroy()
	case kindGrowingRegion:
		a.growing.destroy()
	}
}

// Stats aggregates lightweight bookkeeping counters across a's whole
// fallback chain: a diagnostic convenience, not part of spec.md's operation
// table, grounded on the teacher's own allocs/bytes/mmaps fields and on
// lldb.AllocStats (SPEC_FULL.md §5).
type Stats struct {
	Allocations int
	Bytes       int
	Regions     int
}

// Stats reports aggregate counters across a's whole fallback chain.
func (a *Allocator) Stats() Stats {
	a = normalize(a)
	var s Stats
	for cur := a; cur != nil; cur = cur.fallback {
		switch cur.kind {
		case kindSystemDirect:
			s.Allocations += sharedOSHeap.allocs
			s.Bytes += sharedOSHeap.bytes
		case kindTrackedSystem:
			s.Allocations += cur.tracked.ledger.len()
		case kindFixedRegion:
			s.Regions++
			s.Bytes += len(cur.fixed.r.buffer)
		case kindGrowingRegion:
			s.Regions += len(cur.growing.regions)
			for _, r := range cur.growing.regions {
				s.Bytes += len(r.buffer)
			}
		}
	}
	return s
}

// Verify walks every region reachable from a and checks the walkability and
// no-adjacent-free invariants from spec.md §8, returning a descriptive
// error on the first violation it finds.
func (a *Allocator) Verify() error {
	a = normalize(a)
	for cur := a; cur != nil; cur = cur.fallback {
		var regions []*region
		switch cur.kind {
		case kindFixedRegion:
			regions = []*region{cur.fixed.r}
		case kindGrowingRegion:
			regions = cur.growing.regions
		}
		for i, r := range regions {
			if err := verifyRegion(r); err != nil {
				return fmt.Errorf("galloc: region %d: %w", i, err)
			}
		}
	}
	return nil
}

func verifyRegion(r *region) error {
	offset := 0
	prevFree := false
	for offset < r.head {
		h := r.headerAt(offset)
		isFree := r.freelist.contains(h)
		if isFree && prevFree {
			return fmt.Errorf("adjacent free headers at block offset %d", offset)
		}
		prevFree = isFree
		offset += headerBlocks + int(h.blockCount)
	}
	if offset != r.head {
		return fmt.Errorf("header walk overshot region head (walked to %d, head at %d)", offset, r.head)
	}
	for _, h := range r.freelist.entries {
		if !r.contains(h) {
			return fmt.Errorf("freelist entry at %p lies outside region bounds", h)
		}
	}
	return nil
}
