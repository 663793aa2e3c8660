package galloc

import "unsafe"

// region is a contiguous arena over a single byte buffer: a bump pointer
// covering allocations made so far, and a freelist covering anything freed
// out of that span. It implements spec §4.3 and backs both the
// fixed-region and growing-region strategies.
type region struct {
	buffer     []byte // keeps the backing array alive and, for owned regions, is the array itself
	base       unsafe.Pointer
	blocks     int // total blocks in buffer
	end        int // blocks; bump allocations may not cross this (last headerBlocks blocks are a zeroed sentinel)
	head       int // blocks; current bump pointer, offset from base
	freelist   freeList
	ownsMemory bool
}

// newRegion wraps buf as a fresh arena. buf must hold at least headerBlocks
// blocks; smaller buffers cannot even hold the reserved sentinel and are
// rejected rather than silently truncated.
func newRegion(buf []byte, ownsMemory bool) (*region, error) {
	blocks := len(buf) / blockSize
	if blocks < headerBlocks {
		return nil, errRegionTooSmall
	}
	r := &region{
		buffer:     buf,
		base:       unsafe.Pointer(&buf[0]),
		blocks:     blocks,
		end:        blocks - headerBlocks,
		ownsMemory: ownsMemory,
	}
	// The sentinel slot is the final headerBlocks blocks; zero it so that
	// walking "next" off the last real allocation always finds a header
	// reading as block_count==0, freelist_tag==0.
	for i := r.end * blockSize; i < len(buf); i++ {
		buf[i] = 0
	}
	return r, nil
}

func (r *region) addrAt(blockOffset int) unsafe.Pointer {
	return unsafe.Pointer(uintptr(r.base) + uintptr(blockOffset)*blockSize)
}

func (r *region) headerAt(blockOffset int) *header {
	return (*header)(r.addrAt(blockOffset))
}

// contains reports whether h's address lies inside this region's live span.
func (r *region) contains(h *header) bool {
	p := uintptr(unsafe.Pointer(h))
	start := uintptr(r.base)
	return p >= start && p < start+uintptr(r.head)*blockSize
}

// make carves a new allocation of size bytes, first trying the freelist and
// falling back to the bump pointer, per spec §4.3.
func (r *region) make(size int) (*header, error) {
	needed := blocksFor(size) + headerBlocks

	for _, h := range r.freelist.entries {
		if got := r.freelist.takeBlocksFrom(h, needed); got != 0 {
			return h, nil
		}
	}

	if r.head+needed <= r.end {
		h := r.headerAt(r.head)
		h.blockCount = uint32(needed - headerBlocks)
		h.freelistTag = 0
		r.head += needed
		return h, nil
	}

	return nil, errExhausted
}

// free releases h back to the region: retracting the bump pointer if h sits
// at the tail, otherwise coalescing it into the freelist.
func (r *region) free(h *header) {
	if nextHeaderAddr(h) == r.addrAt(r.head) {
		r.head -= headerBlocks + int(h.blockCount)
		return
	}
	r.freelist.join(h)
}

// resizeInPlace attempts to grow or shrink h without moving it. It reports
// whether the resize was possible; on false, the caller must migrate.
func (r *region) resizeInPlace(h *header, size int) bool {
	need := blocksFor(size)
	cur := int(h.blockCount)

	switch {
	case cur == need:
		return true

	case cur > need && cur >= need+minAllocBlocks:
		surplus := cur - need
		isTail := nextHeaderAddr(h) == r.addrAt(r.head)
		h.blockCount = uint32(need)
		if isTail {
			r.head -= surplus
			return true
		}
		freed := nextHeader(h)
		freed.blockCount = uint32(surplus - headerBlocks)
		freed.freelistTag = 0
		r.freelist.join(freed)
		return true

	case cur > need:
		// Surplus too small to carve a second allocation from; leave h as is.
		return true

	default: // cur < need
		extra := need - cur
		isTail := nextHeaderAddr(h) == r.addrAt(r.head)
		if isTail {
			if r.head+extra > r.end {
				return false
			}
			r.head += extra
			h.blockCount = uint32(need)
			return true
		}

		right := nextHeader(h)
		if !r.freelist.contains(right) {
			return false
		}
		got := r.freelist.takeBlocksFrom(right, extra)
		if got == 0 {
			return false
		}
		h.blockCount += uint32(got)
		return true
	}
}
