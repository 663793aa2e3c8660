package galloc

import (
	"github.com/cznic/mathutil"
)

// freeList is a dense, growable array of pointers to free headers living
// inside a single region. Every entry's freelistTag is kept in sync with
// its slot (one-based) so that removal is O(1) via swap-with-last, and so
// that coalescing a header's right neighbour never needs a scan (spec
// §4.2). Coalescing a left neighbour is the one O(N) operation here; the
// freelist is expected to stay small in practice, which is why no entries
// carry prev/next pointers of their own.
type freeList struct {
	entries []*header
}

func (f *freeList) len() int { return len(f.entries) }

// contains reports whether h is currently tracked by f.
func (f *freeList) contains(h *header) bool {
	tag := h.freelistTag
	if tag == 0 || tag == sentinelTag {
		return false
	}
	idx := int(tag) - 1
	return idx >= 0 && idx < len(f.entries) && f.entries[idx] == h
}

// append adds h to the freelist and stamps its tag. Capacity is grown
// explicitly to 1 + 2*count whenever the backing array is full, per spec
// §3's FreeList growth rule, rather than relying on the growth factor the
// runtime happens to pick for the builtin append.
func (f *freeList) append(h *header) {
	if len(f.entries) == cap(f.entries) {
		next := make([]*header, len(f.entries), 1+2*len(f.entries))
		copy(next, f.entries)
		f.entries = next
	}
	f.entries = append(f.entries, h)
	h.freelistTag = uint32(len(f.entries))
}

// remove takes h out of the freelist. h must already be contained.
func (f *freeList) remove(h *header) {
	idx := int(h.freelistTag) - 1
	last := len(f.entries) - 1
	if idx != last {
		f.entries[idx] = f.entries[last]
		f.entries[idx].freelistTag = uint32(idx + 1)
	}
	f.entries = f.entries[:last]
	h.freelistTag = 0
	f.shrinkIfNeeded()
}

// shrinkIfNeeded releases backing capacity once it is mostly unused. The
// growth/shrink factors (double on overflow, release once count*4 <= cap)
// come straight from spec §3's FreeList invariants.
func (f *freeList) shrinkIfNeeded() {
	count := len(f.entries)
	cap_ := cap(f.entries)
	if cap_ > 0 && count*4 <= cap_ {
		next := make([]*header, count, mathutil.Max(1, count*2))
		copy(next, f.entries)
		f.entries = next
	}
}

// takeBlocksFrom attempts to satisfy a request of needed blocks (header
// included) out of h's free span. It returns the number of blocks actually
// granted (>= needed) or 0 if h is too small. On success h is either
// consumed whole (removed from the freelist) or split, with the surplus
// becoming a fresh free header that inherits h's freelist slot.
func (f *freeList) takeBlocksFrom(h *header, needed int) int {
	available := int(h.blockCount) + headerBlocks
	if available < needed {
		return 0
	}
	if available < needed+minAllocBlocks {
		f.remove(h)
		return available
	}

	// Split: h shrinks to the request, a new free header covers the
	// remainder and takes over h's freelist slot. h itself becomes live
	// and is no longer tracked by any freelist entry.
	remainderBlocks := available - needed - headerBlocks
	tag := h.freelistTag
	h.blockCount = uint32(needed - headerBlocks)
	h.freelistTag = 0
	tail := nextHeader(h)
	tail.blockCount = uint32(remainderBlocks)
	tail.freelistTag = tag
	f.entries[tag-1] = tail
	return needed
}

// join inserts a just-freed header h into the freelist, coalescing with
// whichever adjacent free neighbours exist so that no two consecutive
// headers in a region are ever both free (spec §4.2, §8 "no adjacent
// free").
func (f *freeList) join(h *header) {
	linkedRight := false
	if right := nextHeader(h); f.contains(right) {
		h.freelistTag = right.freelistTag
		h.blockCount += right.blockCount + uint32(headerBlocks)
		f.entries[h.freelistTag-1] = h
		linkedRight = true
	}

	for _, b := range f.entries {
		if b == h {
			continue
		}
		if nextHeader(b) == h {
			b.blockCount += h.blockCount + uint32(headerBlocks)
			if linkedRight {
				f.remove(h)
			}
			return
		}
	}

	if !linkedRight {
		f.append(h)
	}
}
