package galloc

import "unsafe"

// blockSize is the allocation quantum: a 64-bit word, wide enough to keep
// any scalar the rest of this module's sibling libraries consume correctly
// aligned. Every request is rounded up to a whole number of blocks.
const blockSize = 8

// header is written in-band immediately before the user bytes of every live
// allocation, regardless of which strategy produced it. freelistTag encodes
// three distinct meanings (spec §3):
//
//	0          -> not on any freelist, not owned by the tracked-system ledger
//	sentinelTag -> owned by the system-direct strategy
//	otherwise  -> one-based index into the owning freelist's entries
type header struct {
	blockCount  uint32
	freelistTag uint32
}

// sentinelTag is reserved by the system-direct strategy to mark ownership of
// a header that never participates in any freelist.
const sentinelTag = 0xFFFFFFFF

// headerBlocks is the header's own footprint, expressed in blocks. The type
// is two uint32 fields (8 bytes), which is already block-aligned; this is
// asserted at init time rather than trusted, since a change to header's
// layout that broke the invariant would corrupt every allocation silently.
var headerBlocks = func() int {
	n := int(unsafe.Sizeof(header{}))
	if n%blockSize != 0 {
		panic("galloc: header size is not an integral number of blocks")
	}
	return n / blockSize
}()

const headerSize = 8 // bytes; kept in sync with headerBlocks by the init check above.

// minAllocBlocks is the smallest number of payload blocks worth carving a
// standalone allocation for. A freelist entry with less surplus than this
// over a request is granted to the request in full rather than split,
// because the remainder wouldn't be usable for anything (spec §4.2).
const minAllocBlocks = 1 + 1 // 1 payload block + headerBlocks (headerBlocks == 1)

func init() {
	if headerBlocks != 1 {
		panic("galloc: unexpected header block count")
	}
}

// blocksFor returns the number of whole blocks needed to hold size bytes.
func blocksFor(size int) int {
	return (size + blockSize - 1) / blockSize
}

// totalBytes returns the number of bytes a request of size bytes occupies
// once the header is included, rounded to block granularity.
func totalBytes(size int) int {
	return headerSize + blocksFor(size)*blockSize
}

// headerFromUser recovers the header immediately preceding a user pointer.
func headerFromUser(p unsafe.Pointer) *header {
	return (*header)(unsafe.Pointer(uintptr(p) - headerSize))
}

// userPointer returns the payload address for a header.
func userPointer(h *header) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + headerSize)
}

// nextHeaderAddr computes the address immediately following h's payload,
// i.e. where the next back-to-back header would start. It may land exactly
// on a region's reserved sentinel slot; that slot is zeroed at region init
// so reading fields out of it is always well-defined.
func nextHeaderAddr(h *header) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + headerSize + uintptr(h.blockCount)*blockSize)
}

func nextHeader(h *header) *header {
	return (*header)(nextHeaderAddr(h))
}

// payloadBytes returns the writable payload slice backing a live header, of
// its full block_count (not the originally requested size, which the
// header does not retain).
func payloadBytes(h *header) []byte {
	n := int(h.blockCount) * blockSize
	return unsafe.Slice((*byte)(userPointer(h)), n)
}
