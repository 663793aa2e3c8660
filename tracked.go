package galloc

import "unsafe"

// trackedSystem is OS-heap-backed like systemDirect, but records every live
// block's header in a freeList used purely as an ownership ledger — no
// coalescing semantics apply, membership is all that matters (spec §4.5).
type trackedSystem struct {
	ledger freeList
}

func (t *trackedSystem) make(size int) (*header, error) {
	p, err := sharedOSHeap.malloc(totalBytes(size))
	if err != nil {
		return nil, err
	}
	h := (*header)(p)
	h.blockCount = uint32(blocksFor(size))
	t.ledger.append(h)
	return h, nil
}

func (t *trackedSystem) owns(h *header) bool {
	return t.ledger.contains(h)
}

func (t *trackedSystem) free(h *header) error {
	t.ledger.remove(h)
	return sharedOSHeap.free(unsafe.Pointer(h))
}

func (t *trackedSystem) resize(h *header, size int) (*header, error) {
	slot := int(h.freelistTag) - 1
	p, err := sharedOSHeap.realloc(unsafe.Pointer(h), totalBytes(size))
	if err != nil {
		return nil, err
	}
	nh := (*header)(p)
	nh.blockCount = uint32(blocksFor(size))
	if unsafe.Pointer(nh) != unsafe.Pointer(h) {
		nh.freelistTag = h.freelistTag
		t.ledger.entries[slot] = nh
	}
	return nh, nil
}

// destroy releases every block still tracked by the ledger, individually,
// through the shared OS heap.
func (t *trackedSystem) destroy() {
	for _, h := range t.ledger.entries {
		_ = sharedOSHeap.free(unsafe.Pointer(h))
	}
	t.ledger.entries = nil
}
