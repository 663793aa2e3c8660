package galloc

import "unsafe"

// sharedOSHeap is the process-global raw memory source used by both the
// system-direct and tracked-system strategies (spec §3: "a process-wide
// sentinel... shared by reference"). It is never destroyed; its mappings
// outlive any individual Allocator handle.
var sharedOSHeap = &osHeap{}

// systemDirect is an untracked passthrough to the OS heap: it stamps just
// enough of a header to be recognised later and otherwise carries no state
// of its own (spec §4.4).
type systemDirect struct{}

func (systemDirect) make(size int) (*header, error) {
	p, err := sharedOSHeap.malloc(totalBytes(size))
	if err != nil {
		return nil, err
	}
	h := (*header)(p)
	h.blockCount = uint32(blocksFor(size))
	h.freelistTag = sentinelTag
	return h, nil
}

func (systemDirect) owns(h *header) bool {
	return h.freelistTag == sentinelTag
}

func (systemDirect) free(h *header) error {
	return sharedOSHeap.free(unsafe.Pointer(h))
}

func (systemDirect) resize(h *header, size int) (*header, error) {
	p, err := sharedOSHeap.realloc(unsafe.Pointer(h), totalBytes(size))
	if err != nil {
		return nil, err
	}
	nh := (*header)(p)
	nh.blockCount = uint32(blocksFor(size))
	nh.freelistTag = sentinelTag
	return nh, nil
}
