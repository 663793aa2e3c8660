// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

import (
	"fmt"
	"os"
	"unsafe"
)

// osHeap is the raw memory source behind the system-direct and
// tracked-system strategies. Every request is rounded up to a whole number
// of OS pages and mmap'd directly — there is no size-class table. A page
// released by free is kept in a small per-page-count pool (bounded by
// osPagePoolCap) so that a later request needing the same page count can be
// served without a fresh syscall; once a bucket is full, further frees
// munmap immediately. This trades the density a slab allocator gets from
// packing many small objects into one page for a much simpler bookkeeping
// scheme, appropriate for this module's job: backing a handful of
// strategies that mostly hand off to region-based bump/freelist allocation
// for the small stuff and only reach the OS heap for the blocks a region
// couldn't serve.
type osHeap struct {
	allocs int
	bytes  int
	mmaps  int
	pool   map[int][]*osPage // keyed by page count
	regs   map[*osPage]struct{}
	trace  bool
}

const osPagePoolCap = 8 // per page-count bucket; beyond this, free munmaps.

// osPage is the in-band header of one mmap'd mapping: pages is how many OS
// pages it spans, header included.
type osPage struct {
	pages int
}

var (
	osPageSize       = os.Getpagesize()
	osPageMask       = osPageSize - 1
	osPageHeaderSize = roundup(int(unsafe.Sizeof(osPage{})), 16)
)

// roundup rounds n up to the nearest multiple of m; m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// WithTrace enables or disables diagnostic tracing on the shared OS-heap
// substrate, printing every malloc/free/realloc call to stderr. It is a
// per-process toggle rather than the teacher's build-time constant, so a
// long-lived caller can switch it on around a suspect code path without a
// rebuild.
func WithTrace(on bool) {
	sharedOSHeap.trace = on
}

func (h *osHeap) tracef(format string, args ...interface{}) {
	if h.trace {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// pagesFor reports how many whole OS pages are needed to hold size payload
// bytes plus one osPage header.
func pagesFor(size int) int {
	need := size + osPageHeaderSize
	return (need + osPageSize - 1) / osPageSize
}

func (h *osHeap) mapPages(pages int) (*osPage, error) {
	b, err := rawMmap(pages * osPageSize)
	if err != nil {
		return nil, err
	}

	p := (*osPage)(unsafe.Pointer(&b[0]))
	p.pages = pages

	if h.regs == nil {
		h.regs = map[*osPage]struct{}{}
	}
	h.regs[p] = struct{}{}
	h.mmaps++
	h.bytes += pages * osPageSize
	return p, nil
}

func (h *osHeap) unmapPages(p *osPage) error {
	delete(h.regs, p)
	h.mmaps--
	h.bytes -= p.pages * osPageSize
	return rawMunmap(unsafe.Pointer(p), p.pages*osPageSize)
}

func (h *osHeap) payload(p *osPage) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(osPageHeaderSize))
}

func pageOf(payload unsafe.Pointer) *osPage {
	return (*osPage)(unsafe.Pointer(uintptr(payload) - uintptr(osPageHeaderSize)))
}

// malloc allocates size bytes and returns a pointer to uninitialised memory,
// or nil for a zero-size request.
func (h *osHeap) malloc(size int) (unsafe.Pointer, error) {
	h.tracef("osHeap.malloc(%#x)\n", size)
	if size < 0 {
		panic("galloc: negative osHeap.malloc size")
	}
	if size == 0 {
		return nil, nil
	}

	pages := pagesFor(size)

	if bucket := h.pool[pages]; len(bucket) > 0 {
		p := bucket[len(bucket)-1]
		h.pool[pages] = bucket[:len(bucket)-1]
		h.allocs++
		return h.payload(p), nil
	}

	p, err := h.mapPages(pages)
	if err != nil {
		return nil, err
	}
	h.allocs++
	return h.payload(p), nil
}

// calloc is like malloc but zeroes the returned memory.
func (h *osHeap) calloc(size int) (unsafe.Pointer, error) {
	r, err := h.malloc(size)
	if r == nil || err != nil {
		return nil, err
	}
	zero(r, size)
	return r, nil
}

// free releases memory obtained from malloc/calloc/realloc. p == nil is a
// no-op. A page is pooled for reuse by page count rather than returned to
// the kernel immediately, unless its bucket is already at osPagePoolCap.
func (h *osHeap) free(payload unsafe.Pointer) error {
	h.tracef("osHeap.free(%p)\n", payload)
	if payload == nil {
		return nil
	}

	h.allocs--
	p := pageOf(payload)

	if h.pool == nil {
		h.pool = map[int][]*osPage{}
	}
	bucket := h.pool[p.pages]
	if len(bucket) < osPagePoolCap {
		h.pool[p.pages] = append(bucket, p)
		return nil
	}

	return h.unmapPages(p)
}

// usableSize reports the size of the mapping backing payload, which may be
// larger than the size originally requested.
func (h *osHeap) usableSize(payload unsafe.Pointer) int {
	if payload == nil {
		return 0
	}
	p := pageOf(payload)
	return p.pages*osPageSize - osPageHeaderSize
}

// realloc changes payload's size, preserving min(old, new) leading bytes. A
// nil payload behaves as malloc; a zero size behaves as free.
func (h *osHeap) realloc(payload unsafe.Pointer, size int) (unsafe.Pointer, error) {
	h.tracef("osHeap.realloc(%p, %#x)\n", payload, size)
	switch {
	case payload == nil:
		return h.malloc(size)
	case size == 0:
		return nil, h.free(payload)
	}

	us := h.usableSize(payload)
	if us >= size {
		return payload, nil
	}

	r, err := h.malloc(size)
	if err != nil {
		return nil, err
	}
	copyBytes(r, payload, us)
	return r, h.free(payload)
}

// close releases every OS mapping still held by h — pooled or live — and
// resets it.
func (h *osHeap) close() error {
	var err error
	for p := range h.regs {
		if e := h.unmapPages(p); e != nil && err == nil {
			err = e
		}
	}
	*h = osHeap{}
	return err
}

func zero(p unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}

func copyBytes(dst, src unsafe.Pointer, n int) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}
