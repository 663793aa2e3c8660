package galloc

import (
	"testing"
	"unsafe"
)

func payloadBytesRaw(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}

func TestOsHeapMallocFreeRoundTrip(t *testing.T) {
	h := &osHeap{}
	p, err := h.malloc(64)
	if err != nil {
		t.Fatalf("malloc: %v", err)
	}
	if p == nil {
		t.Fatal("malloc(64) returned nil")
	}
	if got := h.usableSize(p); got < 64 {
		t.Fatalf("usableSize = %d, want >= 64", got)
	}
	if err := h.free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestOsHeapMallocZeroSizeIsNil(t *testing.T) {
	h := &osHeap{}
	p, err := h.malloc(0)
	if err != nil || p != nil {
		t.Fatalf("malloc(0) = (%p, %v), want (nil, nil)", p, err)
	}
}

func TestOsHeapCallocZeroesMemory(t *testing.T) {
	h := &osHeap{}
	p, err := h.calloc(64)
	if err != nil {
		t.Fatalf("calloc: %v", err)
	}
	for i, b := range payloadBytesRaw(p, 64) {
		if b != 0 {
			t.Fatalf("calloc byte %d = %d, want 0", i, b)
		}
	}
	if err := h.free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestOsHeapReallocPreservesContent(t *testing.T) {
	h := &osHeap{}
	p, err := h.malloc(32)
	if err != nil {
		t.Fatalf("malloc: %v", err)
	}
	src := payloadBytesRaw(p, 32)
	for i := range src {
		src[i] = byte(i + 1)
	}

	grown, err := h.realloc(p, 4096)
	if err != nil {
		t.Fatalf("realloc: %v", err)
	}
	dst := payloadBytesRaw(grown, 32)
	for i := range dst {
		if dst[i] != byte(i+1) {
			t.Fatalf("realloc lost byte %d: got %d, want %d", i, dst[i], i+1)
		}
	}
	if err := h.free(grown); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestOsHeapFreeReusesPooledPage(t *testing.T) {
	h := &osHeap{}
	p, err := h.malloc(64)
	if err != nil {
		t.Fatalf("malloc: %v", err)
	}
	mmapsAfterFirst := h.mmaps
	if err := h.free(p); err != nil {
		t.Fatalf("free: %v", err)
	}

	q, err := h.malloc(64)
	if err != nil {
		t.Fatalf("malloc (reuse): %v", err)
	}
	if h.mmaps != mmapsAfterFirst {
		t.Fatalf("mmaps after reuse = %d, want %d (no fresh mapping expected)", h.mmaps, mmapsAfterFirst)
	}
	if q != p {
		t.Fatalf("expected the pooled page to be handed back: got %p, want %p", q, p)
	}
	if err := h.free(q); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestOsHeapFreeBeyondPoolCapUnmaps(t *testing.T) {
	h := &osHeap{}
	var pages []unsafe.Pointer
	for i := 0; i < osPagePoolCap+2; i++ {
		p, err := h.malloc(64)
		if err != nil {
			t.Fatalf("malloc %d: %v", i, err)
		}
		pages = append(pages, p)
	}
	for _, p := range pages {
		if err := h.free(p); err != nil {
			t.Fatalf("free: %v", err)
		}
	}
	if h.mmaps != osPagePoolCap {
		t.Fatalf("mmaps after exceeding the pool cap = %d, want %d", h.mmaps, osPagePoolCap)
	}
}

func TestOsHeapCloseUnmapsEverything(t *testing.T) {
	h := &osHeap{}
	p, err := h.malloc(64)
	if err != nil {
		t.Fatalf("malloc: %v", err)
	}
	_ = p
	if err := h.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.mmaps != 0 {
		t.Fatalf("mmaps after close = %d, want 0", h.mmaps)
	}
}

func TestWithTraceTogglesSharedHeap(t *testing.T) {
	WithTrace(true)
	if !sharedOSHeap.trace {
		t.Fatal("WithTrace(true) did not set the shared heap's trace flag")
	}
	WithTrace(false)
	if sharedOSHeap.trace {
		t.Fatal("WithTrace(false) did not clear the shared heap's trace flag")
	}
}
