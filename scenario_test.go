package galloc

import (
	"testing"
	"unsafe"
)

// TestScenarioFixedRegionBoundedCapacity exercises a fixed-region handle with
// no fallback: the region can serve only as many same-sized requests as its
// buffer holds, and the one that doesn't fit returns NULL rather than
// growing or panicking.
func TestScenarioFixedRegionBoundedCapacity(t *testing.T) {
	a, err := NewFixedRegionOwned(450, nil)
	if err != nil {
		t.Fatalf("NewFixedRegionOwned: %v", err)
	}

	for i := 0; i < 3; i++ {
		if p := Allocate(a, 100); p == nil {
			t.Fatalf("allocation %d of 3 unexpectedly failed", i)
		}
	}
	if p := Allocate(a, 100); p != nil {
		t.Fatal("4th 100-byte allocation should exceed a 450-byte region, got non-nil")
	}
}

// TestScenarioFallbackEngages checks that once a fixed region fills up,
// further requests are served by its fallback, that freeing every pointer
// through the root empties the fallback's ledger, and that the chain can
// then be destroyed.
func TestScenarioFallbackEngages(t *testing.T) {
	fallback := NewTrackedSystem(nil)
	a, err := NewFixedRegionOwned(450, fallback)
	if err != nil {
		t.Fatalf("NewFixedRegionOwned: %v", err)
	}

	var ptrs []unsafe.Pointer
	for i := 0; i < 20; i++ {
		p := Allocate(a, 120)
		if p == nil {
			t.Fatalf("allocation %d of 20 failed even with a fallback", i)
		}
		ptrs = append(ptrs, p)
	}

	spilled := fallback.tracked.ledger.len()
	if spilled == 0 {
		t.Fatal("expected some allocations to have spilled into the fallback")
	}

	for _, p := range ptrs {
		Free(a, p)
	}
	if fallback.tracked.ledger.len() != 0 {
		t.Fatalf("ledger len after freeing every pointer = %d, want 0", fallback.tracked.ledger.len())
	}

	Destroy(a) // must not panic, and must tear down the fallback too
}

// TestScenarioGrowingRegionInPlaceGrow checks that growing an allocation
// that is still the tail of its region extends it in place rather than
// moving it.
func TestScenarioGrowingRegionInPlaceGrow(t *testing.T) {
	a, err := NewGrowingRegion(4096, nil)
	if err != nil {
		t.Fatalf("NewGrowingRegion: %v", err)
	}

	p := Allocate(a, 16)
	if p == nil {
		t.Fatal("initial 16-byte allocation failed")
	}
	grown := Resize(a, p, 64)
	if grown != p {
		t.Fatalf("in-place grow should preserve the pointer: got %p, want %p", grown, p)
	}
}

// TestScenarioGrowingRegionResizeLifecycle walks a growing-region allocation
// through a no-op resize, an oversize rejection, and a shrink that retracts
// the region's bump pointer.
func TestScenarioGrowingRegionResizeLifecycle(t *testing.T) {
	a, err := NewGrowingRegion(1024, nil)
	if err != nil {
		t.Fatalf("NewGrowingRegion: %v", err)
	}

	p := Allocate(a, 900)
	if p == nil {
		t.Fatal("900-byte allocation into a 1024-byte region failed")
	}

	if q := Resize(a, p, 900); q != p {
		t.Fatalf("same-size resize should be a no-op returning the same pointer: got %p, want %p", q, p)
	}

	if q := Resize(a, p, 2000); q != nil {
		t.Fatal("resize beyond the region's own size must fail (oversize), got non-nil")
	}

	q := Resize(a, p, 500)
	if q != p {
		t.Fatalf("shrink of the sole (tail) allocation should preserve the pointer: got %p, want %p", q, p)
	}
}

// TestScenarioCoalescingAvoidsFallback allocates three same-sized blocks in
// a fixed region with no fallback, frees the middle and then the first, and
// checks that a request sized to the two freed blocks combined succeeds
// locally rather than failing outright.
func TestScenarioCoalescingAvoidsFallback(t *testing.T) {
	a, err := NewFixedRegionOwned(1024, nil)
	if err != nil {
		t.Fatalf("NewFixedRegionOwned: %v", err)
	}

	pa := Allocate(a, 40)
	pb := Allocate(a, 40)
	_ = Allocate(a, 40) // c, keeps b from being the tail once freed
	if pa == nil || pb == nil {
		t.Fatal("setup allocations failed")
	}

	ha, hb := headerFromUser(pa), headerFromUser(pb)
	aBlocks, bBlocks := int(ha.blockCount), int(hb.blockCount)

	Free(a, pb)
	Free(a, pa)

	combinedPayload := (aBlocks + headerBlocks + bBlocks) * blockSize
	if p := Allocate(a, combinedPayload); p == nil {
		t.Fatal("allocation sized to the coalesced free span should succeed without a fallback")
	}

	if err := a.Verify(); err != nil {
		t.Fatalf("Verify reported a corrupted region after coalescing: %v", err)
	}
}

// TestScenarioOwnershipRoutingAcrossFallback checks that free and resize
// route to whichever handle in the chain actually owns a pointer, not
// necessarily the one Allocate was originally called through.
func TestScenarioOwnershipRoutingAcrossFallback(t *testing.T) {
	fallback := NewTrackedSystem(nil)
	a, err := NewFixedRegionOwned(256, fallback)
	if err != nil {
		t.Fatalf("NewFixedRegionOwned: %v", err)
	}

	var ptrs []unsafe.Pointer
	for i := 0; i < 10; i++ {
		p := Allocate(a, 1000)
		if p == nil {
			t.Fatalf("allocation %d of 10 failed even with a fallback", i)
		}
		ptrs = append(ptrs, p)
	}

	if fallback.tracked.ledger.len() == 0 {
		t.Fatal("expected most 1000-byte requests to spill past a 256-byte fixed region")
	}

	for _, p := range ptrs {
		h := headerFromUser(p)
		owner := findOwner(a, h)
		if owner == nil {
			t.Fatalf("pointer %p is not owned by any handle in the chain", p)
		}
		if q := Resize(a, p, 200); q == nil {
			t.Fatalf("shrinking a spilled block through the router failed for %p", p)
		}
	}

	for _, p := range ptrs {
		Free(a, p)
	}
	if fallback.tracked.ledger.len() != 0 {
		t.Fatal("fallback ledger should be empty once every pointer is freed")
	}
}

func TestAllocatorStatsAggregatesAcrossChain(t *testing.T) {
	fallback := NewTrackedSystem(nil)
	a, err := NewFixedRegionOwned(512, fallback)
	if err != nil {
		t.Fatalf("NewFixedRegionOwned: %v", err)
	}
	_ = Allocate(a, 1000) // spills into the fallback

	s := a.Stats()
	if s.Regions == 0 {
		t.Fatal("Stats().Regions should count the fixed region")
	}
	if s.Allocations == 0 {
		t.Fatal("Stats().Allocations should count the spilled tracked-system block")
	}
}
