package galloc

// kind selects which of the four strategies an Allocator handle embodies
// (spec §3, "Allocator handle. Tagged sum of four variants").
type kind int

const (
	kindSystemDirect kind = iota
	kindTrackedSystem
	kindFixedRegion
	kindGrowingRegion
)

// strategy is the capability set every variant implements: make (raw
// allocate), owns (ownership test for routing free/resize), free, resize.
// This mirrors spec §9's re-architecture note: "model the handle as a sum
// type... each carrying only its own state and implementing a common
// capability set".
type strategy interface {
	make(size int) (*header, error)
	owns(h *header) bool
	free(h *header) error
	resize(h *header, size int) (*header, error)
}

// Allocator is the single polymorphic handle this package exposes. Its zero
// value is not meaningful on its own; construct one with System,
// NewTrackedSystem, NewFixedRegion or NewGrowingRegion.
type Allocator struct {
	kind     kind
	system   systemDirect
	tracked  *trackedSystem
	fixed    *fixedRegion
	growing  *growingRegion
	fallback *Allocator
}

// systemSentinel is the process-global system-direct handle. It carries no
// per-handle state (systemDirect is stateless), so any number of distinct
// *Allocator values with kind == kindSystemDirect behave identically; this
// one exists purely so System() has something stable to hand back.
var systemSentinel = &Allocator{kind: kindSystemDirect}

// System returns the system-direct handle: an untracked passthrough to the
// OS heap. It is a process-wide sentinel and must never be passed to
// Destroy (spec §3, §5).
func System() *Allocator { return systemSentinel }

// NewTrackedSystem returns a handle that allocates from the OS heap while
// recording ownership of every live block in an internal ledger, so that
// Destroy can release them all. fallback may be nil.
func NewTrackedSystem(fallback *Allocator) *Allocator {
	return &Allocator{kind: kindTrackedSystem, tracked: &trackedSystem{}, fallback: fallback}
}

// NewFixedRegion returns a handle over exactly one region spanning buffer.
// If ownsMemory is true, Destroy drops the reference to buffer (allowing it
// to be collected); if false, the caller retains ownership of buffer's
// lifetime. fallback may be nil.
func NewFixedRegion(buffer []byte, ownsMemory bool, fallback *Allocator) (*Allocator, error) {
	fr, err := newFixedRegion(buffer, ownsMemory)
	if err != nil {
		return nil, err
	}
	return &Allocator{kind: kindFixedRegion, fixed: fr, fallback: fallback}, nil
}

// NewFixedRegionOwned is a convenience over NewFixedRegion that allocates
// its own backing buffer of size bytes, analogous to the source's
// fixed-region-on-stack macro.
func NewFixedRegionOwned(size int, fallback *Allocator) (*Allocator, error) {
	return NewFixedRegion(make([]byte, size), true, fallback)
}

// NewGrowingRegion returns a handle that allocates a fresh region_size-byte
// region whenever none of its existing regions can serve a request.
// regionSize must be at least HEADER + BLOCK. fallback may be nil.
func NewGrowingRegion(regionSize int, fallback *Allocator) (*Allocator, error) {
	gr, err := newGrowingRegion(regionSize)
	if err != nil {
		return nil, err
	}
	return &Allocator{kind: kindGrowingRegion, growing: gr, fallback: fallback}, nil
}

// normalize implements the "NULL handle means system-direct" convention
// from spec §6.
func normalize(a *Allocator) *Allocator {
	if a == nil {
		return systemSentinel
	}
	return a
}

// strategyOf returns the concrete strategy implementation for a's kind.
func (a *Allocator) strategyOf() strategy {
	switch a.kind {
	case kindSystemDirect:
		return a.system
	case kindTrackedSystem:
		return a.tracked
	case kindFixedRegion:
		return a.fixed
	case kindGrowingRegion:
		return a.growing
	default:
		abort(CategoryBookkeeping, "unknown allocator kind %d", a.kind)
		return nil
	}
}
