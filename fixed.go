package galloc

// fixedRegion strategy wraps exactly one region over caller-provided (or
// caller-owned) memory; it never grows (spec §4.6).
type fixedRegion struct {
	r *region
}

func newFixedRegion(buffer []byte, ownsMemory bool) (*fixedRegion, error) {
	r, err := newRegion(buffer, ownsMemory)
	if err != nil {
		return nil, err
	}
	return &fixedRegion{r: r}, nil
}

func (fr *fixedRegion) make(size int) (*header, error) {
	return fr.r.make(size)
}

func (fr *fixedRegion) owns(h *header) bool {
	return fr.r.contains(h)
}

func (fr *fixedRegion) free(h *header) error {
	fr.r.free(h)
	return nil
}

func (fr *fixedRegion) resize(h *header, size int) (*header, error) {
	if fr.r.resizeInPlace(h, size) {
		return h, nil
	}
	return nil, errExhausted
}

func (fr *fixedRegion) destroy() {
	if fr.r.ownsMemory {
		fr.r.buffer = nil
	}
}
