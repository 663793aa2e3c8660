package galloc

// growingRegion strategy keeps a vector of regions, each regionSize bytes,
// and appends a fresh one whenever none of the existing ones can serve
// (spec §4.6).
type growingRegion struct {
	regions    []*region
	regionSize int
}

func newGrowingRegion(regionSize int) (*growingRegion, error) {
	if regionSize < headerSize+blockSize {
		return nil, errRegionTooSmall
	}
	return &growingRegion{regionSize: regionSize}, nil
}

func (gr *growingRegion) make(size int) (*header, error) {
	if size > gr.regionSize {
		return nil, errOversize
	}

	for _, r := range gr.regions {
		if h, err := r.make(size); err == nil {
			return h, nil
		}
	}

	r, err := newRegion(make([]byte, gr.regionSize), true)
	if err != nil {
		abort(CategoryBookkeeping, "failed to grow region list: %v", err)
	}
	gr.regions = append(gr.regions, r)
	return r.make(size)
}

func (gr *growingRegion) regionOf(h *header) *region {
	for _, r := range gr.regions {
		if r.contains(h) {
			return r
		}
	}
	return nil
}

func (gr *growingRegion) owns(h *header) bool {
	return gr.regionOf(h) != nil
}

func (gr *growingRegion) free(h *header) error {
	r := gr.regionOf(h)
	if r == nil {
		return errExhausted
	}
	r.free(h)
	return nil
}

func (gr *growingRegion) resize(h *header, size int) (*header, error) {
	if size > gr.regionSize {
		return nil, errOversize
	}

	r := gr.regionOf(h)
	if r == nil {
		return nil, errExhausted
	}

	if r.resizeInPlace(h, size) {
		return h, nil
	}

	newH, err := gr.make(size)
	if err != nil {
		return nil, err
	}
	oldPayload := payloadBytes(h)
	newPayload := payloadBytes(newH)
	n := len(oldPayload)
	if len(newPayload) < n {
		n = len(newPayload)
	}
	copy(newPayload[:n], oldPayload[:n])
	r.free(h)
	return newH, nil
}

func (gr *growingRegion) destroy() {
	gr.regions = nil
}
