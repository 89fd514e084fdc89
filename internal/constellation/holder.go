package constellation

import "sync/atomic"

// Holder publishes dataset generations. Readers always see a complete
// generation; Store swaps the whole pointer.
type Holder struct {
	current atomic.Pointer[Dataset]
}

// Load returns the current generation, or nil before the first Store.
func (h *Holder) Load() *Dataset {
	return h.current.Load()
}

// Get returns the current generation or ErrNotReady.
func (h *Holder) Get() (*Dataset, error) {
	d := h.current.Load()
	if d == nil {
		return nil, ErrNotReady
	}
	return d, nil
}

// Store publishes d and returns the generation it replaced.
func (h *Holder) Store(d *Dataset) *Dataset {
	return h.current.Swap(d)
}

// Ready reports whether a generation has been published.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}
