package frame

// Ring is a fixed-capacity circular store of the most recently captured
// frames. Pushing onto a full ring silently overwrites the oldest slot.
//
// Ring performs no locking of its own: the stability detector is the
// sole writer and serializes all access under its own mutex.
type Ring struct {
	frames []*Frame
	next   int // write position, wraps at capacity
	count  int // saturates at capacity
}

// NewRing creates a ring with capacity max(size, 2). At least two frames
// are required for any comparison, so smaller capacities are meaningless.
func NewRing(size int) *Ring {
	if size < 2 {
		size = 2
	}
	return &Ring{frames: make([]*Frame, size)}
}

// Push stores a frame, overwriting the oldest entry once full. O(1).
func (r *Ring) Push(f *Frame) {
	r.frames[r.next] = f
	r.next = (r.next + 1) % len(r.frames)
	if r.count < len(r.frames) {
		r.count++
	}
}

// Recent returns up to k frames ordered most-recent-first. When fewer
// than k frames exist the tail is padded with nils rather than failing.
func (r *Ring) Recent(k int) []*Frame {
	out := make([]*Frame, k)
	for i := 0; i < k && i < r.count; i++ {
		idx := (r.next - 1 - i + len(r.frames)*2) % len(r.frames)
		out[i] = r.frames[idx]
	}
	return out
}

// Clear resets the ring to empty without changing capacity.
func (r *Ring) Clear() {
	for i := range r.frames {
		r.frames[i] = nil
	}
	r.next = 0
	r.count = 0
}

// Len reports how many frames are currently held.
func (r *Ring) Len() int { return r.count }

// Cap reports the fixed capacity.
func (r *Ring) Cap() int { return len(r.frames) }

// Full reports whether the ring has reached capacity.
func (r *Ring) Full() bool { return r.count == len(r.frames) }
