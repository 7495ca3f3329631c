package queue

// history is a bounded deque of completed items with O(1)
// push-and-evict. Once full, pushing drops the oldest entry.
type history struct {
	items []Item
	head  int
	count int
}

func newHistory(capacity int) *history {
	return &history{items: make([]Item, capacity)}
}

// push appends a completed item, evicting the oldest when full.
func (h *history) push(it Item) {
	if h.count == len(h.items) {
		h.items[h.head] = it
		h.head = (h.head + 1) % len(h.items)
		return
	}
	h.items[(h.head+h.count)%len(h.items)] = it
	h.count++
}

// list returns the history most-recent-first.
func (h *history) list() []Item {
	out := make([]Item, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.items[(h.head+h.count-1-i)%len(h.items)]
	}
	return out
}

func (h *history) len() int { return h.count }
