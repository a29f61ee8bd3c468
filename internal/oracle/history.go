package oracle

import (
	"sync"
	"time"
)

// HistoryCapacity is the fixed number of price samples retained.
const HistoryCapacity = 20

type sample struct {
	price float64
	ts    time.Time
}

// History is a fixed-capacity ring buffer of price samples used for the
// volatility window. Samples are deduplicated by timestamp: an append
// carrying the same timestamp as the most recent sample is discarded.
type History struct {
	mu      sync.Mutex
	samples [HistoryCapacity]sample
	head    int // index of the next write slot
	size    int
}

// NewHistory creates an empty price history.
func NewHistory() *History {
	return &History{}
}

// Append adds a sample unless its timestamp matches the last-added one.
// Returns true when the sample was stored.
func (h *History) Append(price float64, ts time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size > 0 {
		last := h.samples[(h.head+HistoryCapacity-1)%HistoryCapacity]
		if last.ts.Equal(ts) {
			return false
		}
	}

	h.samples[h.head] = sample{price: price, ts: ts}
	h.head = (h.head + 1) % HistoryCapacity
	if h.size < HistoryCapacity {
		h.size++
	}
	return true
}

// Size returns the number of samples currently held.
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Volatility returns the percentage price change over the buffer's
// current span: (newest - oldest) / oldest * 100. Fewer than two samples
// yield zero.
func (h *History) Volatility() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < 2 {
		return 0
	}

	newest := h.samples[(h.head+HistoryCapacity-1)%HistoryCapacity]
	oldest := h.samples[(h.head+HistoryCapacity-h.size)%HistoryCapacity]
	if oldest.price == 0 {
		return 0
	}
	return (newest.price - oldest.price) / oldest.price * 100
}

// Span returns the timestamps bounding the current window.
func (h *History) Span() (oldest, newest time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == 0 {
		return time.Time{}, time.Time{}
	}
	n := h.samples[(h.head+HistoryCapacity-1)%HistoryCapacity]
	o := h.samples[(h.head+HistoryCapacity-h.size)%HistoryCapacity]
	return o.ts, n.ts
}
