package oracle

import (
	"math"
	"testing"
	"time"
)

func TestHistoryCapacityBound(t *testing.T) {
	h := NewHistory()
	base := time.Now()

	for i := 0; i < HistoryCapacity+10; i++ {
		h.Append(2000+float64(i), base.Add(time.Duration(i)*time.Second))
	}

	if h.Size() != HistoryCapacity {
		t.Errorf("Size() = %d, want %d", h.Size(), HistoryCapacity)
	}

	// The oldest retained sample is i=10, the newest i=29.
	oldest, newest := h.Span()
	if !oldest.Equal(base.Add(10 * time.Second)) {
		t.Errorf("oldest span = %v, want base+10s", oldest)
	}
	if !newest.Equal(base.Add(29 * time.Second)) {
		t.Errorf("newest span = %v, want base+29s", newest)
	}
}

func TestHistoryDuplicateTimestampDiscarded(t *testing.T) {
	h := NewHistory()
	ts := time.Now()

	if !h.Append(2000, ts) {
		t.Fatal("first append should store")
	}
	if h.Append(2100, ts) {
		t.Error("append with duplicate timestamp should be discarded")
	}
	if h.Size() != 1 {
		t.Errorf("Size() = %d, want 1", h.Size())
	}

	// The original sample survives, so volatility stays zero.
	if v := h.Volatility(); v != 0 {
		t.Errorf("Volatility() = %v, want 0", v)
	}
}

func TestHistoryVolatility(t *testing.T) {
	h := NewHistory()
	base := time.Now()

	if v := h.Volatility(); v != 0 {
		t.Errorf("empty Volatility() = %v, want 0", v)
	}

	h.Append(2000, base)
	if v := h.Volatility(); v != 0 {
		t.Errorf("single-sample Volatility() = %v, want 0", v)
	}

	h.Append(2100, base.Add(time.Second))
	if v := h.Volatility(); math.Abs(v-5.0) > 1e-9 {
		t.Errorf("Volatility() = %v, want 5.0", v)
	}

	// A drop goes negative.
	h2 := NewHistory()
	h2.Append(2000, base)
	h2.Append(1800, base.Add(time.Second))
	if v := h2.Volatility(); math.Abs(v-(-10.0)) > 1e-9 {
		t.Errorf("Volatility() = %v, want -10.0", v)
	}
}

func TestHistoryVolatilityUsesWindowEdges(t *testing.T) {
	h := NewHistory()
	base := time.Now()

	// Fill past capacity so the original $2,000 sample falls out.
	h.Append(2000, base)
	for i := 1; i <= HistoryCapacity; i++ {
		h.Append(1000, base.Add(time.Duration(i)*time.Second))
	}

	if v := h.Volatility(); v != 0 {
		t.Errorf("Volatility() = %v, want 0 once the old price left the window", v)
	}
}
