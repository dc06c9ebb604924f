package ui

// History keeps the most recent values of an observable for the trace overlay.
type History struct {
	vals  []float64
	start int
	n     int
}

// NewHistory returns a ring buffer holding up to capacity values.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{vals: make([]float64, capacity)}
}

// Push appends v, dropping the oldest value when full.
func (h *History) Push(v float64) {
	if h.n < len(h.vals) {
		h.vals[(h.start+h.n)%len(h.vals)] = v
		h.n++
		return
	}
	h.vals[h.start] = v
	h.start = (h.start + 1) % len(h.vals)
}

// Len returns the number of stored values.
func (h *History) Len() int { return h.n }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.vals) }

// Values copies the stored values oldest first into dst.
func (h *History) Values(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < h.n; i++ {
		dst = append(dst, h.vals[(h.start+i)%len(h.vals)])
	}
	return dst
}

// Reset empties the buffer.
func (h *History) Reset() {
	h.start = 0
	h.n = 0
}

// traceY maps a value in [lo, hi] to a pixel row in a strip of the given
// height, with hi at the top. Values outside the range are clamped.
func traceY(v, lo, hi float64, top, height int) float64 {
	if hi <= lo || height <= 1 {
		return float64(top)
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return float64(top) + (1-t)*float64(height-1)
}
