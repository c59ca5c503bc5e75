package buffer

// AcceptWindow is a circular buffer of accept/reject outcomes for a
// Metropolis step. It tracks the acceptance rate over the most recent
// BufSize proposals, which is what the burn-in step-size adaptation keys on:
// the all-time rate is too sluggish to react to a step change.
type AcceptWindow struct {
	buffer    []float64 // actual storage: 1.0 accept, 0.0 reject
	pos       int       // Current position in buffer
	BufSize   int       // BufSize is the fixed number of outcomes kept in memory
	Count     int       // Count is the number of outcomes in memory. Will always be <= BufSize
	TotalSeen int64     // TotalSeen is the total number of times Add has been called
}

// NewAcceptWindow creates a new circular window over totalSize outcomes.
func NewAcceptWindow(totalSize int) *AcceptWindow {
	if totalSize < 1 {
		totalSize = 1
	}

	return &AcceptWindow{
		buffer:  make([]float64, totalSize),
		pos:     0,
		BufSize: totalSize,
		Count:   0,
	}
}

// Internal: return the next array position
func (w *AcceptWindow) nextPos() int {
	return (w.pos + 1) % w.BufSize
}

// Add appends the given outcome to the window, overwriting the oldest entry.
func (w *AcceptWindow) Add(accepted bool) {
	w.TotalSeen++

	if accepted {
		w.buffer[w.pos] = 1.0
	} else {
		w.buffer[w.pos] = 0.0
	}

	w.pos = w.nextPos()

	w.Count++
	if w.Count > w.BufSize {
		w.Count = w.BufSize // max out
	}
}

// Full returns true once Add has been called at least BufSize times, i.e.
// once Rate reflects a complete window.
func (w *AcceptWindow) Full() bool {
	return w.Count >= w.BufSize
}

// Rate returns the acceptance rate over the outcomes currently in the
// window. Returns 0 before any outcome has been added.
func (w *AcceptWindow) Rate() float64 {
	if w.Count < 1 {
		return 0.0
	}

	tot := 0.0
	for i := 0; i < w.Count; i++ {
		tot += w.buffer[i]
	}

	return tot / float64(w.Count)
}

// Reset empties the window without touching TotalSeen. Called after the
// step size changes so the rate reflects only the new step.
func (w *AcceptWindow) Reset() {
	w.pos = 0
	w.Count = 0
}
