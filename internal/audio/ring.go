package audio

import "fmt"

// OverlapRing windows a PCM stream into fixed-size frames that share `overlap`
// samples with the previous frame. Storage is a single fixed ring; nothing grows.
type OverlapRing struct {
	buf     []int16
	head    int // index of the oldest buffered sample
	count   int
	overlap int
	fresh   int // samples written since the last emitted window
}

func NewOverlapRing(window, overlap int) (*OverlapRing, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", window, overlap)
	}
	return &OverlapRing{buf: make([]int16, window), overlap: overlap}, nil
}

func (r *OverlapRing) Window() int { return len(r.buf) }

func (r *OverlapRing) Len() int { return r.count }

// Write appends samples and returns every window completed by them, oldest first.
func (r *OverlapRing) Write(samples []int16) [][]int16 {
	var out [][]int16
	for _, s := range samples {
		r.buf[(r.head+r.count)%len(r.buf)] = s
		r.count++
		r.fresh++
		if r.count == len(r.buf) {
			out = append(out, r.snapshot())
			r.drop(len(r.buf) - r.overlap)
			r.fresh = 0
		}
	}
	return out
}

// Flush returns the buffered samples if any arrived after the last window, then resets.
func (r *OverlapRing) Flush() []int16 {
	var out []int16
	if r.fresh > 0 {
		out = r.snapshot()
	}
	r.head, r.count, r.fresh = 0, 0, 0
	return out
}

func (r *OverlapRing) snapshot() []int16 {
	out := make([]int16, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

func (r *OverlapRing) drop(n int) {
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
}
