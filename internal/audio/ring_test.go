package audio

import "testing"

func seq(from, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(from + i)
	}
	return out
}

func TestOverlapRingWindows(t *testing.T) {
	r, err := NewOverlapRing(4, 1)
	if err != nil {
		t.Fatalf("NewOverlapRing: %v", err)
	}

	windows := r.Write(seq(1, 10))
	// windows: [1..4], [4..7], [7..10]
	want := [][]int16{{1, 2, 3, 4}, {4, 5, 6, 7}, {7, 8, 9, 10}}
	if len(windows) != len(want) {
		t.Fatalf("got %d windows, want %d", len(windows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if windows[i][j] != want[i][j] {
				t.Errorf("window %d = %v, want %v", i, windows[i], want[i])
				break
			}
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want the overlap (1)", r.Len())
	}
}

func TestOverlapRingAcrossWrites(t *testing.T) {
	r, _ := NewOverlapRing(3, 0)
	if got := r.Write(seq(0, 2)); len(got) != 0 {
		t.Fatalf("unexpected window after 2 samples: %v", got)
	}
	got := r.Write(seq(2, 2))
	if len(got) != 1 || got[0][0] != 0 || got[0][2] != 2 {
		t.Fatalf("unexpected windows: %v", got)
	}
	rest := r.Flush()
	if len(rest) != 1 || rest[0] != 3 {
		t.Errorf("Flush() = %v, want [3]", rest)
	}
	if r.Flush() != nil {
		t.Error("second Flush should be empty")
	}
}

func TestOverlapRingFlushSkipsPureOverlap(t *testing.T) {
	r, _ := NewOverlapRing(4, 2)
	r.Write(seq(0, 4))
	if out := r.Flush(); out != nil {
		t.Errorf("Flush() after an exact window should be empty, got %v", out)
	}
}

func TestNewOverlapRingValidation(t *testing.T) {
	if _, err := NewOverlapRing(0, 0); err == nil {
		t.Error("expected error for zero window")
	}
	if _, err := NewOverlapRing(4, 4); err == nil {
		t.Error("expected error for overlap == window")
	}
}
