package audio

import (
	"math"
	"testing"
)

func TestIsSpeechAllZero(t *testing.T) {
	for _, n := range []int{0, 1, 160, 16000} {
		if IsSpeech(make([]int16, n)) {
			t.Errorf("all-zero buffer of %d samples classified as speech", n)
		}
	}
}

func TestIsSpeechLoudSamples(t *testing.T) {
	samples := make([]int16, 1000)
	samples[10] = 500
	samples[20] = -500

	if !IsSpeech(samples) {
		t.Error("expected speech: non-zero samples have RMS 500")
	}
}

func TestRMSIgnoresZeroPadding(t *testing.T) {
	// Padding with zeros must not dilute the level of the real signal.
	padded := append(make([]int16, 10000), 30, -30, 30, -30)
	if got := RMS(padded); math.Abs(got-30) > 1e-9 {
		t.Errorf("RMS() = %f, want 30", got)
	}
}

func TestIsSpeechThresholdIsExclusive(t *testing.T) {
	atThreshold := []int16{20, -20, 20}
	if IsSpeech(atThreshold) {
		t.Error("RMS equal to the threshold must not count as speech")
	}
	above := []int16{21, -21}
	if !IsSpeech(above) {
		t.Error("RMS above the threshold must count as speech")
	}
}

func TestAnalyze(t *testing.T) {
	st := Analyze([]int16{0, 3, -4, 0})
	if st.TotalSamples != 4 || st.NonZeroSamples != 2 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.Max != 3 || st.Min != -4 {
		t.Errorf("unexpected extremes: %+v", st)
	}
	want := math.Sqrt((9.0 + 16.0) / 2)
	if math.Abs(st.RMS-want) > 1e-9 {
		t.Errorf("RMS = %f, want %f", st.RMS, want)
	}
}
