package audio

import "math"

// SpeechRMSThreshold is the RMS level a buffer must exceed to count as speech.
// Kept low so soft speakers still get through.
const SpeechRMSThreshold = 20.0

// Stats summarizes a PCM buffer. Exact zeros are treated as padding, not signal.
type Stats struct {
	TotalSamples   int     `json:"total_samples"`
	NonZeroSamples int     `json:"non_zero_samples"`
	RMS            float64 `json:"rms"`
	Max            int16   `json:"max"`
	Min            int16   `json:"min"`
}

// Analyze computes RMS over the non-zero samples. RMS is 0 when every sample is zero.
func Analyze(samples []int16) Stats {
	st := Stats{TotalSamples: len(samples)}
	var sumSquares float64
	for _, s := range samples {
		if s == 0 {
			continue
		}
		v := float64(s)
		sumSquares += v * v
		st.NonZeroSamples++
		if s > st.Max {
			st.Max = s
		}
		if s < st.Min {
			st.Min = s
		}
	}
	if st.NonZeroSamples > 0 {
		st.RMS = math.Sqrt(sumSquares / float64(st.NonZeroSamples))
	}
	return st
}

func RMS(samples []int16) float64 { return Analyze(samples).RMS }

// IsSpeech reports whether the buffer's RMS exceeds SpeechRMSThreshold.
func IsSpeech(samples []int16) bool {
	return RMS(samples) > SpeechRMSThreshold
}
