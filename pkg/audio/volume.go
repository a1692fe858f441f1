package audio

import "math"

// DefaultVolumeGain amplifies the raw RMS so normal speech fills the meter.
const DefaultVolumeGain = 5.0

// RMS returns the root mean square of samples. Empty input yields 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Level returns an advisory volume indicator in [0, 1]: RMS times gain,
// clamped. Non-finite results (NaN samples) read as silence.
func Level(samples []float32, gain float64) float64 {
	v := RMS(samples) * gain
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}
