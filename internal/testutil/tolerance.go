package testutil

import (
	"math"
	"testing"
)

// RequireFramesNearlyEqual fails t if got and want differ in length or if
// any sample pair exceeds eps (absolute tolerance).
func RequireFramesNearlyEqual(t *testing.T, got, want [][2]float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		for ch := 0; ch < 2; ch++ {
			diff := math.Abs(got[i][ch] - want[i][ch])
			if diff > eps {
				t.Fatalf("frame %d ch %d: got %v, want %v (diff %v > eps %v)", i, ch, got[i][ch], want[i][ch], diff, eps)
			}
		}
	}
}

// RequireFinite fails t if any sample is NaN or Inf.
func RequireFinite(t *testing.T, samples [][2]float64) {
	t.Helper()
	for i := range samples {
		for ch := 0; ch < 2; ch++ {
			if v := samples[i][ch]; math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("frame %d ch %d: non-finite value %v", i, ch, v)
			}
		}
	}
}

// RMS returns the root mean square of the mono mix of samples.
func RMS(samples [][2]float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for i := range samples {
		m := (samples[i][0] + samples[i][1]) * 0.5
		sum += m * m
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// SideEnergy returns the total energy of the side (L-R) signal.
func SideEnergy(samples [][2]float64) float64 {
	sum := 0.0
	for i := range samples {
		s := (samples[i][0] - samples[i][1]) * 0.5
		sum += s * s
	}

	return sum
}
