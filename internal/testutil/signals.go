// Package testutil provides deterministic stereo test signals and
// comparison helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// StereoSine generates frames of a sine at freqHz on both channels.
func StereoSine(freqHz, sampleRate, amplitude float64, frames int) [][2]float64 {
	out := make([][2]float64, frames)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		s := amplitude * math.Sin(step*float64(i))
		out[i][0] = s
		out[i][1] = s
	}

	return out
}

// DetunedSine generates frames with independent sines per channel, for
// signals that need side (L-R) content.
func DetunedSine(leftHz, rightHz, sampleRate, amplitude float64, frames int) [][2]float64 {
	out := make([][2]float64, frames)
	for i := range out {
		t := float64(i) / sampleRate
		out[i][0] = amplitude * math.Sin(2*math.Pi*leftHz*t)
		out[i][1] = amplitude * math.Sin(2*math.Pi*rightHz*t)
	}

	return out
}

// StereoNoise generates white noise with a fixed seed for reproducibility.
func StereoNoise(seed int64, amplitude float64, frames int) [][2]float64 {
	out := make([][2]float64, frames)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i][0] = (rng.Float64()*2 - 1) * amplitude
		out[i][1] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Burst generates a sine burst followed by silence.
func Burst(freqHz, sampleRate, amplitude float64, burstFrames, totalFrames int) [][2]float64 {
	out := make([][2]float64, totalFrames)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := 0; i < burstFrames && i < totalFrames; i++ {
		s := amplitude * math.Sin(step*float64(i))
		out[i][0] = s
		out[i][1] = s
	}

	return out
}
