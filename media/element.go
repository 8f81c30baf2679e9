// Package media supplies the playable media handles the effects engine
// binds to. A handle's identity (pointer) keys the engine's binding
// registry, so at most one live processing chain exists per handle.
package media

import "github.com/gopxl/beep/v2"

// Element is a playable media handle: a stereo sample stream with a
// transport-level playback rate. The rate is a property of the element
// itself, not of any processing chain built on top of it.
type Element interface {
	beep.Streamer

	// SampleRate returns the output sample rate in Hz.
	SampleRate() float64

	// PlaybackRate returns the current playback rate (1 = normal).
	PlaybackRate() float64

	// SetPlaybackRate changes playback speed. Tempo and pitch move
	// together, like a record spun faster or slower.
	SetPlaybackRate(rate float64)
}
