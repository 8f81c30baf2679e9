package engine

import (
	"math"

	"github.com/cwbudde/algo-playerfx/settings"
)

// PlaybackSpeed returns the current playback speed.
func (e *Engine) PlaybackSpeed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.speed
}

// SetPlaybackSpeed sets the playback speed, clamped to [0.5, 2.0], and
// pushes it onto the bound media element immediately. Speed is a
// transport property: tempo and pitch change together.
func (e *Engine) SetPlaybackSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.speed = clamp(v, minSpeed, maxSpeed)
	settings.Save(e.store, keySpeed, e.speed)

	if e.current != nil {
		e.current.element.SetPlaybackRate(e.speed)
	}
}

// PitchSemitones returns the pitch offset implied by the current speed:
// round(12·log2(speed)). It is a pure projection, recomputed on demand.
func (e *Engine) PitchSemitones() int {
	e.mu.Lock()
	speed := e.speed
	e.mu.Unlock()

	return int(math.Round(12 * math.Log2(speed)))
}

// Crossfade returns the persisted crossfade configuration.
func (e *Engine) Crossfade() CrossfadeState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.crossfade
}

// SetCrossfadeEnabled toggles crossfading on track changes.
func (e *Engine) SetCrossfadeEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.crossfade.Enabled = enabled
	settings.Save(e.store, keyCrossfade, e.crossfade)
}

// SetCrossfadeDuration sets the crossfade length in seconds, clamped to
// [0, 12].
func (e *Engine) SetCrossfadeDuration(seconds int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.crossfade.DurationSeconds = clampInt(seconds, 0, maxCrossfadeDuration)
	settings.Save(e.store, keyCrossfade, e.crossfade)
}

// FadeOut starts a fade to silence on the currently bound element over
// the configured crossfade duration. Callers switching tracks invoke
// this before connecting the next element.
func (e *Engine) FadeOut() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.crossfade.Enabled {
		return
	}

	frames := e.crossfadeFramesLocked()
	if frames <= 0 {
		return
	}

	e.current.mu.Lock()
	start := 1.0
	if f := e.current.fade; f != nil {
		start = f.gain
	}

	e.current.fade = newFader(start, 0, frames)
	e.current.mu.Unlock()
}

// crossfadeFramesLocked converts the configured duration into sample
// frames at the bound element's rate. Caller holds e.mu.
func (e *Engine) crossfadeFramesLocked() int {
	if e.current == nil {
		return 0
	}

	return int(float64(e.crossfade.DurationSeconds) * e.current.element.SampleRate())
}
