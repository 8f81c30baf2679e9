package engine

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-playerfx/chain"
	"github.com/cwbudde/algo-playerfx/preset"
	"github.com/cwbudde/algo-playerfx/settings"
)

// EQEnabled reports whether the equalizer band section is active.
func (e *Engine) EQEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.eqEnabled
}

// SetEQEnabled toggles the equalizer band section.
func (e *Engine) SetEQEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.eqEnabled = enabled
	settings.Save(e.store, keyEQEnabled, enabled)
	e.applyCurrentLocked()
}

// Bands returns a copy of all band gains in dB.
func (e *Engine) Bands() [chain.BandCount]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bands
}

// Band returns the gain of band i in dB, or 0 if i is out of range.
func (e *Engine) Band(i int) float64 {
	if i < 0 || i >= chain.BandCount {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bands[i]
}

// SetBand sets the gain of band i in dB, clamped to [-12, 12]. A manual
// band edit always clears the current preset, even if the new value
// happens to match it.
func (e *Engine) SetBand(i int, db float64) {
	if i < 0 || i >= chain.BandCount {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.bands[i] = clamp(db, minBandGainDB, maxBandGainDB)
	e.currentPreset = ""

	settings.Save(e.store, keyEQBands, e.bands)
	settings.Save(e.store, keyEQPreset, e.currentPreset)
	e.applyCurrentLocked()
}

// CurrentPreset returns the active preset name, or "" when the bands
// have been hand-edited since the last preset selection.
func (e *Engine) CurrentPreset() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.currentPreset
}

// SetPreset loads the named preset into the bands. Custom presets shadow
// built-in ones of the same name.
func (e *Engine) SetPreset(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tuple, ok := e.lookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}

	e.bands = tuple
	e.currentPreset = name

	settings.Save(e.store, keyEQBands, e.bands)
	settings.Save(e.store, keyEQPreset, e.currentPreset)
	e.applyCurrentLocked()

	return nil
}

// SaveCustomPreset stores the current band values as a named custom
// preset and makes it the active preset.
func (e *Engine) SaveCustomPreset(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownPreset)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.customPresets[name] = e.bands
	e.currentPreset = name

	settings.Save(e.store, keyEQCustomPresets, e.customPresets)
	settings.Save(e.store, keyEQPreset, e.currentPreset)

	return nil
}

// DeleteCustomPreset removes a custom preset. Deleting the active preset
// clears the current preset name; deleting any other leaves it alone.
func (e *Engine) DeleteCustomPreset(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.customPresets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}

	delete(e.customPresets, name)

	if e.currentPreset == name {
		e.currentPreset = ""
		settings.Save(e.store, keyEQPreset, e.currentPreset)
	}

	settings.Save(e.store, keyEQCustomPresets, e.customPresets)

	return nil
}

// BuiltinPresets returns the names of all compiled-in presets.
func (e *Engine) BuiltinPresets() []string {
	return preset.Names()
}

// CustomPresets returns the names of all user presets in sorted order.
func (e *Engine) CustomPresets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.customPresets))
	for name := range e.customPresets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
