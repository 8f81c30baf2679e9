package engine

import (
	"fmt"

	"github.com/cwbudde/algo-playerfx/settings"
)

// EffectSetting returns the stored state of an effect. Unknown effects
// read as disabled.
func (e *Engine) EffectSetting(effect Effect) EffectSettings {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.effects[effect]
}

// SetEffectEnabled toggles an effect.
func (e *Engine) SetEffectEnabled(effect Effect, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.effects[effect]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEffect, effect)
	}

	s.Enabled = enabled
	e.effects[effect] = s

	settings.Save(e.store, effectKey(effect), s)
	e.applyCurrentLocked()

	return nil
}

// SetEffectIntensity sets an effect's intensity, clamped to [0, 100].
func (e *Engine) SetEffectIntensity(effect Effect, intensity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.effects[effect]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEffect, effect)
	}

	s.Intensity = clampInt(intensity, 0, 100)
	e.effects[effect] = s

	settings.Save(e.store, effectKey(effect), s)
	e.applyCurrentLocked()

	return nil
}
