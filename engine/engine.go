// Package engine is the player-facing audio effects engine. It owns the
// persisted effect settings, the per-track processing chain lifecycle,
// and the mapping from user-facing parameters (band dB values, 0–100
// intensities, playback speed) onto live chain nodes.
//
// Every failure inside the engine is absorbed and downgraded to reduced
// functionality: the overriding contract is that audio keeps playing.
package engine

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-playerfx/chain"
	"github.com/cwbudde/algo-playerfx/media"
	"github.com/cwbudde/algo-playerfx/preset"
	"github.com/cwbudde/algo-playerfx/settings"
)

// Effect identifies one of the toggleable audio effects.
type Effect string

const (
	EffectBassBoost  Effect = "bassboost"
	EffectReverb     Effect = "reverb"
	EffectCompressor Effect = "compressor"
	EffectEnhancer   Effect = "enhancer"
	EffectLoudness   Effect = "loudness"
)

// Effects lists all known effects in a stable order.
func Effects() []Effect {
	return []Effect{EffectBassBoost, EffectReverb, EffectCompressor, EffectEnhancer, EffectLoudness}
}

// EffectSettings is the persisted state of one effect.
type EffectSettings struct {
	Enabled   bool `json:"enabled"`
	Intensity int  `json:"intensity"` // 0–100
}

// CrossfadeState is the persisted crossfade configuration.
type CrossfadeState struct {
	Enabled         bool `json:"enabled"`
	DurationSeconds int  `json:"duration_seconds"` // 0–12
}

// ErrUnknownEffect is returned for effect names the engine does not know.
var ErrUnknownEffect = errors.New("engine: unknown effect")

// ErrUnknownPreset is returned when a preset name resolves to neither a
// built-in nor a custom preset.
var ErrUnknownPreset = errors.New("engine: unknown preset")

// Settings store keys. Values are JSON.
const (
	keyEQEnabled       = "eq.enabled"
	keyEQBands         = "eq.bands"
	keyEQPreset        = "eq.preset"
	keyEQCustomPresets = "eq.custom_presets"
	keyCrossfade       = "crossfade"
	keySpeed           = "playback.speed"
)

func effectKey(e Effect) string { return "effect." + string(e) }

const (
	defaultSpeed             = 1.0
	defaultEffectIntensity   = 50
	defaultCrossfadeDuration = 3

	minSpeed = 0.5
	maxSpeed = 2.0

	minBandGainDB = -12.0
	maxBandGainDB = 12.0

	maxCrossfadeDuration = 12
)

// Option mutates engine construction.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithGraphOptions forwards options to every chain built by the engine.
func WithGraphOptions(opts ...chain.Option) Option {
	return func(e *Engine) { e.graphOpts = opts }
}

// Engine is the audio effects engine. All methods are safe for
// concurrent use.
type Engine struct {
	mu    sync.Mutex
	store settings.Store
	log   zerolog.Logger

	eqEnabled     bool
	bands         [chain.BandCount]float64
	currentPreset string // "" means hand-edited ("custom")
	customPresets map[string][chain.BandCount]float64

	effects   map[Effect]EffectSettings
	crossfade CrossfadeState
	speed     float64

	bindings map[media.Element]*binding
	current  *binding
	state    BindState

	graphOpts []chain.Option
	// newGraph builds the processing chain for a context. Replaced in
	// tests to simulate node construction failure.
	newGraph func(ctx *chain.Context) (*chain.Graph, error)
}

// New creates an engine backed by store, restoring all persisted
// settings. Corrupt or missing values fall back to compiled-in defaults.
func New(store settings.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		log:      zerolog.Nop(),
		effects:  make(map[Effect]EffectSettings, len(Effects())),
		bindings: make(map[media.Element]*binding),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.newGraph = func(ctx *chain.Context) (*chain.Graph, error) {
		return chain.New(ctx, e.graphOpts...)
	}

	e.restore()

	return e
}

// restore loads persisted state, clamping everything to its documented
// range so a tampered store can never produce out-of-range node values.
func (e *Engine) restore() {
	e.eqEnabled = settings.Load(e.store, keyEQEnabled, false)

	bands := settings.Load(e.store, keyEQBands, [chain.BandCount]float64{})
	for i, v := range bands {
		e.bands[i] = clamp(v, minBandGainDB, maxBandGainDB)
	}

	e.customPresets = settings.Load(e.store, keyEQCustomPresets, map[string][chain.BandCount]float64{})
	if e.customPresets == nil {
		e.customPresets = make(map[string][chain.BandCount]float64)
	}

	for name, tuple := range e.customPresets {
		for i, v := range tuple {
			tuple[i] = clamp(v, minBandGainDB, maxBandGainDB)
		}

		e.customPresets[name] = tuple
	}

	// A missing stored preset name restores as hand-edited bands.
	e.currentPreset = settings.Load(e.store, keyEQPreset, "")
	if e.currentPreset != "" {
		if _, ok := e.lookupPreset(e.currentPreset); !ok {
			e.currentPreset = ""
		}
	}

	for _, effect := range Effects() {
		def := EffectSettings{Enabled: false, Intensity: defaultEffectIntensity}
		s := settings.Load(e.store, effectKey(effect), def)
		s.Intensity = clampInt(s.Intensity, 0, 100)
		e.effects[effect] = s
	}

	cf := settings.Load(e.store, keyCrossfade, CrossfadeState{Enabled: false, DurationSeconds: defaultCrossfadeDuration})
	cf.DurationSeconds = clampInt(cf.DurationSeconds, 0, maxCrossfadeDuration)
	e.crossfade = cf

	e.speed = clamp(settings.Load(e.store, keySpeed, defaultSpeed), minSpeed, maxSpeed)
}

// lookupPreset resolves name against custom presets first, then the
// built-in table.
func (e *Engine) lookupPreset(name string) ([chain.BandCount]float64, bool) {
	if tuple, ok := e.customPresets[name]; ok {
		return tuple, true
	}

	return preset.Lookup(name)
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}

	if v > maxV {
		return maxV
	}

	return v
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}

	if v > maxV {
		return maxV
	}

	return v
}
