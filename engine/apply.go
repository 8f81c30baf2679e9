package engine

import "github.com/cwbudde/algo-playerfx/chain"

// Parameter mapping constants: user-facing 0–100 intensities onto node
// ranges.
const (
	bassMaxGainDB = 12.0

	compMinThresholdDB = -20.0
	compMaxThresholdDB = -50.0
	compMinRatio       = 4.0
	compMaxRatio       = 12.0

	reverbMaxWet      = 0.6
	reverbMinRoomSize = 0.5
	reverbMaxRoomSize = 0.9

	enhancerMaxExtraWidth = 1.0

	loudnessMaxBoostDB = 12.0
)

// paramSnapshot is an immutable copy of everything the parameter mapper
// pushes into a graph.
type paramSnapshot struct {
	eqEnabled bool
	bands     [chain.BandCount]float64
	effects   map[Effect]EffectSettings
}

func (e *Engine) snapshotLocked() paramSnapshot {
	effects := make(map[Effect]EffectSettings, len(e.effects))
	for k, v := range e.effects {
		effects[k] = v
	}

	return paramSnapshot{
		eqEnabled: e.eqEnabled,
		bands:     e.bands,
		effects:   effects,
	}
}

// applyCurrentLocked re-pushes the full parameter set into the currently
// bound graph. Caller holds e.mu.
func (e *Engine) applyCurrentLocked() {
	if e.current == nil {
		return
	}

	snap := e.snapshotLocked()

	e.current.mu.Lock()
	applyToGraph(e.current.graph, snap)
	e.current.mu.Unlock()
}

// applyToGraph maps user-facing settings onto live node parameters. It
// is a no-op without a graph, idempotent, and never rebuilds anything:
// every push lands on an existing node in place.
func applyToGraph(g *chain.Graph, s paramSnapshot) {
	if g == nil {
		return
	}

	g.SetEQEnabled(s.eqEnabled)

	for i := 0; i < chain.BandCount; i++ {
		g.Band(i).SetGain(s.bands[i])
	}

	bass := s.effects[EffectBassBoost]
	if bass.Enabled {
		g.Bass().SetGain(bassMaxGainDB * float64(bass.Intensity) / 100)
	} else {
		g.Bass().SetGain(0)
	}

	comp := s.effects[EffectCompressor]
	if comp.Enabled {
		frac := float64(comp.Intensity) / 100
		threshold := compMinThresholdDB + (compMaxThresholdDB-compMinThresholdDB)*frac
		ratio := compMinRatio + (compMaxRatio-compMinRatio)*frac
		g.Compressor().SetParams(threshold, ratio)
	} else {
		g.Compressor().SetParams(0, 1)
	}

	rev := s.effects[EffectReverb]
	if rev.Enabled {
		frac := float64(rev.Intensity) / 100
		g.Reverb().SetMix(reverbMaxWet*frac, reverbMinRoomSize+(reverbMaxRoomSize-reverbMinRoomSize)*frac)
	} else {
		g.Reverb().SetMix(0, reverbMinRoomSize)
	}

	enh := s.effects[EffectEnhancer]
	if enh.Enabled {
		g.Enhancer().SetWidth(1 + enhancerMaxExtraWidth*float64(enh.Intensity)/100)
	} else {
		g.Enhancer().SetWidth(1)
	}

	loud := s.effects[EffectLoudness]
	g.Gain().SetNormalization(loud.Enabled, loudnessMaxBoostDB*float64(loud.Intensity)/100)
}
