// Package chain builds and runs the player's fixed-topology audio
// processing graph:
//
//	source → 10 peaking band filters → bass shelf → compressor →
//	reverb → gain (loudness) → stereo enhancer → analyser → output
//
// The graph is wired once, strictly in this order; afterwards every
// parameter change is pushed into the live nodes in place. Nodes are
// never recreated for a parameter change.
package chain

import "fmt"

// Option mutates graph construction parameters.
type Option func(*config) error

type config struct {
	fftSize        int
	smoothing      float64
	loudnessTarget float64
}

func defaultConfig() config {
	return config{
		fftSize:        256,
		smoothing:      0.4,
		loudnessTarget: loudnessTargetLUFS,
	}
}

// WithFFTSize sets the analyser FFT size. Valid sizes are powers of two
// in [128, 2048].
func WithFFTSize(n int) Option {
	return func(cfg *config) error {
		switch n {
		case 128, 256, 512, 1024, 2048:
			cfg.fftSize = n

			return nil
		default:
			return fmt.Errorf("chain: unsupported fft size: %d", n)
		}
	}
}

// WithSmoothing sets the analyser smoothing constant in [0, 0.95].
func WithSmoothing(v float64) Option {
	return func(cfg *config) error {
		if v < 0 || v > 0.95 {
			return fmt.Errorf("chain: smoothing must be in [0, 0.95]: %f", v)
		}

		cfg.smoothing = v

		return nil
	}
}

// WithLoudnessTarget sets the normalization target in LUFS.
func WithLoudnessTarget(lufs float64) Option {
	return func(cfg *config) error {
		if lufs > 0 || lufs < -40 {
			return fmt.Errorf("chain: loudness target must be in [-40, 0] LUFS: %f", lufs)
		}

		cfg.loudnessTarget = lufs

		return nil
	}
}

// Graph is the built processing chain. All nodes belong to the Context
// the graph was built against and die with it.
type Graph struct {
	ctx *Context

	bands    [BandCount]*BandFilter
	bass     *ShelfFilter
	comp     *CompressorNode
	reverb   *ReverbNode
	gain     *GainNode
	enhancer *EnhancerNode
	analyser *Analyser

	eqEnabled bool
}

// New builds the full chain against ctx. Construction is all-or-nothing:
// on error no partial graph is returned and the caller falls back to a
// direct source → output connection.
func New(ctx *Context, opts ...Option) (*Graph, error) {
	if ctx == nil {
		return nil, fmt.Errorf("chain: nil context")
	}

	if ctx.Closed() {
		return nil, ErrContextClosed
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	sr := ctx.SampleRate()

	g := &Graph{ctx: ctx}

	for i, freq := range BandFrequencies {
		g.bands[i] = newBandFilter(freq, sr)
	}

	g.bass = newShelfFilter(bassShelfFreq, sr)

	comp, err := newCompressorNode(sr)
	if err != nil {
		return nil, err
	}

	g.comp = comp
	g.reverb = newReverbNode()
	g.gain = newGainNode(sr, cfg.loudnessTarget)

	enhancer, err := newEnhancerNode(sr)
	if err != nil {
		return nil, err
	}

	g.enhancer = enhancer

	analyser, err := newAnalyser(cfg.fftSize, cfg.smoothing)
	if err != nil {
		return nil, err
	}

	g.analyser = analyser

	return g, nil
}

// Context returns the context the graph was built against.
func (g *Graph) Context() *Context { return g.ctx }

// Band returns the i-th equalizer band filter, or nil if out of range.
func (g *Graph) Band(i int) *BandFilter {
	if i < 0 || i >= BandCount {
		return nil
	}

	return g.bands[i]
}

// Bass returns the bass shelf filter.
func (g *Graph) Bass() *ShelfFilter { return g.bass }

// Compressor returns the dynamics compressor node.
func (g *Graph) Compressor() *CompressorNode { return g.comp }

// Reverb returns the reverb node.
func (g *Graph) Reverb() *ReverbNode { return g.reverb }

// Gain returns the makeup gain / loudness normalization node.
func (g *Graph) Gain() *GainNode { return g.gain }

// Enhancer returns the stereo enhancer node.
func (g *Graph) Enhancer() *EnhancerNode { return g.enhancer }

// Analyser returns the analyser tap. Consumers read snapshots only; they
// must not attempt to reconnect or disconnect it.
func (g *Graph) Analyser() *Analyser { return g.analyser }

// SetEQEnabled toggles the equalizer band filters without touching band
// gains. The bass shelf is driven by the bass boost effect and is not
// affected.
func (g *Graph) SetEQEnabled(enabled bool) { g.eqEnabled = enabled }

// EQEnabled reports whether the equalizer section is active.
func (g *Graph) EQEnabled() bool { return g.eqEnabled }

// Process runs samples through the chain in the documented node order.
// A suspended or closed context mutes processing but the analyser keeps
// its last snapshot.
func (g *Graph) Process(samples [][2]float64) {
	if g.ctx.State() != StateRunning {
		return
	}

	if g.eqEnabled {
		for _, band := range g.bands {
			band.process(samples)
		}
	}

	g.bass.process(samples)
	g.comp.process(samples)
	g.reverb.process(samples)
	g.gain.process(samples)
	g.enhancer.process(samples)
	g.analyser.push(samples)
}
