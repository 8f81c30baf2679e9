package engine

import (
	"sync"

	"github.com/gopxl/beep/v2"

	"github.com/cwbudde/algo-playerfx/chain"
	"github.com/cwbudde/algo-playerfx/media"
)

// BindState is the lifecycle state of the engine with respect to its
// current media element.
type BindState int

const (
	// Unbound means no element is connected.
	Unbound BindState = iota
	// BoundFresh means the current context was created by the latest
	// Connect call.
	BoundFresh
	// BoundReused means the latest Connect recovered an element's
	// earlier binding and rebuilt the chain on its existing source.
	BoundReused
)

func (s BindState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case BoundFresh:
		return "bound-fresh"
	case BoundReused:
		return "bound-reused"
	default:
		return "unknown"
	}
}

// connectAction is the resolved transition for a Connect call.
type connectAction int

const (
	// actionNone: already bound to this element with a live context.
	actionNone connectAction = iota
	// actionReuse: the element carries a live binding from an earlier
	// attach; keep its source, rebuild the chain.
	actionReuse
	// actionFresh: new element, or its stored context is closed.
	actionFresh
)

// source is the single entry point from a media element into a context's
// processing graph. At most one source exists per element and live
// context; the binding registry enforces this.
type source struct {
	el media.Element
}

func (s *source) Stream(samples [][2]float64) (int, bool) { return s.el.Stream(samples) }

func (s *source) Err() error { return s.el.Err() }

// binding ties one media element to its context, source and chain. A nil
// graph means only the baseline direct source-to-output wiring exists,
// which is the fallback that keeps audio flowing when a build fails.
type binding struct {
	mu      sync.Mutex
	element media.Element
	ctx     *chain.Context
	source  *source
	graph   *chain.Graph
	fade    *fader
}

// Stream pulls from the source and runs the chain, or passes audio
// through unprocessed when only the baseline wiring exists.
func (b *binding) Stream(samples [][2]float64) (int, bool) {
	n, ok := b.source.Stream(samples)

	b.mu.Lock()
	if b.graph != nil {
		b.graph.Process(samples[:n])
	}

	if b.fade != nil {
		b.fade.apply(samples[:n])
		if b.fade.done() {
			b.fade = nil
		}
	}
	b.mu.Unlock()

	return n, ok
}

func (b *binding) Err() error { return b.source.Err() }

// fader is a linear per-frame gain ramp used for crossfades.
type fader struct {
	gain   float64
	target float64
	step   float64
}

func newFader(start, target float64, frames int) *fader {
	if frames < 1 {
		frames = 1
	}

	return &fader{
		gain:   start,
		target: target,
		step:   (target - start) / float64(frames),
	}
}

func (f *fader) apply(samples [][2]float64) {
	for i := range samples {
		if f.gain != f.target {
			f.gain += f.step
			if (f.step > 0 && f.gain > f.target) || (f.step < 0 && f.gain < f.target) {
				f.gain = f.target
			}
		}

		samples[i][0] *= f.gain
		samples[i][1] *= f.gain
	}
}

// done reports whether the ramp has settled at unity gain, at which
// point it can be dropped from the audio path.
func (f *fader) done() bool {
	return f.gain == f.target && f.target == 1
}

// Connect binds the engine to el, deciding between reusing the
// element's existing binding and building a fresh context:
//
//   - already bound to el with a live context: no-op apart from resuming
//     a suspended context; no node is recreated.
//   - el carries a live binding from an earlier attach: the existing
//     source is kept and the chain rebuilt around it.
//   - otherwise: any previous different element's context is closed
//     first, then a fresh context and source are created.
//
// In every path the source is connected straight to the output before
// the full chain is attempted, so a failure mid-build degrades to
// unprocessed audio instead of silence. Connect never returns an error;
// failures are logged and absorbed.
func (e *Engine) Connect(el media.Element) {
	if el == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.resolveLocked(el) {
	case actionNone:
		if err := e.current.ctx.Resume(); err != nil {
			e.log.Warn().Err(err).Msg("resume failed")
		}

	case actionReuse:
		b := e.bindings[el]

		if err := b.ctx.Resume(); err != nil {
			e.log.Warn().Err(err).Msg("resume failed")
		}

		e.current = b
		e.state = BoundReused
		e.rebuildLocked(b)
		el.SetPlaybackRate(e.speed)

	case actionFresh:
		e.closePreviousLocked(el)

		ctx, err := chain.NewContext(el.SampleRate())
		if err != nil {
			// No audio context: playback continues without effects.
			e.log.Warn().Err(err).Msg("context creation failed, no effects for this element")
			e.current = nil
			e.state = Unbound

			return
		}

		b := &binding{element: el, ctx: ctx, source: &source{el: el}}
		e.bindings[el] = b
		e.current = b
		e.state = BoundFresh

		e.rebuildLocked(b)
		el.SetPlaybackRate(e.speed)

		if e.crossfade.Enabled {
			if frames := e.crossfadeFramesLocked(); frames > 0 {
				b.mu.Lock()
				b.fade = newFader(0, 1, frames)
				b.mu.Unlock()
			}
		}
	}
}

// resolveLocked is the single authoritative reuse-vs-rebuild decision.
// Caller holds e.mu.
func (e *Engine) resolveLocked(el media.Element) connectAction {
	if e.current != nil && e.current.element == el && !e.current.ctx.Closed() {
		return actionNone
	}

	if b := e.bindings[el]; b != nil && !b.ctx.Closed() {
		return actionReuse
	}

	return actionFresh
}

// closePreviousLocked closes the context bound to any element other than
// next, and drops stale (closed) bindings of next itself. Caller holds
// e.mu.
func (e *Engine) closePreviousLocked(next media.Element) {
	if e.current != nil && e.current.element != next {
		if err := e.current.ctx.Close(); err != nil {
			e.log.Warn().Err(err).Msg("context close failed")
		}

		delete(e.bindings, e.current.element)
		e.current = nil
	}

	if b := e.bindings[next]; b != nil && b.ctx.Closed() {
		delete(e.bindings, next)
	}
}

// rebuildLocked wires b's processing chain. The baseline direct
// connection is established first (graph nil); only a fully built chain
// replaces it. Caller holds e.mu.
func (e *Engine) rebuildLocked(b *binding) {
	b.mu.Lock()
	b.graph = nil
	b.mu.Unlock()

	g, err := e.newGraph(b.ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("effects chain build failed, playing unprocessed audio")

		return
	}

	applyToGraph(g, e.snapshotLocked())

	b.mu.Lock()
	b.graph = g
	b.mu.Unlock()
}

// Disconnect closes the current context and clears every node, analyser
// and context handle. Idempotent.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		e.state = Unbound

		return
	}

	if err := e.current.ctx.Close(); err != nil {
		e.log.Warn().Err(err).Msg("context close failed")
	}

	delete(e.bindings, e.current.element)

	e.current.mu.Lock()
	e.current.graph = nil
	e.current.fade = nil
	e.current.mu.Unlock()

	e.current = nil
	e.state = Unbound
}

// Detach releases the engine's active handles without closing the
// element's context, keeping its binding alive for a later Connect.
// This is the teardown used when the owning player intends to rebind
// the same element, where closing would destroy its single-use source.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		if err := e.current.ctx.Suspend(); err != nil {
			e.log.Warn().Err(err).Msg("suspend failed")
		}
	}

	e.current = nil
	e.state = Unbound
}

// State returns the lifecycle state for the current element.
func (e *Engine) State() BindState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Connected reports whether an element is bound with a live context.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current != nil && !e.current.ctx.Closed()
}

// Streamer returns the processed audio stream for the current element,
// or nil when unbound. The caller plays this through its output device.
func (e *Engine) Streamer() beep.Streamer {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	return e.current
}

// Analyser returns the current chain's analyser tap for visualization,
// or nil when no chain exists. Read-only: consumers take snapshots and
// must not attempt to disconnect or mutate it.
func (e *Engine) Analyser() *chain.Analyser {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	e.current.mu.Lock()
	defer e.current.mu.Unlock()

	if e.current.graph == nil {
		return nil
	}

	return e.current.graph.Analyser()
}

// GraphContext returns the current processing context handle, or nil.
// Exposed for visualization and diagnostics only; lifecycle transitions
// belong to the engine.
func (e *Engine) GraphContext() *chain.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	return e.current.ctx
}
