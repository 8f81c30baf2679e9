package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-playerfx/chain"
	"github.com/cwbudde/algo-playerfx/settings"
)

// fakeElement is a minimal media element producing a constant signal.
type fakeElement struct {
	sampleRate float64
	rate       float64
	value      float64
	failed     error
}

func newFakeElement() *fakeElement {
	return &fakeElement{sampleRate: 44100, rate: 1.0, value: 0.25}
}

func (f *fakeElement) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i][0] = f.value
		samples[i][1] = f.value
	}

	return len(samples), true
}

func (f *fakeElement) Err() error { return f.failed }

func (f *fakeElement) SampleRate() float64 { return f.sampleRate }

func (f *fakeElement) PlaybackRate() float64 { return f.rate }

func (f *fakeElement) SetPlaybackRate(rate float64) { f.rate = rate }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	return New(settings.NewMemoryStore())
}

func TestSetBandClampsGain(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetBand(0, 40)
	if got := e.Band(0); got != 12 {
		t.Fatalf("Band(0) = %v, want 12", got)
	}

	e.SetBand(0, -40)
	if got := e.Band(0); got != -12 {
		t.Fatalf("Band(0) = %v, want -12", got)
	}
}

func TestSetBandIgnoresOutOfRangeIndex(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetBand(-1, 6)
	e.SetBand(chain.BandCount, 6)

	for i, v := range e.Bands() {
		if v != 0 {
			t.Fatalf("band %d = %v after out-of-range writes, want 0", i, v)
		}
	}
}

func TestSetBandClearsPreset(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SetPreset("bass_boost"); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	// Writing the value a band already has still counts as a hand edit.
	e.SetBand(0, e.Band(0))

	if got := e.CurrentPreset(); got != "" {
		t.Fatalf("CurrentPreset = %q after band edit, want empty", got)
	}
}

func TestSetPresetLoadsBands(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SetPreset("bass_boost"); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	want := [chain.BandCount]float64{6, 5, 4, 2, 0, 0, 0, 0, 0, 0}
	if got := e.Bands(); got != want {
		t.Fatalf("Bands = %v, want %v", got, want)
	}

	if got := e.CurrentPreset(); got != "bass_boost" {
		t.Fatalf("CurrentPreset = %q, want bass_boost", got)
	}
}

func TestSetPresetUnknown(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SetPreset("nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("SetPreset(nope) = %v, want ErrUnknownPreset", err)
	}
}

func TestCustomPresetLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetBand(3, 7)
	if err := e.SaveCustomPreset("mine"); err != nil {
		t.Fatalf("SaveCustomPreset: %v", err)
	}

	if got := e.CurrentPreset(); got != "mine" {
		t.Fatalf("CurrentPreset = %q, want mine", got)
	}

	names := e.CustomPresets()
	if len(names) != 1 || names[0] != "mine" {
		t.Fatalf("CustomPresets = %v, want [mine]", names)
	}

	e.SetBand(3, 0)
	if err := e.SetPreset("mine"); err != nil {
		t.Fatalf("SetPreset(mine): %v", err)
	}

	if got := e.Band(3); got != 7 {
		t.Fatalf("Band(3) = %v after reloading custom preset, want 7", got)
	}

	if err := e.DeleteCustomPreset("mine"); err != nil {
		t.Fatalf("DeleteCustomPreset: %v", err)
	}

	if got := e.CurrentPreset(); got != "" {
		t.Fatalf("CurrentPreset = %q after deleting active preset, want empty", got)
	}

	if err := e.DeleteCustomPreset("mine"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("second delete = %v, want ErrUnknownPreset", err)
	}
}

func TestDeleteInactiveCustomPresetKeepsCurrent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SaveCustomPreset("a"); err != nil {
		t.Fatalf("SaveCustomPreset(a): %v", err)
	}

	if err := e.SaveCustomPreset("b"); err != nil {
		t.Fatalf("SaveCustomPreset(b): %v", err)
	}

	if err := e.DeleteCustomPreset("a"); err != nil {
		t.Fatalf("DeleteCustomPreset(a): %v", err)
	}

	if got := e.CurrentPreset(); got != "b" {
		t.Fatalf("CurrentPreset = %q, want b", got)
	}
}

func TestCustomPresetShadowsBuiltin(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetBand(0, 3)
	if err := e.SaveCustomPreset("flat"); err != nil {
		t.Fatalf("SaveCustomPreset: %v", err)
	}

	e.SetBand(0, 0)
	if err := e.SetPreset("flat"); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	if got := e.Band(0); got != 3 {
		t.Fatalf("Band(0) = %v, want custom value 3", got)
	}
}

func TestEffectIntensityClamp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SetEffectIntensity(EffectReverb, 150); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	if got := e.EffectSetting(EffectReverb).Intensity; got != 100 {
		t.Fatalf("intensity = %d, want 100", got)
	}

	if err := e.SetEffectIntensity(EffectReverb, -5); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	if got := e.EffectSetting(EffectReverb).Intensity; got != 0 {
		t.Fatalf("intensity = %d, want 0", got)
	}
}

func TestUnknownEffect(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	if err := e.SetEffectEnabled("chorus", true); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("SetEffectEnabled = %v, want ErrUnknownEffect", err)
	}

	if err := e.SetEffectIntensity("chorus", 10); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("SetEffectIntensity = %v, want ErrUnknownEffect", err)
	}
}

func TestPitchSemitones(t *testing.T) {
	t.Parallel()

	cases := []struct {
		speed float64
		want  int
	}{
		{1.0, 0},
		{2.0, 12},
		{0.5, -12},
		{1.5, 7},
		{0.75, -5},
	}

	for _, tc := range cases {
		e := newTestEngine(t)
		e.SetPlaybackSpeed(tc.speed)

		if got := e.PitchSemitones(); got != tc.want {
			t.Errorf("PitchSemitones at speed %v = %d, want %d", tc.speed, got, tc.want)
		}
	}
}

func TestSetPlaybackSpeedClamp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetPlaybackSpeed(5)
	if got := e.PlaybackSpeed(); got != 2.0 {
		t.Fatalf("PlaybackSpeed = %v, want 2.0", got)
	}

	e.SetPlaybackSpeed(0.1)
	if got := e.PlaybackSpeed(); got != 0.5 {
		t.Fatalf("PlaybackSpeed = %v, want 0.5", got)
	}
}

func TestSetPlaybackSpeedPushesToElement(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)
	e.SetPlaybackSpeed(1.25)

	if el.rate != 1.25 {
		t.Fatalf("element rate = %v, want 1.25", el.rate)
	}
}

func TestConnectAppliesStoredSpeed(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	e.SetPlaybackSpeed(1.5)

	el := newFakeElement()
	e.Connect(el)

	if el.rate != 1.5 {
		t.Fatalf("element rate = %v, want 1.5", el.rate)
	}
}

func TestSetCrossfadeDurationClamp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	e.SetCrossfadeDuration(20)
	if got := e.Crossfade().DurationSeconds; got != 12 {
		t.Fatalf("duration = %d, want 12", got)
	}

	e.SetCrossfadeDuration(-3)
	if got := e.Crossfade().DurationSeconds; got != 0 {
		t.Fatalf("duration = %d, want 0", got)
	}
}

func TestConnectFresh(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)

	if got := e.State(); got != BoundFresh {
		t.Fatalf("State = %v, want %v", got, BoundFresh)
	}

	if !e.Connected() {
		t.Fatal("Connected = false after Connect")
	}

	if e.Analyser() == nil {
		t.Fatal("Analyser = nil after successful build")
	}
}

func TestConnectSameElementReusesNodes(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)

	first := e.current.graph
	if first == nil {
		t.Fatal("no graph after first Connect")
	}

	e.Connect(el)

	if e.current.graph != first {
		t.Fatal("graph rebuilt on repeated Connect of the same element")
	}

	if got := e.State(); got != BoundFresh {
		t.Fatalf("State = %v, want %v", got, BoundFresh)
	}
}

func TestConnectNewElementClosesPrevious(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el1 := newFakeElement()
	el2 := newFakeElement()

	e.Connect(el1)
	ctx1 := e.GraphContext()

	e.Connect(el2)

	if !ctx1.Closed() {
		t.Fatal("previous element's context still open")
	}

	if e.GraphContext() == ctx1 {
		t.Fatal("new element shares the old context")
	}

	if got := e.State(); got != BoundFresh {
		t.Fatalf("State = %v, want %v", got, BoundFresh)
	}
}

func TestDetachThenConnectReuses(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)
	ctx := e.GraphContext()
	src := e.current.source

	e.Detach()

	if got := e.State(); got != Unbound {
		t.Fatalf("State after Detach = %v, want %v", got, Unbound)
	}

	if ctx.Closed() {
		t.Fatal("Detach closed the context")
	}

	e.Connect(el)

	if got := e.State(); got != BoundReused {
		t.Fatalf("State = %v, want %v", got, BoundReused)
	}

	if e.GraphContext() != ctx {
		t.Fatal("reconnect created a new context instead of reusing")
	}

	if e.current.source != src {
		t.Fatal("reconnect created a second source for the element")
	}

	if got := ctx.State(); got != chain.StateRunning {
		t.Fatalf("context state = %v after reconnect, want running", got)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)
	ctx := e.GraphContext()

	e.Disconnect()
	e.Disconnect()

	if !ctx.Closed() {
		t.Fatal("context not closed by Disconnect")
	}

	if e.Connected() {
		t.Fatal("Connected = true after Disconnect")
	}

	if e.Streamer() != nil {
		t.Fatal("Streamer != nil after Disconnect")
	}

	// A closed binding must not be reused.
	e.Connect(el)
	if got := e.State(); got != BoundFresh {
		t.Fatalf("State = %v after reconnecting a disconnected element, want %v", got, BoundFresh)
	}
}

func TestBuildFailureFallsBackToDirectAudio(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	e.newGraph = func(*chain.Context) (*chain.Graph, error) {
		return nil, errors.New("node construction failed")
	}

	el := newFakeElement()
	e.Connect(el)

	if !e.Connected() {
		t.Fatal("Connected = false after build failure")
	}

	s := e.Streamer()
	if s == nil {
		t.Fatal("Streamer = nil after build failure")
	}

	buf := make([][2]float64, 64)
	n, ok := s.Stream(buf)
	if !ok || n != len(buf) {
		t.Fatalf("Stream = (%d, %v), want (%d, true)", n, ok, len(buf))
	}

	for i := range buf {
		if buf[i][0] != el.value || buf[i][1] != el.value {
			t.Fatalf("frame %d = %v, want unprocessed source value %v", i, buf[i], el.value)
		}
	}

	if e.Analyser() != nil {
		t.Fatal("Analyser != nil without a chain")
	}
}

func TestProcessedStreamStaysAudible(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()

	e.Connect(el)

	buf := make([][2]float64, 512)
	n, ok := e.Streamer().Stream(buf)
	if !ok || n != len(buf) {
		t.Fatalf("Stream = (%d, %v), want (%d, true)", n, ok, len(buf))
	}

	var energy float64
	for i := range buf {
		energy += buf[i][0]*buf[i][0] + buf[i][1]*buf[i][1]
	}

	if energy == 0 {
		t.Fatal("processed stream is silent")
	}
}

func TestFadeOutRampsToSilence(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	el := newFakeElement()
	el.sampleRate = 1000 // keep the ramp short
	e.Connect(el)

	e.SetCrossfadeEnabled(true)
	e.SetCrossfadeDuration(1)
	e.FadeOut()

	s := e.Streamer()
	buf := make([][2]float64, 1000)
	s.Stream(buf)

	if math.Abs(buf[0][0]) <= math.Abs(buf[len(buf)-1][0]) {
		t.Fatalf("fade not decreasing: first %v, last %v", buf[0][0], buf[len(buf)-1][0])
	}

	s.Stream(buf)
	for i := range buf {
		if buf[i][0] != 0 || buf[i][1] != 0 {
			t.Fatalf("frame %d = %v after fade completed, want silence", i, buf[i])
		}
	}
}

func TestConnectFadesInWhenCrossfadeEnabled(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	e.SetCrossfadeEnabled(true)
	e.SetCrossfadeDuration(1)

	el := newFakeElement()
	el.sampleRate = 1000
	e.Connect(el)

	buf := make([][2]float64, 1000)
	e.Streamer().Stream(buf)

	if math.Abs(buf[0][0]) >= math.Abs(buf[len(buf)-1][0]) {
		t.Fatalf("fade-in not rising: first %v, last %v", buf[0][0], buf[len(buf)-1][0])
	}

	// After the ramp settles the stream runs at unity gain.
	e.Streamer().Stream(buf)
	for i := range buf {
		if buf[i][0] != el.value {
			t.Fatalf("frame %d = %v after fade-in, want %v", i, buf[i][0], el.value)
		}
	}
}

func TestSettingsPersistAcrossEngines(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore()

	e1 := New(store)
	e1.SetEQEnabled(true)
	e1.SetBand(2, 5)
	if err := e1.SetEffectEnabled(EffectBassBoost, true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}
	if err := e1.SetEffectIntensity(EffectBassBoost, 80); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}
	e1.SetPlaybackSpeed(1.75)
	e1.SetCrossfadeEnabled(true)
	e1.SetCrossfadeDuration(8)
	if err := e1.SaveCustomPreset("warm"); err != nil {
		t.Fatalf("SaveCustomPreset: %v", err)
	}

	e2 := New(store)

	if !e2.EQEnabled() {
		t.Error("eq enabled not restored")
	}

	if got := e2.Band(2); got != 5 {
		t.Errorf("Band(2) = %v, want 5", got)
	}

	if got := e2.EffectSetting(EffectBassBoost); !got.Enabled || got.Intensity != 80 {
		t.Errorf("bass boost = %+v, want enabled at 80", got)
	}

	if got := e2.PlaybackSpeed(); got != 1.75 {
		t.Errorf("PlaybackSpeed = %v, want 1.75", got)
	}

	if got := e2.Crossfade(); !got.Enabled || got.DurationSeconds != 8 {
		t.Errorf("Crossfade = %+v, want enabled for 8s", got)
	}

	if got := e2.CurrentPreset(); got != "warm" {
		t.Errorf("CurrentPreset = %q, want warm", got)
	}
}

func TestRestoreClampsTamperedStore(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore()
	settings.Save(store, keySpeed, 9.0)
	settings.Save(store, keyEQBands, [chain.BandCount]float64{99, -99})
	settings.Save(store, keyCrossfade, CrossfadeState{Enabled: true, DurationSeconds: 90})
	settings.Save(store, effectKey(EffectReverb), EffectSettings{Enabled: true, Intensity: 500})

	e := New(store)

	if got := e.PlaybackSpeed(); got != 2.0 {
		t.Errorf("PlaybackSpeed = %v, want 2.0", got)
	}

	if got := e.Band(0); got != 12 {
		t.Errorf("Band(0) = %v, want 12", got)
	}

	if got := e.Band(1); got != -12 {
		t.Errorf("Band(1) = %v, want -12", got)
	}

	if got := e.Crossfade().DurationSeconds; got != 12 {
		t.Errorf("crossfade duration = %d, want 12", got)
	}

	if got := e.EffectSetting(EffectReverb).Intensity; got != 100 {
		t.Errorf("reverb intensity = %d, want 100", got)
	}
}

func TestRestoreClampsTamperedCustomPresets(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore()
	settings.Save(store, keyEQCustomPresets, map[string][chain.BandCount]float64{
		"evil": {99, -99},
	})

	e := New(store)
	el := newFakeElement()
	e.Connect(el)

	if err := e.SetPreset("evil"); err != nil {
		t.Fatalf("SetPreset: %v", err)
	}

	if got := e.Band(0); got != 12 {
		t.Errorf("Band(0) = %v, want 12", got)
	}

	if got := e.Band(1); got != -12 {
		t.Errorf("Band(1) = %v, want -12", got)
	}

	if got := e.current.graph.Band(0).Gain(); got != 12 {
		t.Errorf("live filter gain = %v, want 12", got)
	}
}

func TestRestoreWithoutStoredPresetIsCustom(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore()
	settings.Save(store, keyEQBands, [chain.BandCount]float64{3})

	e := New(store)

	if got := e.CurrentPreset(); got != "" {
		t.Fatalf("CurrentPreset = %q with no stored preset name, want empty", got)
	}

	if got := e.Band(0); got != 3 {
		t.Fatalf("Band(0) = %v, want restored 3", got)
	}
}

func TestRestoreDropsUnknownPreset(t *testing.T) {
	t.Parallel()

	store := settings.NewMemoryStore()
	settings.Save(store, keyEQPreset, "vanished")

	e := New(store)

	if got := e.CurrentPreset(); got != "" {
		t.Fatalf("CurrentPreset = %q, want empty for unknown stored preset", got)
	}
}

func TestReverbWetRisesWithIntensity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()
	e.Connect(el)

	if err := e.SetEffectEnabled(EffectReverb, true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if err := e.SetEffectIntensity(EffectReverb, 20); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	low := e.current.graph.Reverb().Wet()

	if err := e.SetEffectIntensity(EffectReverb, 80); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	high := e.current.graph.Reverb().Wet()
	if high <= low {
		t.Fatalf("wet level not monotone in intensity: %v at 20, %v at 80", low, high)
	}

	if err := e.SetEffectEnabled(EffectReverb, false); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if got := e.current.graph.Reverb().Wet(); got != 0 {
		t.Fatalf("wet = %v when disabled, want 0", got)
	}
}

func TestEnhancerWidthMapping(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()
	e.Connect(el)

	if err := e.SetEffectEnabled(EffectEnhancer, true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if err := e.SetEffectIntensity(EffectEnhancer, 100); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	if got := e.current.graph.Enhancer().Width(); got != 2 {
		t.Fatalf("width = %v at full intensity, want 2", got)
	}

	if err := e.SetEffectEnabled(EffectEnhancer, false); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if got := e.current.graph.Enhancer().Width(); got != 1 {
		t.Fatalf("width = %v when disabled, want 1", got)
	}
}

func TestCompressorMappingSweep(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()
	e.Connect(el)

	if err := e.SetEffectEnabled(EffectCompressor, true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if err := e.SetEffectIntensity(EffectCompressor, 0); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	comp := e.current.graph.Compressor()
	if comp.Threshold() != -20 || comp.Ratio() != 4 {
		t.Fatalf("intensity 0: threshold %v ratio %v, want -20 / 4", comp.Threshold(), comp.Ratio())
	}

	if err := e.SetEffectIntensity(EffectCompressor, 100); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	if comp.Threshold() != -50 || comp.Ratio() != 12 {
		t.Fatalf("intensity 100: threshold %v ratio %v, want -50 / 12", comp.Threshold(), comp.Ratio())
	}

	if err := e.SetEffectEnabled(EffectCompressor, false); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if comp.Threshold() != 0 || comp.Ratio() != 1 {
		t.Fatalf("disabled: threshold %v ratio %v, want 0 / 1", comp.Threshold(), comp.Ratio())
	}
}

func TestBassBoostMapsOntoShelf(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	el := newFakeElement()
	e.Connect(el)

	if err := e.SetEffectEnabled(EffectBassBoost, true); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if err := e.SetEffectIntensity(EffectBassBoost, 100); err != nil {
		t.Fatalf("SetEffectIntensity: %v", err)
	}

	if got := e.current.graph.Bass().Gain(); got != 12 {
		t.Fatalf("shelf gain = %v at full intensity, want 12", got)
	}

	if err := e.SetEffectEnabled(EffectBassBoost, false); err != nil {
		t.Fatalf("SetEffectEnabled: %v", err)
	}

	if got := e.current.graph.Bass().Gain(); got != 0 {
		t.Fatalf("shelf gain = %v when disabled, want 0", got)
	}
}
