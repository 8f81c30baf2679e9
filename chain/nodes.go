package chain

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/measure/loudness"
)

const (
	// bandQ is the fixed quality factor of every peaking band filter.
	bandQ = 1.4

	// bassShelfFreq is the low-shelf corner for the bass boost effect.
	bassShelfFreq = 100.0

	shelfQ = 1 / math.Sqrt2

	compressorAttackMs  = 3.0
	compressorReleaseMs = 250.0
	compressorKneeDB    = 6.0

	// Loudness normalization aims at the common streaming target and
	// never cuts or boosts by more than this many dB.
	loudnessTargetLUFS = -14.0
	maxNormalizeCutDB  = 12.0

	// Below this short-term level the signal is treated as silence and
	// the normalization gain relaxes back to unity.
	silenceFloorLUFS = -70.0

	normalizeSmoothing = 0.05
)

// BandFrequencies are the fixed center frequencies of the 10 equalizer
// bands, in Hz.
var BandFrequencies = [BandCount]float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// BandCount is the number of peaking filters in the equalizer section.
const BandCount = 10

// BandFilter is one stereo peaking filter of the equalizer section. Its
// gain is updated in place: the filter object and its delay-line state
// survive every parameter change.
type BandFilter struct {
	freq       float64
	sampleRate float64
	gainDB     float64

	left  biquad.Section
	right biquad.Section
}

func newBandFilter(freq, sampleRate float64) *BandFilter {
	f := &BandFilter{freq: freq, sampleRate: sampleRate}
	f.SetGain(0)

	return f
}

// Frequency returns the band's fixed center frequency in Hz.
func (f *BandFilter) Frequency() float64 { return f.freq }

// Gain returns the current band gain in dB.
func (f *BandFilter) Gain() float64 { return f.gainDB }

// SetGain updates the band gain in dB, recomputing coefficients without
// clearing filter state.
func (f *BandFilter) SetGain(db float64) {
	f.gainDB = db

	c := design.Peak(f.freq, db, bandQ, f.sampleRate)
	f.left.Coefficients = c
	f.right.Coefficients = c
}

func (f *BandFilter) process(samples [][2]float64) {
	for i := range samples {
		samples[i][0] = f.left.ProcessSample(samples[i][0])
		samples[i][1] = f.right.ProcessSample(samples[i][1])
	}
}

// ShelfFilter is the stereo low-shelf filter backing the bass boost
// effect.
type ShelfFilter struct {
	freq       float64
	sampleRate float64
	gainDB     float64

	left  biquad.Section
	right biquad.Section
}

func newShelfFilter(freq, sampleRate float64) *ShelfFilter {
	f := &ShelfFilter{freq: freq, sampleRate: sampleRate}
	f.SetGain(0)

	return f
}

// Gain returns the current shelf gain in dB.
func (f *ShelfFilter) Gain() float64 { return f.gainDB }

// SetGain updates the shelf gain in dB in place.
func (f *ShelfFilter) SetGain(db float64) {
	f.gainDB = db

	c := design.LowShelf(f.freq, db, shelfQ, f.sampleRate)
	f.left.Coefficients = c
	f.right.Coefficients = c
}

func (f *ShelfFilter) process(samples [][2]float64) {
	if f.gainDB == 0 {
		return
	}

	for i := range samples {
		samples[i][0] = f.left.ProcessSample(samples[i][0])
		samples[i][1] = f.right.ProcessSample(samples[i][1])
	}
}

// CompressorNode wraps a stereo pair of soft-knee compressors.
type CompressorNode struct {
	left  *dynamics.Compressor
	right *dynamics.Compressor

	thresholdDB float64
	ratio       float64
}

func newCompressorNode(sampleRate float64) (*CompressorNode, error) {
	n := &CompressorNode{}

	for _, dst := range []**dynamics.Compressor{&n.left, &n.right} {
		c, err := dynamics.NewCompressor(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("chain: compressor: %w", err)
		}

		if err := c.SetAttack(compressorAttackMs); err != nil {
			return nil, fmt.Errorf("chain: compressor attack: %w", err)
		}

		if err := c.SetRelease(compressorReleaseMs); err != nil {
			return nil, fmt.Errorf("chain: compressor release: %w", err)
		}

		if err := c.SetAutoMakeup(false); err != nil {
			return nil, fmt.Errorf("chain: compressor makeup: %w", err)
		}

		*dst = c
	}

	n.setParams(0, 1, 0)

	return n, nil
}

// Threshold returns the current threshold in dB.
func (n *CompressorNode) Threshold() float64 { return n.thresholdDB }

// Ratio returns the current compression ratio.
func (n *CompressorNode) Ratio() float64 { return n.ratio }

// SetParams pushes threshold and ratio into both channels. A neutral
// setting (threshold 0, ratio 1) makes the node a pass-through.
func (n *CompressorNode) SetParams(thresholdDB, ratio float64) {
	knee := compressorKneeDB
	if ratio <= 1 {
		knee = 0
	}

	n.setParams(thresholdDB, ratio, knee)
}

func (n *CompressorNode) setParams(thresholdDB, ratio, kneeDB float64) {
	n.thresholdDB = thresholdDB
	n.ratio = ratio

	for _, c := range []*dynamics.Compressor{n.left, n.right} {
		_ = c.SetThreshold(thresholdDB)
		_ = c.SetRatio(ratio)
		_ = c.SetKnee(kneeDB)
	}
}

func (n *CompressorNode) process(samples [][2]float64) {
	if n.ratio <= 1 {
		return
	}

	for i := range samples {
		samples[i][0] = n.left.ProcessSample(samples[i][0])
		samples[i][1] = n.right.ProcessSample(samples[i][1])
	}
}

// ReverbNode wraps a stereo pair of Freeverb-style reverbs. A wet level
// of zero makes the node a pass-through.
type ReverbNode struct {
	left  *reverb.Reverb
	right *reverb.Reverb

	wet float64
}

func newReverbNode() *ReverbNode {
	n := &ReverbNode{
		left:  reverb.NewReverb(),
		right: reverb.NewReverb(),
	}

	n.SetMix(0, 0.5)

	return n
}

// Wet returns the current wet level in [0, 1].
func (n *ReverbNode) Wet() float64 { return n.wet }

// SetMix pushes wet level and room size into both channels.
func (n *ReverbNode) SetMix(wet, roomSize float64) {
	n.wet = wet

	for _, r := range []*reverb.Reverb{n.left, n.right} {
		r.SetWet(wet)
		r.SetDry(1)
		r.SetRoomSize(roomSize)
	}
}

func (n *ReverbNode) process(samples [][2]float64) {
	if n.wet <= 0 {
		return
	}

	for i := range samples {
		samples[i][0] = n.left.ProcessSample(samples[i][0])
		samples[i][1] = n.right.ProcessSample(samples[i][1])
	}
}

// GainNode applies makeup gain and, when enabled, loudness normalization:
// an R128 short-term measurement steers a slow, bounded gain toward the
// streaming loudness target.
type GainNode struct {
	gain float64 // linear makeup gain

	meter      *loudness.Meter
	enabled    bool
	maxBoostDB float64
	targetLUFS float64
	normDB     float64

	frame [2]float64
}

func newGainNode(sampleRate, targetLUFS float64) *GainNode {
	return &GainNode{
		gain:       1,
		targetLUFS: targetLUFS,
		meter: loudness.NewMeter(
			loudness.WithSampleRate(sampleRate),
			loudness.WithChannels(2),
		),
	}
}

// Gain returns the linear makeup gain.
func (n *GainNode) Gain() float64 { return n.gain }

// SetGain sets the linear makeup gain.
func (n *GainNode) SetGain(gain float64) { n.gain = gain }

// NormalizationDB returns the current smoothed normalization gain in dB.
func (n *GainNode) NormalizationDB() float64 { return n.normDB }

// SetNormalization enables or disables loudness normalization. maxBoostDB
// bounds how far the signal may be raised toward the target.
func (n *GainNode) SetNormalization(enabled bool, maxBoostDB float64) {
	n.enabled = enabled
	n.maxBoostDB = maxBoostDB
}

func (n *GainNode) process(samples [][2]float64) {
	if n.enabled {
		for i := range samples {
			n.frame[0] = samples[i][0]
			n.frame[1] = samples[i][1]
			n.meter.ProcessSample(n.frame[:])
		}

		desired := 0.0

		if st := n.meter.ShortTerm(); st > silenceFloorLUFS {
			desired = clamp(n.targetLUFS-st, -maxNormalizeCutDB, n.maxBoostDB)
		}

		n.normDB += (desired - n.normDB) * normalizeSmoothing
	} else if n.normDB != 0 {
		n.normDB += (0 - n.normDB) * normalizeSmoothing
	}

	g := n.gain * dbToLin(n.normDB)
	if g == 1 {
		return
	}

	for i := range samples {
		samples[i][0] *= g
		samples[i][1] *= g
	}
}

// EnhancerNode widens the stereo image by mid/side scaling. Width 1 is a
// pass-through.
type EnhancerNode struct {
	widener *spatial.StereoWidener
	width   float64
}

func newEnhancerNode(sampleRate float64) (*EnhancerNode, error) {
	w, err := spatial.NewStereoWidener(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("chain: stereo enhancer: %w", err)
	}

	return &EnhancerNode{widener: w, width: 1}, nil
}

// Width returns the current stereo width factor.
func (n *EnhancerNode) Width() float64 { return n.width }

// SetWidth sets the stereo width factor (1 = unchanged, 2 = doubled side
// level).
func (n *EnhancerNode) SetWidth(width float64) {
	if err := n.widener.SetWidth(width); err != nil {
		return
	}

	n.width = width
}

func (n *EnhancerNode) process(samples [][2]float64) {
	if n.width == 1 {
		return
	}

	for i := range samples {
		samples[i][0], samples[i][1] = n.widener.ProcessStereo(samples[i][0], samples[i][1])
	}
}

func dbToLin(db float64) float64 {
	return math.Pow(10, db/20)
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
