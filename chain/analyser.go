package chain

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
)

const (
	analyserMinDB = -130.0
	analyserEps   = 1e-12
)

// Analyser taps the end of the chain and exposes smoothed frequency-domain
// and time-domain snapshots for visualization. It never alters the signal.
//
// Snapshot reads are safe from any goroutine; external consumers hold a
// read-only capability and must not mutate the analyser.
type Analyser struct {
	mu sync.Mutex

	fftSize   int
	hopSize   int
	smoothing float64

	plan *algofft.Plan[complex128]
	win  []float64
	// winGain is the mean window coefficient, used to normalize bin
	// magnitudes back to full scale.
	winGain float64

	ring         []float64 // mono mix of the processed signal
	write        int
	filled       int
	samplesToHop int

	input  []complex128
	output []complex128
	freqDB []float64
	ready  bool
}

func newAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	switch fftSize {
	case 128, 256, 512, 1024, 2048:
	default:
		return nil, fmt.Errorf("chain: unsupported analyser fft size: %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("chain: analyser fft plan: %w", err)
	}

	win := window.Generate(window.TypeHann, fftSize, window.WithPeriodic())

	sum := 0.0
	for _, w := range win {
		sum += w
	}

	a := &Analyser{
		fftSize:   fftSize,
		hopSize:   fftSize / 2,
		smoothing: clamp(smoothing, 0, 0.95),
		plan:      plan,
		win:       win,
		winGain:   sum / float64(fftSize),
		ring:      make([]float64, fftSize),
		input:     make([]complex128, fftSize),
		output:    make([]complex128, fftSize),
		freqDB:    make([]float64, fftSize/2+1),
	}

	for i := range a.freqDB {
		a.freqDB[i] = analyserMinDB
	}

	return a, nil
}

// FFTSize returns the analysis window length in samples.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount returns the number of frequency bins in a snapshot.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize/2 + 1 }

// push feeds processed samples into the analysis ring. Called by the
// graph on the audio path.
func (a *Analyser) push(samples [][2]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range samples {
		a.ring[a.write] = (samples[i][0] + samples[i][1]) * 0.5

		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}

		if a.filled < a.fftSize {
			a.filled++
		}

		a.samplesToHop++
		if a.filled >= a.fftSize && a.samplesToHop >= a.hopSize {
			a.samplesToHop = 0
			a.updateFrame()
		}
	}
}

// updateFrame runs one windowed FFT over the ring contents and folds the
// result into the smoothed dB spectrum. Caller holds a.mu.
func (a *Analyser) updateFrame() {
	read := a.write
	for i := 0; i < a.fftSize; i++ {
		a.input[i] = complex(a.ring[read]*a.win[i], 0)

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return
	}

	norm := float64(a.fftSize) * math.Max(a.winGain, analyserEps)

	last := len(a.freqDB) - 1
	for k := 0; k <= last; k++ {
		mag := cmplx.Abs(a.output[k]) / norm
		if k > 0 && k < last {
			mag *= 2
		}

		db := 20 * math.Log10(math.Max(analyserEps, mag))
		if db < analyserMinDB {
			db = analyserMinDB
		}

		if !a.ready {
			a.freqDB[k] = db
			continue
		}

		a.freqDB[k] = a.smoothing*a.freqDB[k] + (1-a.smoothing)*db
	}

	a.ready = true
}

// FrequencyData copies the current smoothed spectrum in dBFS into dst and
// returns it. If dst is too small a new slice is allocated. Bins run from
// DC to Nyquist.
func (a *Analyser) FrequencyData(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cap(dst) < len(a.freqDB) {
		dst = make([]float64, len(a.freqDB))
	}

	dst = dst[:len(a.freqDB)]
	copy(dst, a.freqDB)

	return dst
}

// TimeDomainData copies the most recent fftSize mono samples into dst in
// playback order and returns it.
func (a *Analyser) TimeDomainData(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cap(dst) < a.fftSize {
		dst = make([]float64, a.fftSize)
	}

	dst = dst[:a.fftSize]

	read := a.write
	for i := 0; i < a.fftSize; i++ {
		dst[i] = a.ring[read]

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	return dst
}
