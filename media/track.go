package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned by Open for file types the player
// cannot decode.
var ErrUnsupportedFormat = errors.New("media: unsupported format")

// resampleQuality balances fidelity against CPU for the playback-rate
// resampler.
const resampleQuality = 4

// Track is a decoded audio file behind the Element interface. Playback
// rate is implemented with a dynamic resampler, so changing speed shifts
// pitch proportionally.
type Track struct {
	mu        sync.Mutex
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	rate      float64
	file      *os.File
}

// Open decodes the audio file at path. Supported: mp3, wav, flac.
func Open(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("media: open: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		f.Close()

		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		f.Close()

		return nil, fmt.Errorf("media: decode %s: %w", filepath.Base(path), err)
	}

	t := NewTrack(streamer, format)
	t.file = f

	return t, nil
}

// NewTrack wraps an already-decoded streamer as a Track.
func NewTrack(streamer beep.StreamSeekCloser, format beep.Format) *Track {
	return &Track{
		streamer:  streamer,
		format:    format,
		resampler: beep.ResampleRatio(resampleQuality, 1, streamer),
		rate:      1,
	}
}

// Stream pulls samples through the playback-rate resampler.
func (t *Track) Stream(samples [][2]float64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.resampler.Stream(samples)
}

// Err returns the underlying decoder error, if any.
func (t *Track) Err() error {
	return t.streamer.Err()
}

// SampleRate returns the decoded sample rate in Hz.
func (t *Track) SampleRate() float64 {
	return float64(t.format.SampleRate)
}

// PlaybackRate returns the current playback rate.
func (t *Track) PlaybackRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.rate
}

// SetPlaybackRate changes playback speed in place; the next Stream call
// pulls at the new rate.
func (t *Track) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rate = rate
	t.resampler.SetRatio(rate)
}

// Position returns the current playback position.
func (t *Track) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.format.SampleRate.D(t.streamer.Position())
}

// Duration returns the total track duration.
func (t *Track) Duration() time.Duration {
	return t.format.SampleRate.D(t.streamer.Len())
}

// Seek moves the playback position by d, clamped to the track bounds.
func (t *Track) Seek(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := t.streamer.Position() + t.format.SampleRate.N(d)
	if target < 0 {
		target = 0
	}

	if target >= t.streamer.Len() {
		target = t.streamer.Len() - 1
	}

	if err := t.streamer.Seek(target); err != nil {
		return fmt.Errorf("media: seek: %w", err)
	}

	return nil
}

// Close releases the decoder and the backing file.
func (t *Track) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.streamer.Close()

	if t.file != nil {
		if cerr := t.file.Close(); err == nil {
			err = cerr
		}

		t.file = nil
	}

	return err
}
