// Command playerfx plays audio files through the effects engine with
// interactive keyboard control.
//
// Usage:
//
//	playerfx [flags] file [file ...]
//
// Supported formats: mp3, wav, flac. Settings (equalizer bands, presets,
// effect toggles, playback speed, crossfade) persist in a SQLite database
// across runs.
//
// Keys:
//
//	space      pause / resume
//	n          next track
//	←/→        seek 5 s
//	+/-        playback speed (pitch follows)
//	e          toggle equalizer
//	p          cycle built-in presets
//	j/k        select equalizer band
//	[/]        cut / boost the selected band by 1 dB
//	1..5       toggle bass boost, reverb, compressor, enhancer, loudness
//	l          print the current output level
//	q / esc    quit
package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/eiannone/keyboard"
	"github.com/fatih/color"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/cwbudde/algo-playerfx/chain"
	"github.com/cwbudde/algo-playerfx/engine"
	"github.com/cwbudde/algo-playerfx/media"
	"github.com/cwbudde/algo-playerfx/settings"
)

const seekStep = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "playerfx: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath := pflag.String("db", "playerfx.db", "settings database path")
	preset := pflag.String("preset", "", "equalizer preset to activate at startup")
	speed := pflag.Float64("speed", 0, "initial playback speed (0 keeps the stored value)")
	verbose := pflag.BoolP("verbose", "v", false, "debug logging")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: playerfx [flags] file [file ...]\n\nFlags:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	tracks := pflag.Args()
	if len(tracks) == 0 {
		pflag.Usage()

		return fmt.Errorf("no input files")
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	store, err := settings.OpenSQLite(*dbPath, log)
	if err != nil {
		log.Warn().Err(err).Msg("settings database unavailable, state will not persist")

		return play(tracks, engine.New(settings.NewMemoryStore(), engine.WithLogger(log)), *preset, *speed, log)
	}
	defer store.Close()

	return play(tracks, engine.New(store, engine.WithLogger(log)), *preset, *speed, log)
}

func play(tracks []string, eng *engine.Engine, presetName string, speed float64, log zerolog.Logger) error {
	if presetName != "" {
		if err := eng.SetPreset(presetName); err != nil {
			log.Warn().Err(err).Str("preset", presetName).Msg("preset not applied")
		}
	}

	if speed > 0 {
		eng.SetPlaybackSpeed(speed)
	}

	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	defer keyboard.Close()

	keys := make(chan keyEvent, 8)
	go readKeys(keys)

	speakerRate := beep.SampleRate(0)

	for i := 0; i < len(tracks); i++ {
		track, err := media.Open(tracks[i])
		if err != nil {
			log.Error().Err(err).Str("file", tracks[i]).Msg("skipping track")

			continue
		}

		// Let the outgoing ramp play to silence before the speaker is
		// cleared or reinitialized, otherwise the fade-out is inaudible.
		if cf := eng.Crossfade(); cf.Enabled && eng.Connected() {
			eng.FadeOut()
			time.Sleep(time.Duration(cf.DurationSeconds) * time.Second)
		}

		rate := beep.SampleRate(track.SampleRate())
		if rate != speakerRate {
			if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
				track.Close()

				return fmt.Errorf("speaker: %w", err)
			}

			speakerRate = rate
		}

		next, err := playTrack(eng, track, tracks[i], keys, log)
		track.Close()

		if err != nil {
			return err
		}

		if !next {
			break
		}
	}

	speaker.Clear()
	eng.Disconnect()

	return nil
}

// playTrack plays one track to completion or until the user skips or
// quits. It reports whether playback should continue with the next track.
func playTrack(eng *engine.Engine, track *media.Track, path string, keys <-chan keyEvent, log zerolog.Logger) (bool, error) {
	eng.Connect(track)

	s := eng.Streamer()
	if s == nil {
		return true, fmt.Errorf("no stream for %s", path)
	}

	done := make(chan struct{})
	speaker.Clear()
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	printNowPlaying(eng, track, path)

	paused := false
	presetIdx := -1
	band := 0

	for {
		select {
		case <-done:
			return true, nil

		case ev := <-keys:
			switch {
			case ev.key == keyboard.KeyEsc || ev.ch == 'q':
				return false, nil

			case ev.ch == 'n':
				return true, nil

			case ev.key == keyboard.KeySpace:
				paused = !paused
				if paused {
					if err := speaker.Suspend(); err != nil {
						log.Warn().Err(err).Msg("suspend failed")
					}
				} else if err := speaker.Resume(); err != nil {
					log.Warn().Err(err).Msg("resume failed")
				}

			case ev.key == keyboard.KeyArrowLeft:
				if err := track.Seek(-seekStep); err != nil {
					log.Debug().Err(err).Msg("seek failed")
				}

			case ev.key == keyboard.KeyArrowRight:
				if err := track.Seek(seekStep); err != nil {
					log.Debug().Err(err).Msg("seek failed")
				}

			case ev.ch == '+' || ev.ch == '=':
				eng.SetPlaybackSpeed(eng.PlaybackSpeed() + 0.05)
				printStatus(eng)

			case ev.ch == '-':
				eng.SetPlaybackSpeed(eng.PlaybackSpeed() - 0.05)
				printStatus(eng)

			case ev.ch == 'e':
				eng.SetEQEnabled(!eng.EQEnabled())
				printStatus(eng)

			case ev.ch == 'p':
				names := eng.BuiltinPresets()
				if len(names) > 0 {
					presetIdx = (presetIdx + 1) % len(names)
					if err := eng.SetPreset(names[presetIdx]); err != nil {
						log.Warn().Err(err).Msg("preset failed")
					}
					printStatus(eng)
				}

			case ev.ch == 'j':
				if band > 0 {
					band--
				}
				printBand(eng, band)

			case ev.ch == 'k':
				if band < chain.BandCount-1 {
					band++
				}
				printBand(eng, band)

			case ev.ch == '[':
				eng.SetBand(band, eng.Band(band)-1)
				printBand(eng, band)

			case ev.ch == ']':
				eng.SetBand(band, eng.Band(band)+1)
				printBand(eng, band)

			case ev.ch == 'l':
				printLevel(eng)

			case ev.ch >= '1' && ev.ch <= '5':
				effect := engine.Effects()[ev.ch-'1']
				cur := eng.EffectSetting(effect)
				if err := eng.SetEffectEnabled(effect, !cur.Enabled); err != nil {
					log.Warn().Err(err).Msg("effect toggle failed")
				}
				printStatus(eng)
			}
		}
	}
}

type keyEvent struct {
	ch  rune
	key keyboard.Key
}

func readKeys(out chan<- keyEvent) {
	for {
		ch, key, err := keyboard.GetKey()
		if err != nil {
			return
		}

		out <- keyEvent{ch: ch, key: key}
	}
}

func printNowPlaying(eng *engine.Engine, track *media.Track, path string) {
	title, artist := readTags(path)
	if title == "" {
		title = path
	}

	bold := color.New(color.Bold)
	bold.Printf("\n▶ %s", title)

	if artist != "" {
		fmt.Printf(" - %s", artist)
	}

	fmt.Printf("  (%s)\n", track.Duration().Round(time.Second))
	printStatus(eng)
}

func printStatus(eng *engine.Engine) {
	cyan := color.New(color.FgCyan)

	eq := "off"
	if eng.EQEnabled() {
		eq = "on"
		if p := eng.CurrentPreset(); p != "" {
			eq = p
		}
	}

	cyan.Printf("  eq %s | speed %.2fx (%+d st)", eq, eng.PlaybackSpeed(), eng.PitchSemitones())

	for _, effect := range engine.Effects() {
		if s := eng.EffectSetting(effect); s.Enabled {
			cyan.Printf(" | %s %d%%", effect, s.Intensity)
		}
	}

	fmt.Println()
}

func printBand(eng *engine.Engine, band int) {
	fmt.Printf("  band %d (%.0f Hz): %+.0f dB\n", band, chain.BandFrequencies[band], eng.Band(band))
}

// printLevel prints the current output level from the analyser tap, or
// the unprocessed-audio notice when no chain is running.
func printLevel(eng *engine.Engine) {
	a := eng.Analyser()
	if a == nil {
		fmt.Println("  level: n/a (unprocessed audio)")

		return
	}

	td := a.TimeDomainData(nil)

	sum := 0.0
	for _, v := range td {
		sum += v * v
	}

	rms := math.Sqrt(sum / float64(len(td)))
	db := 20 * math.Log10(math.Max(rms, 1e-7))

	bars := int((db + 60) / 3)
	if bars < 0 {
		bars = 0
	}

	fmt.Printf("  level: %6.1f dBFS %s\n", db, strings.Repeat("▮", bars))
}

func readTags(path string) (title, artist string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", ""
	}

	return m.Title(), m.Artist()
}
