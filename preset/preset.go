// Package preset provides the compiled-in 10-band equalizer presets.
//
// Each preset is a tuple of band gains in dB, one per center frequency
// of the player's fixed 10-band equalizer (32 Hz .. 16 kHz).
package preset

import "sort"

// BandCount is the number of equalizer bands a preset covers.
const BandCount = 10

// builtin holds the compiled-in presets. Values are gains in dB per band,
// ordered from the lowest to the highest center frequency.
var builtin = map[string][BandCount]float64{
	"flat":         {0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	"bass_boost":   {6, 5, 4, 2, 0, 0, 0, 0, 0, 0},
	"treble_boost": {0, 0, 0, 0, 0, 0, 2, 4, 5, 6},
	"rock":         {5, 4, 3, 1, -1, -1, 1, 3, 4, 5},
	"pop":          {-1, 0, 2, 4, 4, 2, 0, -1, -1, -2},
	"jazz":         {3, 2, 1, 2, -2, -2, 0, 1, 2, 3},
	"classical":    {4, 3, 2, 0, 0, 0, -1, 2, 3, 4},
	"electronic":   {4, 3, 1, 0, -2, 1, 1, 2, 4, 5},
	"hiphop":       {5, 4, 2, 3, -1, -1, 1, 0, 2, 3},
	"vocal":        {-2, -3, -2, 1, 4, 4, 3, 1, 0, -1},
}

// Lookup returns the built-in preset with the given name.
func Lookup(name string) ([BandCount]float64, bool) {
	tuple, ok := builtin[name]

	return tuple, ok
}

// Names returns the names of all built-in presets in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// All returns a copy of the built-in preset table.
func All() map[string][BandCount]float64 {
	out := make(map[string][BandCount]float64, len(builtin))
	for name, tuple := range builtin {
		out[name] = tuple
	}

	return out
}
