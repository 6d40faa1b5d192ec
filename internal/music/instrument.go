package music

import (
	"sort"
	"strings"
)

// DefaultInstrument is used whenever a request omits the instrument
const DefaultInstrument = "piano"

// General MIDI program numbers for the instruments the UI offers
var instrumentPrograms = map[string]uint8{
	"piano":     0,   // Acoustic Grand Piano
	"guitar":    24,  // Acoustic Guitar (nylon)
	"violin":    40,  // Violin
	"cello":     42,  // Cello
	"trumpet":   56,  // Trumpet
	"saxophone": 66,  // Alto Sax
	"flute":     73,  // Flute
	"drums":     118, // Synth Drum
}

// Program returns the GM program for an instrument name; unknown names map to 0
func Program(instrument string) uint8 {
	return instrumentPrograms[NormalizeInstrument(instrument)]
}

// NormalizeInstrument lowercases and trims, defaulting empty names to piano
func NormalizeInstrument(instrument string) string {
	name := strings.ToLower(strings.TrimSpace(instrument))
	if name == "" {
		return DefaultInstrument
	}
	return name
}

// InstrumentName resolves a GM program back to a known instrument name
func InstrumentName(program uint8) string {
	for name, p := range instrumentPrograms {
		if p == program {
			return name
		}
	}
	return DefaultInstrument
}

// Instruments lists the supported instrument names in program order
func Instruments() []string {
	names := make([]string, 0, len(instrumentPrograms))
	for name := range instrumentPrograms {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return instrumentPrograms[names[i]] < instrumentPrograms[names[j]]
	})
	return names
}
