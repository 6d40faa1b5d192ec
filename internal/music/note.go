// Package music holds the note model shared by the MIDI codec, the
// generation pipeline and the playback scheduler.
package music

import (
	"math"
	"regexp"
	"strconv"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
)

const (
	// MaxKey is the highest MIDI key number
	MaxKey = 127
	// MaxVelocity is the highest MIDI velocity byte
	MaxVelocity = 127

	semitonesPerOctave = 12
)

// Note is one musical event. JSON field names match what the AI is asked to emit.
type Note struct {
	Pitch     string  `json:"note"`
	StartTime float64 `json:"time"`
	Duration  float64 `json:"duration"`
	Velocity  float64 `json:"velocity"`
}

// End returns the absolute time in seconds at which the note stops sounding
func (n Note) End() float64 {
	return n.StartTime + n.Duration
}

var pitchPattern = regexp.MustCompile(`^([A-G])(#|b)?(-?\d+)$`)

// Semitone offsets from C
var pitchClassOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParsePitch converts scientific pitch notation ("C4", "G#5", "Bb-1") to a
// MIDI key number. C4 = 60.
func ParsePitch(s string) (int, error) {
	m := pitchPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, apperr.Newf(apperr.InvalidPitch, "invalid pitch %q", s)
	}

	semitone := pitchClassOffsets[m[1][0]]
	switch m[2] {
	case "#":
		semitone++
	case "b":
		semitone--
	}

	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, apperr.Wrap(apperr.InvalidPitch, "invalid octave in "+strconv.Quote(s), err)
	}

	key := semitonesPerOctave*(octave+1) + semitone
	if key < 0 || key > MaxKey {
		return 0, apperr.Newf(apperr.InvalidPitch, "pitch %q is outside the MIDI key range", s)
	}
	return key, nil
}

var pitchNames = [semitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName is the inverse of ParsePitch, spelling accidentals as sharps
func PitchName(key int) string {
	if key < 0 {
		key = 0
	}
	if key > MaxKey {
		key = MaxKey
	}
	octave := key/semitonesPerOctave - 1
	return pitchNames[key%semitonesPerOctave] + strconv.Itoa(octave)
}

// VelocityByte maps a [0,1] velocity onto 0..127, rounding and clamping
func VelocityByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	b := math.Round(v * MaxVelocity)
	if b > MaxVelocity {
		return MaxVelocity
	}
	return uint8(b)
}

// VelocityFromByte maps a MIDI velocity byte back onto [0,1]
func VelocityFromByte(b uint8) float64 {
	if b > MaxVelocity {
		b = MaxVelocity
	}
	return float64(b) / MaxVelocity
}

// Validate rejects notes that cannot be encoded
func Validate(n Note) error {
	if _, err := ParsePitch(n.Pitch); err != nil {
		return err
	}
	if !isFinite(n.StartTime) || n.StartTime < 0 {
		return apperr.Newf(apperr.InvalidNote, "start time must be >= 0, got %v", n.StartTime)
	}
	if !isFinite(n.Duration) || n.Duration <= 0 {
		return apperr.Newf(apperr.InvalidNote, "duration must be > 0, got %v", n.Duration)
	}
	if !isFinite(n.Velocity) || n.Velocity < 0 || n.Velocity > 1 {
		return apperr.Newf(apperr.InvalidNote, "velocity must be within [0,1], got %v", n.Velocity)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// TotalDuration is the end time of the last sounding note
func TotalDuration(notes []Note) float64 {
	var total float64
	for _, n := range notes {
		if end := n.End(); end > total {
			total = end
		}
	}
	return total
}
