package music

import (
	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
)

const (
	fallbackSpacing  = 0.5
	fallbackDuration = 0.5
	fallbackVelocity = 0.8
)

var fallbackPitches = []string{"C4", "D4", "E4", "F4", "G4"}

// FallbackMelody is the deterministic melody substituted when nothing valid
// survives sanitization.
func FallbackMelody() []Note {
	notes := make([]Note, len(fallbackPitches))
	for i, p := range fallbackPitches {
		notes[i] = Note{
			Pitch:     p,
			StartTime: float64(i) * fallbackSpacing,
			Duration:  fallbackDuration,
			Velocity:  fallbackVelocity,
		}
	}
	return notes
}

// SanitizeResult describes what Sanitize kept and threw away
type SanitizeResult struct {
	Notes    []Note
	Dropped  int
	Fallback bool
}

// Sanitize drops invalid notes instead of failing the batch. When nothing
// survives the fallback melody is returned.
func Sanitize(notes []Note) SanitizeResult {
	kept := make([]Note, 0, len(notes))
	dropped := 0

	for i, n := range notes {
		if err := Validate(n); err != nil {
			dropped++
			logger.Debug("Dropping invalid note", logger.Fields{
				"index": i,
				"kind":  string(apperr.KindOf(err)),
				"error": err.Error(),
			})
			continue
		}
		kept = append(kept, n)
	}

	if len(kept) == 0 {
		logger.Warn("No valid notes survived sanitization, using fallback melody", logger.Fields{
			"input_count": len(notes),
		})
		return SanitizeResult{Notes: FallbackMelody(), Dropped: dropped, Fallback: true}
	}

	return SanitizeResult{Notes: kept, Dropped: dropped}
}
