// Package midi encodes note sequences into Standard MIDI Files and decodes
// them back.
package midi

import "github.com/Conceptual-Machines/midigen-api/internal/music"

const (
	// DefaultDivision is the ticks-per-quarter-note resolution the encoder writes
	DefaultDivision uint16 = 480
	// DefaultTempo is 120 BPM expressed in microseconds per quarter note
	DefaultTempo uint32 = 500000

	// MimeType and Extension describe encoded files to HTTP clients and storage
	MimeType  = "audio/midi"
	Extension = ".mid"

	headerID         = "MThd"
	trackID          = "MTrk"
	headerDataLength = 6
	chunkHeaderSize  = 8
	headerChunkSize  = chunkHeaderSize + headerDataLength

	formatSingleTrack uint16 = 0
	smpteDivisionFlag uint16 = 0x8000
	microsPerSecond          = 1_000_000
)

// Status nibbles and meta types used by the codec
const (
	statusNoteOff         byte = 0x80
	statusNoteOn          byte = 0x90
	statusPolyPressure    byte = 0xA0
	statusControlChange   byte = 0xB0
	statusProgramChange   byte = 0xC0
	statusChannelPressure byte = 0xD0
	statusPitchBend       byte = 0xE0
	statusSysEx           byte = 0xF0
	statusSysExEscape     byte = 0xF7
	statusMeta            byte = 0xFF

	metaEndOfTrack byte = 0x2F
	metaSetTempo   byte = 0x51

	statusMask  byte = 0xF0
	channelMask byte = 0x0F
	dataMask    byte = 0x7F
	statusFlag  byte = 0x80
)

// Event is one decoded track event at an absolute tick
type Event struct {
	Tick uint32
	// Status is the effective status byte, with running status resolved
	Status byte
	// MetaType is only set for meta events (Status 0xFF)
	MetaType byte
	Data     []byte
}

// Channel returns the channel of a channel voice message
func (e Event) Channel() uint8 {
	return e.Status & channelMask
}

// Kind returns the status nibble of a channel voice message
func (e Event) Kind() byte {
	return e.Status & statusMask
}

// IsMeta reports whether the event is a meta event
func (e Event) IsMeta() bool {
	return e.Status == statusMeta
}

// Track is the ordered event list of one MTrk chunk
type Track struct {
	Events []Event
}

// File is a decoded Standard MIDI File reduced to what playback and display need
type File struct {
	Format   uint16
	Division uint16
	Tracks   []Track

	// Program is the first program change found, HasProgram reports whether one existed
	Program    uint8
	HasProgram bool
	Instrument string

	Notes    []music.Note
	Duration float64
	Warnings []string
}
