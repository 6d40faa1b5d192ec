package midi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
)

// Encoder writes single-track (format 0) Standard MIDI Files
type Encoder struct {
	// Division is ticks per quarter note; zero means DefaultDivision
	Division uint16
	// Tempo is microseconds per quarter note used to convert seconds to ticks.
	// No Set-Tempo event is written, so anything other than DefaultTempo only
	// makes sense for readers that are told the tempo out of band.
	Tempo uint32
	// RunningStatus omits repeated status bytes
	RunningStatus bool
	// Channel is the MIDI channel (0-15) every event is written on
	Channel uint8
}

// Encode renders notes with the default encoder. A velocity of 0 is written as
// byte 1, so it decodes as 1/127 rather than 0.
func Encode(notes []music.Note, instrument string) ([]byte, error) {
	return Encoder{}.Encode(notes, instrument)
}

type trackEvent struct {
	tick     uint32
	noteOn   bool
	key      uint8
	velocity uint8
}

// Encode validates every note and returns the complete file bytes. The program
// change for instrument is written at tick zero, unknown instruments map to 0.
func (e Encoder) Encode(notes []music.Note, instrument string) ([]byte, error) {
	division := e.Division
	if division == 0 {
		division = DefaultDivision
	}
	tempo := e.Tempo
	if tempo == 0 {
		tempo = DefaultTempo
	}
	ticksPerSecond := float64(division) * microsPerSecond / float64(tempo)

	events := make([]trackEvent, 0, len(notes)*2)
	for i, n := range notes {
		if err := music.Validate(n); err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		key, _ := music.ParsePitch(n.Pitch)

		onTick, err := secondsToTicks(n.StartTime, ticksPerSecond)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		offTick, err := secondsToTicks(n.End(), ticksPerSecond)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		if offTick <= onTick {
			offTick = onTick + 1
		}

		// a zero velocity Note-On would read back as a Note-Off
		velocity := music.VelocityByte(n.Velocity)
		if velocity == 0 {
			velocity = 1
		}

		events = append(events,
			trackEvent{tick: onTick, noteOn: true, key: uint8(key), velocity: velocity},
			trackEvent{tick: offTick, key: uint8(key)},
		)
	}

	// Note-Off before Note-On at the same tick so a repeated pitch retriggers
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].noteOn && events[j].noteOn
	})

	track, err := e.buildTrack(events, music.Program(instrument))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(headerChunkSize + chunkHeaderSize + len(track))
	buf.WriteString(headerID)
	_ = binary.Write(&buf, binary.BigEndian, uint32(headerDataLength))
	_ = binary.Write(&buf, binary.BigEndian, formatSingleTrack)
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))
	_ = binary.Write(&buf, binary.BigEndian, division)

	buf.WriteString(trackID)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(track)))
	buf.Write(track)

	return buf.Bytes(), nil
}

func (e Encoder) buildTrack(events []trackEvent, program uint8) ([]byte, error) {
	channel := e.Channel & channelMask
	track := make([]byte, 0, 4+len(events)*4+4)

	track = append(track, 0x00, statusProgramChange|channel, program&dataMask)
	running := statusProgramChange | channel

	var last uint32
	var err error
	for _, ev := range events {
		track, err = AppendVLQ(track, ev.tick-last)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidNote, "note too far apart to encode", err)
		}
		last = ev.tick

		status := statusNoteOff | channel
		velocity := uint8(0)
		if ev.noteOn {
			status = statusNoteOn | channel
			velocity = ev.velocity
		}
		if !e.RunningStatus || status != running {
			track = append(track, status)
			running = status
		}
		track = append(track, ev.key&dataMask, velocity&dataMask)
	}

	return append(track, 0x00, statusMeta, metaEndOfTrack, 0x00), nil
}

func secondsToTicks(seconds, ticksPerSecond float64) (uint32, error) {
	ticks := math.Round(seconds * ticksPerSecond)
	if ticks > float64(MaxVLQ) {
		return 0, apperr.Newf(apperr.InvalidNote, "time %.3fs is beyond the encodable range", seconds)
	}
	return uint32(ticks), nil
}
