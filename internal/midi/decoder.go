package midi

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
)

func malformed(format string, args ...any) error {
	return apperr.Newf(apperr.MalformedMidi, format, args...)
}

// Decode parses a Standard MIDI File of format 0 or 1 and reconstructs its
// notes in seconds. Tempo changes are honored, SMPTE divisions are rejected.
func Decode(data []byte) (*File, error) {
	if len(data) < headerChunkSize || string(data[:4]) != headerID {
		return nil, malformed("missing %s header", headerID)
	}

	headerLen := binary.BigEndian.Uint32(data[4:8])
	if headerLen < headerDataLength || uint64(headerLen) > uint64(len(data)-chunkHeaderSize) {
		return nil, malformed("header length %d does not match content", headerLen)
	}

	f := &File{
		Format:   binary.BigEndian.Uint16(data[8:10]),
		Division: binary.BigEndian.Uint16(data[12:14]),
	}
	trackCount := int(binary.BigEndian.Uint16(data[10:12]))

	if f.Division&smpteDivisionFlag != 0 {
		return nil, malformed("SMPTE time division is not supported")
	}
	if f.Division == 0 {
		return nil, malformed("time division is zero")
	}
	if f.Format > 2 {
		return nil, malformed("unknown format %d", f.Format)
	}

	pos := chunkHeaderSize + int(headerLen)
	for len(f.Tracks) < trackCount {
		if len(data)-pos < chunkHeaderSize {
			return nil, malformed("expected %d tracks, found %d", trackCount, len(f.Tracks))
		}
		id := string(data[pos : pos+4])
		length := binary.BigEndian.Uint32(data[pos+4 : pos+8])
		pos += chunkHeaderSize
		if uint64(length) > uint64(len(data)-pos) {
			return nil, malformed("%s chunk length %d does not match content", id, length)
		}
		body := data[pos : pos+int(length)]
		pos += int(length)

		// unknown chunk types are skipped
		if id != trackID {
			continue
		}
		track, err := parseTrack(body, len(f.Tracks))
		if err != nil {
			return nil, err
		}
		f.Tracks = append(f.Tracks, track)
	}
	if pos != len(data) {
		return nil, malformed("%d bytes after the last declared track", len(data)-pos)
	}

	f.reconstruct()
	return f, nil
}

func parseTrack(body []byte, index int) (Track, error) {
	var track Track
	var tick uint32
	var running byte
	pos := 0

	for pos < len(body) {
		delta, n, err := DecodeVLQ(body[pos:])
		if err != nil {
			return track, fmt.Errorf("track %d at byte %d: %w", index, pos, err)
		}
		pos += n
		tick += delta

		if pos >= len(body) {
			return track, malformed("track %d: event overruns chunk", index)
		}

		status := body[pos]
		if status&statusFlag != 0 {
			pos++
		} else {
			if running == 0 {
				return track, malformed("track %d at byte %d: running status without a previous status", index, pos)
			}
			status = running
		}

		switch {
		case status == statusMeta:
			running = 0
			if pos >= len(body) {
				return track, malformed("track %d: truncated meta event", index)
			}
			metaType := body[pos]
			pos++
			payload, n, err := readLengthPrefixed(body[pos:])
			if err != nil {
				return track, fmt.Errorf("track %d meta 0x%02X: %w", index, metaType, err)
			}
			pos += n
			track.Events = append(track.Events, Event{Tick: tick, Status: status, MetaType: metaType, Data: payload})

			if metaType == metaEndOfTrack {
				if pos != len(body) {
					return track, malformed("track %d: %d bytes after end of track", index, len(body)-pos)
				}
				return track, nil
			}

		case status == statusSysEx || status == statusSysExEscape:
			running = 0
			payload, n, err := readLengthPrefixed(body[pos:])
			if err != nil {
				return track, fmt.Errorf("track %d sysex: %w", index, err)
			}
			pos += n
			track.Events = append(track.Events, Event{Tick: tick, Status: status, Data: payload})

		case status < statusSysEx:
			size := channelDataSize(status)
			if pos+size > len(body) {
				return track, malformed("track %d: channel message overruns chunk", index)
			}
			msg := make([]byte, size)
			copy(msg, body[pos:pos+size])
			for _, b := range msg {
				if b&statusFlag != 0 {
					return track, malformed("track %d at byte %d: data byte 0x%02X has the status bit set", index, pos, b)
				}
			}
			pos += size
			running = status
			track.Events = append(track.Events, Event{Tick: tick, Status: status, Data: msg})

		default:
			return track, malformed("track %d: unexpected status 0x%02X", index, status)
		}
	}

	// the declared length must end exactly on the end of track event
	return track, malformed("track %d: chunk length %d ends before end of track", index, len(body))
}

func readLengthPrefixed(data []byte) ([]byte, int, error) {
	length, n, err := DecodeVLQ(data)
	if err != nil {
		return nil, 0, err
	}
	if uint64(length) > uint64(len(data)-n) {
		return nil, 0, malformed("payload length %d overruns chunk", length)
	}
	payload := make([]byte, length)
	copy(payload, data[n:n+int(length)])
	return payload, n + int(length), nil
}

func channelDataSize(status byte) int {
	switch status & statusMask {
	case statusProgramChange, statusChannelPressure:
		return 1
	default:
		return 2
	}
}

type tempoChange struct {
	tick    uint32
	tempo   uint32
	seconds float64
}

// tempoMap converts ticks to seconds piecewise across Set-Tempo events
type tempoMap struct {
	division float64
	changes  []tempoChange
}

func newTempoMap(division uint16, tracks []Track) *tempoMap {
	var changes []tempoChange
	for _, t := range tracks {
		for _, ev := range t.Events {
			if ev.IsMeta() && ev.MetaType == metaSetTempo && len(ev.Data) == 3 {
				tempo := uint32(ev.Data[0])<<16 | uint32(ev.Data[1])<<8 | uint32(ev.Data[2])
				if tempo == 0 {
					continue
				}
				changes = append(changes, tempoChange{tick: ev.Tick, tempo: tempo})
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].tick < changes[j].tick })

	if len(changes) == 0 || changes[0].tick != 0 {
		changes = append([]tempoChange{{tick: 0, tempo: DefaultTempo}}, changes...)
	}

	m := &tempoMap{division: float64(division), changes: changes}
	for i := 1; i < len(changes); i++ {
		prev := changes[i-1]
		changes[i].seconds = prev.seconds + m.span(changes[i].tick-prev.tick, prev.tempo)
	}
	return m
}

func (m *tempoMap) span(ticks, tempo uint32) float64 {
	return float64(ticks) * float64(tempo) / microsPerSecond / m.division
}

func (m *tempoMap) seconds(tick uint32) float64 {
	i := sort.Search(len(m.changes), func(i int) bool { return m.changes[i].tick > tick }) - 1
	c := m.changes[i]
	return c.seconds + m.span(tick-c.tick, c.tempo)
}

type openNote struct {
	tick     uint32
	velocity uint8
	order    int
}

type noteSpan struct {
	key      uint8
	on, off  uint32
	velocity uint8
	order    int
}

// reconstruct pairs Note-On/Note-Off events into notes and picks the program
func (f *File) reconstruct() {
	tempo := newTempoMap(f.Division, f.Tracks)

	var spans []noteSpan
	programTick := uint32(0)
	order := 0

	for ti, t := range f.Tracks {
		open := make(map[uint16][]openNote)
		var end uint32

		for _, ev := range t.Events {
			end = ev.Tick
			if ev.IsMeta() || ev.Status >= statusSysEx {
				continue
			}

			switch ev.Kind() {
			case statusProgramChange:
				if !f.HasProgram || ev.Tick < programTick {
					f.Program, f.HasProgram, programTick = ev.Data[0], true, ev.Tick
				}

			case statusNoteOn, statusNoteOff:
				key := ev.Data[0]
				slot := uint16(ev.Channel())<<8 | uint16(key)

				if ev.Kind() == statusNoteOn && ev.Data[1] > 0 {
					open[slot] = append(open[slot], openNote{tick: ev.Tick, velocity: ev.Data[1], order: order})
					order++
					continue
				}

				pending := open[slot]
				if len(pending) == 0 {
					f.warn(fmt.Sprintf("track %d: Note-Off for key %d at tick %d without matching Note-On", ti, key, ev.Tick))
					continue
				}
				on := pending[0]
				open[slot] = pending[1:]
				spans = append(spans, noteSpan{key: key, on: on.tick, off: ev.Tick, velocity: on.velocity, order: on.order})
			}
		}

		for slot, pending := range open {
			for _, on := range pending {
				f.warn(fmt.Sprintf("track %d: key %d still sounding at end of track, closing it", ti, slot&0xFF))
				off := end
				if off <= on.tick {
					off = on.tick + 1
				}
				spans = append(spans, noteSpan{key: uint8(slot & 0xFF), on: on.tick, off: off, velocity: on.velocity, order: on.order})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].on != spans[j].on {
			return spans[i].on < spans[j].on
		}
		return spans[i].order < spans[j].order
	})

	f.Notes = make([]music.Note, 0, len(spans))
	for _, s := range spans {
		start := tempo.seconds(s.on)
		f.Notes = append(f.Notes, music.Note{
			Pitch:     music.PitchName(int(s.key)),
			StartTime: start,
			Duration:  tempo.seconds(s.off) - start,
			Velocity:  music.VelocityFromByte(s.velocity),
		})
	}
	f.Duration = music.TotalDuration(f.Notes)
	f.Instrument = music.InstrumentName(f.Program)
}

func (f *File) warn(msg string) {
	f.Warnings = append(f.Warnings, msg)
	logger.Warn("MIDI decode: "+msg, nil)
}
