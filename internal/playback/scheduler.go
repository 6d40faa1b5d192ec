// Package playback drives a synthesizer from a note sequence in real time.
package playback

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/midi"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
)

// State of the transport
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

const DefaultProgressInterval = 100 * time.Millisecond

var (
	ErrAlreadyPlaying = errors.New("playback: a sequence is already loaded, stop it first")
	ErrNotPlaying     = errors.New("playback: nothing is playing")
	ErrNotPaused      = errors.New("playback: not paused")
)

// Synth is the sound source the scheduler triggers. Implementations must not
// call back into the scheduler.
type Synth interface {
	SetProgram(program uint8)
	NoteOn(key, velocity uint8)
	NoteOff(key uint8)
	AllNotesOff()
	SetVolume(volume float64)
}

type ProgressFunc func(position, total time.Duration)

type StateFunc func(State)

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithProgressInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithProgressHandler(fn ProgressFunc) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

func WithStateHandler(fn StateFunc) Option {
	return func(s *Scheduler) { s.onState = fn }
}

type scheduledNote struct {
	key      uint8
	velocity uint8
	start    time.Duration
	end      time.Duration
}

// trigger is one synth call at a transport position
type trigger struct {
	at       time.Duration
	release  bool
	key      uint8
	velocity uint8
}

// Scheduler plays one sequence at a time. Control calls are serialized and a
// single timer walks an ordered trigger queue; a timer callback from an earlier
// epoch does nothing.
type Scheduler struct {
	mu       sync.Mutex
	clock    Clock
	synth    Synth
	interval time.Duration

	onProgress ProgressFunc
	onState    StateFunc

	state  State
	epoch  uint64
	notes  []scheduledNote
	total  time.Duration
	volume float64

	// position = offset + (now - startedAt) while playing
	offset    time.Duration
	startedAt time.Time
	timer     Timer

	triggers     []trigger
	cursor       int
	nextProgress time.Duration

	// notifications queued under mu, delivered after unlock
	events []func()
}

func New(synth Synth, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    SystemClock{},
		synth:    synth,
		interval: DefaultProgressInterval,
		volume:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play loads notes and starts the transport at position zero
func (s *Scheduler) Play(notes []music.Note, instrument string) error {
	s.mu.Lock()
	defer s.unlock()

	if s.state != Idle {
		return ErrAlreadyPlaying
	}
	s.start(notes, music.Program(instrument))
	return nil
}

// PlayFile decodes a Standard MIDI File and plays it. The scheduler reports
// Loading while decoding; a decode failure returns it to Idle.
func (s *Scheduler) PlayFile(data []byte) error {
	s.mu.Lock()
	if s.state != Idle {
		s.unlock()
		return ErrAlreadyPlaying
	}
	s.setState(Loading)
	epoch := s.epoch
	s.unlock()

	f, err := midi.Decode(data)

	s.mu.Lock()
	defer s.unlock()

	// stopped while decoding
	if s.epoch != epoch || s.state != Loading {
		return nil
	}
	if err != nil {
		s.setState(Idle)
		return err
	}
	s.start(f.Notes, f.Program)
	return nil
}

func (s *Scheduler) start(notes []music.Note, program uint8) {
	s.notes = s.notes[:0]
	s.total = 0
	for i, n := range notes {
		key, err := music.ParsePitch(n.Pitch)
		if err != nil {
			logger.Warn("Skipping unplayable note", logger.Fields{"index": i, "pitch": n.Pitch})
			continue
		}
		sn := scheduledNote{
			key:      uint8(key),
			velocity: music.VelocityByte(n.Velocity),
			start:    seconds(n.StartTime),
			end:      seconds(n.End()),
		}
		s.notes = append(s.notes, sn)
		if sn.end > s.total {
			s.total = sn.end
		}
	}

	s.synth.SetProgram(program)
	s.synth.SetVolume(s.volume)
	s.offset = 0
	s.run()
}

// run queues the triggers still ahead of offset and arms the first tick.
// Caller holds mu.
func (s *Scheduler) run() {
	s.epoch++
	s.startedAt = s.clock.Now()
	s.setState(Playing)

	s.triggers = s.triggers[:0]
	for _, n := range s.notes {
		if n.end <= s.offset {
			continue
		}
		// resumed inside the note, sound what is left of it
		start := max(n.start, s.offset)
		s.triggers = append(s.triggers,
			trigger{at: start, key: n.key, velocity: n.velocity},
			trigger{at: n.end, release: true, key: n.key},
		)
	}
	// a release and an attack due at the same instant fire in that order
	sort.SliceStable(s.triggers, func(i, j int) bool {
		a, b := s.triggers[i], s.triggers[j]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.release && !b.release
	})
	s.cursor = 0
	s.nextProgress = s.offset + s.interval

	s.arm(s.offset)
}

// arm schedules the next tick relative to pos. Caller holds mu.
func (s *Scheduler) arm(pos time.Duration) {
	next := s.nextProgress
	if s.cursor < len(s.triggers) {
		next = min(next, s.triggers[s.cursor].at)
	} else {
		next = min(next, s.total)
	}

	epoch := s.epoch
	s.timer = s.clock.AfterFunc(max(next-pos, 0), func() {
		s.mu.Lock()
		defer s.unlock()
		if s.epoch != epoch {
			return
		}
		s.tick()
	})
}

// tick fires every trigger that is due, in queue order, then reports progress
// and either finishes or re-arms. Caller holds mu.
func (s *Scheduler) tick() {
	pos := s.offset + s.clock.Now().Sub(s.startedAt)

	for s.cursor < len(s.triggers) && s.triggers[s.cursor].at <= pos {
		t := s.triggers[s.cursor]
		if t.release {
			s.synth.NoteOff(t.key)
		} else {
			s.synth.NoteOn(t.key, t.velocity)
		}
		s.cursor++
	}

	done := s.cursor == len(s.triggers) && pos >= s.total
	if pos >= s.nextProgress || done {
		for s.nextProgress <= pos {
			s.nextProgress += s.interval
		}
		if s.onProgress != nil {
			reported, total := min(pos, s.total), s.total
			s.queue(func() { s.onProgress(reported, total) })
		}
	}

	if done {
		s.halt()
		s.setState(Idle)
		return
	}
	s.arm(pos)
}

// halt invalidates the armed tick and silences the synth. Caller holds mu.
func (s *Scheduler) halt() {
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.triggers = s.triggers[:0]
	s.cursor = 0
	s.synth.AllNotesOff()
	s.offset = 0
}

// Pause freezes the transport, keeping the position
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.unlock()

	if s.state != Playing {
		return ErrNotPlaying
	}
	pos := s.position()
	s.halt()
	s.offset = pos
	s.setState(Paused)
	return nil
}

// Resume continues from the paused position
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.unlock()

	if s.state != Paused {
		return ErrNotPaused
	}
	s.run()
	return nil
}

// Stop cancels everything and returns to Idle. Calling it when idle is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.unlock()

	if s.state == Idle {
		return
	}
	s.halt()
	s.notes = nil
	s.total = 0
	s.setState(Idle)
}

// Seek moves the transport to pos, clamped to the sequence length
func (s *Scheduler) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.unlock()

	if pos < 0 {
		pos = 0
	}
	if pos > s.total {
		pos = s.total
	}

	switch s.state {
	case Playing:
		s.halt()
		s.offset = pos
		s.run()
	case Paused:
		s.offset = pos
	default:
		return ErrNotPlaying
	}
	return nil
}

// SetVolume clamps v to [0,1] and applies it immediately
func (s *Scheduler) SetVolume(v float64) {
	s.mu.Lock()
	defer s.unlock()

	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.volume = v
	s.synth.SetVolume(v)
}

func (s *Scheduler) Volume() float64 {
	s.mu.Lock()
	defer s.unlock()
	return s.volume
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.unlock()
	return s.state
}

func (s *Scheduler) Position() time.Duration {
	s.mu.Lock()
	defer s.unlock()
	return s.position()
}

// Duration is the end of the last note of the loaded sequence
func (s *Scheduler) Duration() time.Duration {
	s.mu.Lock()
	defer s.unlock()
	return s.total
}

func (s *Scheduler) position() time.Duration {
	switch s.state {
	case Playing:
		pos := s.offset + s.clock.Now().Sub(s.startedAt)
		if pos > s.total {
			pos = s.total
		}
		return pos
	case Paused:
		return s.offset
	default:
		return 0
	}
}

func (s *Scheduler) setState(state State) {
	if s.state == state {
		return
	}
	s.state = state
	if s.onState != nil {
		s.queue(func() { s.onState(state) })
	}
}

func (s *Scheduler) queue(fn func()) {
	s.events = append(s.events, fn)
}

// unlock releases mu and then delivers queued notifications, so handlers may
// call back into the scheduler.
func (s *Scheduler) unlock() {
	events := s.events
	s.events = nil
	s.mu.Unlock()
	for _, fn := range events {
		fn()
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
