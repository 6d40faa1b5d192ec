// Package audio renders scheduler output through a SoundFont synthesizer.
package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

const (
	DefaultSampleRate = 44100
	DefaultBuffer     = 100 * time.Millisecond

	channel        int32 = 0
	programCommand int32 = 0xC0
)

// Synth is a SoundFont synthesizer that satisfies playback.Synth and streams
// its output as a beep.Streamer.
type Synth struct {
	mu         sync.Mutex
	synth      *meltysynth.Synthesizer
	sampleRate int
	volume     float64
	left       []float32
	right      []float32
}

// LoadSoundFont reads an .sf2 file from disk
func LoadSoundFont(path string) (*meltysynth.SoundFont, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open soundfont: %w", err)
	}
	defer f.Close()

	sf, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse soundfont %s: %w", path, err)
	}
	return sf, nil
}

func NewSynth(sf *meltysynth.SoundFont, sampleRate int) (*Synth, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	return &Synth{synth: synth, sampleRate: sampleRate, volume: 1}, nil
}

func (s *Synth) SetProgram(program uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.ProcessMidiMessage(channel, programCommand, int32(program), 0)
}

func (s *Synth) NoteOn(key, velocity uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOn(channel, int32(key), int32(velocity))
}

func (s *Synth) NoteOff(key uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOff(channel, int32(key))
}

func (s *Synth) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synth.NoteOffAll(false)
}

func (s *Synth) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clamp(volume)
}

func (s *Synth) SampleRate() beep.SampleRate {
	return beep.SampleRate(s.sampleRate)
}

// Stream implements beep.Streamer. It never runs dry: silence is rendered
// between notes.
func (s *Synth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cap(s.left) < len(samples) {
		s.left = make([]float32, len(samples))
		s.right = make([]float32, len(samples))
	}
	left, right := s.left[:len(samples)], s.right[:len(samples)]
	s.synth.Render(left, right)

	for i := range samples {
		samples[i][0] = float64(left[i]) * s.volume
		samples[i][1] = float64(right[i]) * s.volume
	}
	return len(samples), true
}

func (s *Synth) Err() error {
	return nil
}

// Start opens the default output device and streams the synth to it
func (s *Synth) Start(buffer time.Duration) error {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sr := s.SampleRate()
	if err := speaker.Init(sr, sr.N(buffer)); err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	speaker.Play(s)
	return nil
}

// Close silences the synth and releases the output device
func (s *Synth) Close() {
	s.AllNotesOff()
	speaker.Clear()
	speaker.Close()
}

func clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
