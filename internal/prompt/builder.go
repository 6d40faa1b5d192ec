package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/midigen-api/internal/music"
)

const defaultExtra = "Make sure the result sounds musically coherent"

// Params are the user inputs a generation prompt is built from
type Params struct {
	SongName   string
	Extra      string
	Instrument string
}

// Prompt is a ready to send system prompt plus user prompt
type Prompt struct {
	System   string
	User     string
	Template string
}

// Builder builds generation prompts from embedded templates
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() (*Builder, error) {
	loader, err := NewPromptLoader()
	if err != nil {
		return nil, err
	}
	return &Builder{loader: loader}, nil
}

// Build picks the song transcription prompt when a song name is given and
// the free melody prompt otherwise.
func (b *Builder) Build(p Params) (*Prompt, error) {
	data := Params{
		SongName:   strings.TrimSpace(p.SongName),
		Extra:      strings.TrimSpace(p.Extra),
		Instrument: music.NormalizeInstrument(p.Instrument),
	}
	if data.Extra == "" {
		data.Extra = defaultExtra
	}

	name := templateNewMelody
	if data.SongName != "" {
		name = templateRecreateSong
	}

	user, err := b.loader.Render(name, data)
	if err != nil {
		return nil, err
	}
	return &Prompt{System: b.loader.GetSystemPrompt(), User: user, Template: name}, nil
}
