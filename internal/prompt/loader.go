package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/midigen-api/pkg/embedded"
)

const (
	templateRecreateSong = "recreate_song.tmpl"
	templateNewMelody    = "new_melody.tmpl"
	templateGlob         = "data/prompts/*.tmpl"
)

type Loader struct {
	templates *template.Template
}

// NewPromptLoader parses the embedded prompt templates
func NewPromptLoader() (*Loader, error) {
	tmpl, err := template.ParseFS(embedded.Prompts, templateGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &Loader{templates: tmpl}, nil
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() string {
	return strings.TrimSpace(string(embedded.SystemPromptTxt))
}

// Render executes the named template with data
func (l *Loader) Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := l.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
