package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Build(t *testing.T) {
	builder, err := NewPromptBuilder()
	require.NoError(t, err)

	tests := []struct {
		name        string
		params      Params
		template    string
		contains    []string
		notContains []string
	}{
		{
			name:     "song recreation",
			params:   Params{SongName: "Für Elise", Extra: "  play it slowly ", Instrument: "Violin"},
			template: templateRecreateSong,
			contains: []string{`"Für Elise"`, "for violin", "- play it slowly\n", "16 bars"},
		},
		{
			name:        "new melody defaults",
			params:      Params{},
			template:    templateNewMelody,
			contains:    []string{"melody for piano", "- " + defaultExtra},
			notContains: []string{"16 bars"},
		},
		{
			name:     "blank song name is a new melody",
			params:   Params{SongName: "   ", Instrument: "flute"},
			template: templateNewMelody,
			contains: []string{"melody for flute"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := builder.Build(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.template, p.Template)
			assert.Contains(t, p.System, "JSON array")
			for _, s := range tt.contains {
				assert.Contains(t, p.User, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, p.User, s)
			}
			for _, field := range []string{`"note"`, `"time"`, `"duration"`, `"velocity"`} {
				assert.Contains(t, p.User, field)
			}
		})
	}
}

func TestLoader_RenderUnknownTemplate(t *testing.T) {
	loader, err := NewPromptLoader()
	require.NoError(t, err)

	_, err = loader.Render("missing.tmpl", nil)
	assert.Error(t, err)
}
