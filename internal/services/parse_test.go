package services

import (
	"testing"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: "  [1]  ", want: "[1]"},
		{name: "json fence", in: "```json\n[1]\n```", want: "[1]"},
		{name: "bare fence", in: "```\n[1]\n```", want: "[1]"},
		{name: "single line", in: "```json[1]```", want: "[1]"},
		{name: "missing closing fence", in: "```json\n[1]", want: "[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantKind     apperr.Kind
		wantNotes    []music.Note
		wantDropped  int
		wantFallback bool
	}{
		{
			name: "fenced array",
			text: "```json\n[{\"note\":\"C4\",\"time\":0,\"duration\":0.5,\"velocity\":0.8}]\n```",
			wantNotes: []music.Note{
				{Pitch: "C4", StartTime: 0, Duration: 0.5, Velocity: 0.8},
			},
		},
		{
			name: "invalid notes filtered",
			text: `[{"note":"C4","time":0,"duration":0.5,"velocity":1.2},
			        {"note":"D4","time":0.5,"duration":0,"velocity":0.5},
			        {"note":"E4","time":1,"duration":0.5,"velocity":0.5}]`,
			wantNotes: []music.Note{
				{Pitch: "E4", StartTime: 1, Duration: 0.5, Velocity: 0.5},
			},
			wantDropped: 2,
		},
		{
			name:         "all invalid uses fallback",
			text:         `[{"note":"H9","time":0,"duration":1,"velocity":0.5}]`,
			wantNotes:    music.FallbackMelody(),
			wantDropped:  1,
			wantFallback: true,
		},
		{
			name:         "empty array uses fallback",
			text:         `[]`,
			wantNotes:    music.FallbackMelody(),
			wantFallback: true,
		},
		{
			name: "non-object and mistyped items dropped",
			text: `[42, "C4", {"note":"C4","time":"0","duration":1,"velocity":0.5},
			        {"note":"G4","time":0,"duration":1,"velocity":0.5}]`,
			wantNotes: []music.Note{
				{Pitch: "G4", StartTime: 0, Duration: 1, Velocity: 0.5},
			},
			wantDropped: 3,
		},
		{
			name: "missing keys dropped instead of zeroed",
			text: `[{"note":"C4","duration":0.5},
			        {"note":"D4","time":0,"duration":0.5,"velocity":null},
			        {"time":0,"duration":0.5,"velocity":0.5},
			        {"note":"E4","time":0.5,"duration":0.5,"velocity":0.7}]`,
			wantNotes: []music.Note{
				{Pitch: "E4", StartTime: 0.5, Duration: 0.5, Velocity: 0.7},
			},
			wantDropped: 3,
		},
		{name: "empty", text: "  \n", wantKind: apperr.EmptyAiResponse},
		{name: "not json", text: "Here is your melody: C D E", wantKind: apperr.MalformedAiJSON},
		{name: "object", text: `{"notes":[]}`, wantKind: apperr.UnexpectedAiShape},
		{name: "number", text: `42`, wantKind: apperr.UnexpectedAiShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCompletion(tt.text)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				assert.True(t, apperr.IsAiFailure(apperr.KindOf(err)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNotes, result.Notes)
			assert.Equal(t, tt.wantDropped, result.Dropped)
			assert.Equal(t, tt.wantFallback, result.Fallback)
		})
	}
}

func TestParseCompletion_MalformedKeepsRaw(t *testing.T) {
	_, err := ParseCompletion("[{oops")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "[{oops", appErr.Raw)
}
