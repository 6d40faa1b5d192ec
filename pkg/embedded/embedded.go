package embedded

import (
	"embed"
)

// Prompts holds the generation prompt templates
//
//go:embed data/prompts/*.tmpl
var Prompts embed.FS

//go:embed data/prompts/system.txt
var SystemPromptTxt []byte
