package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
)

const codeFence = "```"

// ParseCompletion turns raw completion text into a sanitized note list.
// Items that are not note objects are counted as dropped along with notes
// that fail validation.
func ParseCompletion(text string) (music.SanitizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return music.SanitizeResult{}, apperr.New(apperr.EmptyAiResponse, "AI returned an empty response")
	}

	body := stripCodeFence(text)

	var parsed interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return music.SanitizeResult{}, apperr.Wrap(apperr.MalformedAiJSON, "AI response is not valid JSON", err).WithRaw(text)
	}

	items, ok := parsed.([]interface{})
	if !ok {
		return music.SanitizeResult{}, apperr.Newf(apperr.UnexpectedAiShape, "expected a JSON array of notes, got %s", jsonKind(parsed)).WithRaw(text)
	}

	notes := make([]music.Note, 0, len(items))
	undecodable := 0
	for i, item := range items {
		obj, isObject := item.(map[string]interface{})
		if !isObject {
			undecodable++
			logger.Debug("Dropping non-object note item", logger.Fields{"index": i, "type": jsonKind(item)})
			continue
		}
		n, err := noteFromObject(obj)
		if err != nil {
			undecodable++
			logger.Debug("Dropping undecodable note item", logger.Fields{"index": i, "error": err.Error()})
			continue
		}
		notes = append(notes, n)
	}

	result := music.Sanitize(notes)
	result.Dropped += undecodable
	return result, nil
}

// noteFromObject requires every note key to be present with its JSON type.
// Missing keys are not defaulted to zero.
func noteFromObject(obj map[string]interface{}) (music.Note, error) {
	pitch, ok := obj["note"].(string)
	if !ok {
		return music.Note{}, fmt.Errorf("note: expected string, got %s", jsonKind(obj["note"]))
	}
	n := music.Note{Pitch: pitch}
	for _, field := range []struct {
		key string
		dst *float64
	}{
		{"time", &n.StartTime},
		{"duration", &n.Duration},
		{"velocity", &n.Velocity},
	} {
		v, ok := obj[field.key].(float64)
		if !ok {
			return music.Note{}, fmt.Errorf("%s: expected number, got %s", field.key, jsonKind(obj[field.key]))
		}
		*field.dst = v
	}
	return n, nil
}

// stripCodeFence removes a surrounding Markdown fence such as ```json ... ```.
// Text without a fence is returned trimmed.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, codeFence) {
		return s
	}
	s = strings.TrimPrefix(s, codeFence)
	// language tag on the opening line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, codeFence)
	return strings.TrimSpace(s)
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}
