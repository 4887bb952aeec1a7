package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// ExtractJSON returns the JSON object in text. Models wrap JSON in code
// fences or prose even when asked not to, so the first fenced block wins,
// then the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); strings.HasPrefix(body, "{") {
			return body, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// DecodeJSON extracts the JSON object in text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, err)
	}
	return nil
}
