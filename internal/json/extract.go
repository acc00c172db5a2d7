// Package json decodes JSON produced by language models.
//
// Tool arguments and structured replies do not always arrive as clean JSON:
// models wrap objects in markdown fences, surround them with prose, or
// double-encode them as a JSON string. The helpers here recover the object.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON returns the JSON object contained in s.
//
// Accepted shapes, in order:
//  1. s is valid JSON (a string value holding an object is unwrapped once)
//  2. s is fenced with ```json ... ``` or ``` ... ```
//  3. an object is embedded in text; the span from the first '{' to the
//     last '}' is used
//
// Braces inside string literals of surrounding prose can defeat step 3.
func extractJSON(s string) (string, error) {
	s = stripMarkdownCodeBlocks(s)
	if s == "" {
		return "", fmt.Errorf("failed to extract valid JSON from response: empty input")
	}

	if json.Valid([]byte(s)) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			inner = stripMarkdownCodeBlocks(inner)
			if json.Valid([]byte(inner)) {
				return inner, nil
			}
		}
		return s, nil
	}

	start := strings.Index(s, "{")
	if start != -1 {
		end := strings.LastIndex(s, "}")
		if end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	preview := s
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// stripMarkdownCodeBlocks removes a surrounding ```json / ``` fence.
func stripMarkdownCodeBlocks(s string) string {
	trimmed := strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(trimmed, "```json"):
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	case strings.HasPrefix(trimmed, "```"):
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

// Extract returns the raw JSON found in s.
func Extract(s string) (string, error) {
	return extractJSON(s)
}

// Decode extracts JSON from s and unmarshals it into v.
func Decode(s string, v any) error {
	raw, err := extractJSON(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// DecodeAs is the generic form of Decode.
func DecodeAs[T any](s string) (T, error) {
	var result T
	err := Decode(s, &result)
	return result, err
}
