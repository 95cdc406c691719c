package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseJSON decodes the JSON object carried by raw into v. It first strips
// code fences and decodes strictly; failing that it decodes the first
// balanced {...} span. The error wraps ErrMalformedResponse.
func ParseJSON(raw string, v any) error {
	cleaned := stripFences(raw)
	firstErr := json.Unmarshal([]byte(cleaned), v)
	if firstErr == nil {
		return nil
	}
	span, ok := firstObject(cleaned)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, firstErr)
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// ParseObject is ParseJSON into a generic map.
func ParseObject(raw string) (map[string]any, error) {
	var m map[string]any
	if err := ParseJSON(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, errors.New("null object"))
	}
	return m, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// firstObject returns the first balanced {...} span of s. Braces inside
// JSON strings are ignored.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
