package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// cleanFences strips a surrounding markdown code block.
func cleanFences(resp string) string {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ExtractJSONArray returns the first outermost balanced [...] in s,
// ignoring brackets inside JSON strings.
func ExtractJSONArray(s string) (string, bool) {
	return extractBalanced(cleanFences(s), '[', ']')
}

func extractBalanced(s string, openCh, closeCh byte) (string, bool) {
	start := strings.IndexByte(s, openCh)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == openCh {
				depth++
			} else if char == closeCh {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// decodeElements decodes each element of a JSON array on its own so one
// malformed entry does not discard the rest. Undecodable elements are skipped.
func decodeElements[T any](array string) []T {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(array), &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// looseString accepts a JSON string, number, bool or array of those,
// since models do not always respect the requested field types.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = looseString(strings.TrimSpace(s))
	case '[':
		var parts []looseString
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		strs := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				strs = append(strs, string(p))
			}
		}
		*l = looseString(strings.Join(strs, ", "))
	case '{':
		*l = ""
	default:
		*l = looseString(string(b))
	}
	return nil
}

// looseStrings accepts an array of loose strings or a single one.
type looseStrings []string

func (l *looseStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var parts []looseString
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				out = append(out, string(p))
			}
		}
		*l = out
		return nil
	}
	var one looseString
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one == "" {
		*l = []string{}
	} else {
		*l = []string{string(one)}
	}
	return nil
}

// looseNumber accepts a number or a numeric string.
type looseNumber struct {
	Value float64
	Set   bool
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "null" {
		*n = looseNumber{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = looseNumber{Value: v, Set: true}
	return nil
}
