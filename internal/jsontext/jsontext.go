// Package jsontext recovers JSON values from free-form model output.
package jsontext

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Extract returns the JSON object or array carried by text. Bare JSON,
// markdown code fences and JSON surrounded by prose are accepted.
func Extract(text string) (json.RawMessage, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	if raw, ok := valid(s); ok {
		return raw, true
	}
	if inner, ok := fenced(s); ok {
		if raw, ok := valid(inner); ok {
			return raw, true
		}
	}
	// outermost object, then outermost array
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			if raw, ok := valid(s[start : end+1]); ok {
				return raw, true
			}
		}
	}
	return nil, false
}

func valid(s string) (json.RawMessage, bool) {
	b := []byte(strings.TrimSpace(s))
	if len(b) == 0 || (b[0] != '{' && b[0] != '[') {
		return nil, false
	}
	if !json.Valid(b) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func fenced(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
