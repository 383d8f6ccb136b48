package datagen

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON value found in response")

// Extract parses text as JSON, tolerating code fences and surrounding prose.
// It tries the whole text, then the contents of the first fenced block, then
// the first balanced {...} or [...] substring.
func Extract(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if v, ok := decode(trimmed); ok {
		return v, nil
	}
	if inner, ok := stripFence(trimmed); ok {
		if v, ok := decode(inner); ok {
			return v, nil
		}
		trimmed = inner
	}
	for start := 0; start < len(trimmed); {
		candidate, end, ok := balanced(trimmed, start)
		if !ok {
			break
		}
		if v, ok := decode(candidate); ok {
			return v, nil
		}
		start = end
	}
	return nil, errNoJSON
}

func decode(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// stripFence returns the body of the first ``` fenced block. A language tag
// on the opening fence is dropped; a missing closing fence runs to the end.
func stripFence(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(tag, "{[") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// balanced finds the first '{' or '[' at or after from and returns the
// substring up to its matching close, skipping brackets inside strings.
// end is the index just past the opening bracket, for resuming the scan.
func balanced(s string, from int) (candidate string, end int, ok bool) {
	start := strings.IndexAny(s[from:], "{[")
	if start < 0 {
		return "", len(s), false
	}
	start += from

	var stack []byte
	inString, escaped := false, false
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", start + 1, true
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], start + 1, true
			}
		}
	}
	return "", start + 1, true
}
