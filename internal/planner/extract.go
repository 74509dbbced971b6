package planner

import (
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// ExtractFirstJSONObject finds the first balanced top-level {...} object in
// text, tolerating markdown code fences around it; any text after that
// object is ignored. Used by both the prompt-mode fallback (strict: the
// extracted object is decoded with unknown fields rejected) and the legacy
// parser (lenient: unknown fields are tolerated).
func ExtractFirstJSONObject(text string) (string, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		if candidate, ok := findBalancedObject(m[1]); ok {
			return candidate, true
		}
	}
	return findBalancedObject(text)
}

// findBalancedObject scans for the first '{' and returns the substring up to
// its matching '}', respecting string literals so braces inside quoted
// strings don't unbalance the scan.
func findBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
