package extract

import (
	"encoding/json"
	"strings"
)

// FirstJSONObject returns the first brace-balanced {...} span in text when it is valid JSON.
// Braces inside JSON strings (including escaped quotes) do not count toward balance.
// Nothing is repaired: if the first span does not parse, there is no object.
func FirstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	// Unbalanced means the output was cut off; inner objects are not promoted
	end, ok := matchBrace(text, start)
	if !ok {
		return "", false
	}

	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// matchBrace returns the index of the brace closing the one at start
func matchBrace(text string, start int) (int, bool) {
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
				return i, true
			}
		}
	}
	return 0, false
}
