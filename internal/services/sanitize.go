package services

import (
	"regexp"
	"strings"
)

// fencePattern matches a payload that is one fenced block from start to end,
// with an optional language tag after the opening fence.
var fencePattern = regexp.MustCompile("^\\s*```[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?([\\s\\S]*?)\\r?\\n?[ \\t]*```\\s*$")

// Sanitize prepares model output for strict JSON parsing. It unwraps a
// payload that is entirely one fenced code block and drops commas that
// directly precede a closing brace or bracket. Nothing else is repaired.
func Sanitize(raw string) string {
	return stripTrailingCommas(stripFence(raw))
}

func stripFence(raw string) string {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	// Two fenced blocks back to back also match the pattern; leave those alone.
	// A fence inside a JSON string value does not start a line.
	for _, line := range strings.Split(m[1], "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return raw
		}
	}
	return m[1]
}

// stripTrailingCommas removes every comma followed, after optional
// whitespace, by '}' or ']'. Commas inside string literals are kept.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		case ',':
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
