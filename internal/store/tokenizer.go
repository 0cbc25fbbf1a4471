package store

import (
	"strings"
	"unicode"
)

// CoordinateToken is one token of a coordinate string with its byte offsets.
type CoordinateToken struct {
	Term  string
	Start int
	End   int
}

// isCoordinateSeparator reports whether r separates coordinate parts.
// Group ids, versions and file names use '.', '-', '_', ':' and '/'.
func isCoordinateSeparator(r rune) bool {
	switch r {
	case '.', '-', '_', ':', '/', '+', '=', ',', ';', '(', ')', '[', ']':
		return true
	}
	return unicode.IsSpace(r)
}

// SplitCoordinate splits text on coordinate separators, keeping offsets.
// Tokens keep their case.
func SplitCoordinate(text string) []CoordinateToken {
	var tokens []CoordinateToken
	start := -1
	for i, r := range text {
		if isCoordinateSeparator(r) {
			if start >= 0 {
				tokens = append(tokens, CoordinateToken{Term: text[start:i], Start: start, End: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, CoordinateToken{Term: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "commonsLang" -> ["commons", "Lang"]
//   - "HikariCP" -> ["Hikari", "CP"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// acronym boundaries split before the last capital
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
