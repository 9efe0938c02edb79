package adl

import (
	"strings"
	"unicode"
)

// makeIdentUnderscores turns arbitrary text into a lower-case identifier,
// e.g. "RV32 I-Core" becomes "rv32_i_core".
func makeIdentUnderscores(inp string) string {
	var b strings.Builder
	for i, r := range inp {
		switch {
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// makeIdentTitle turns arbitrary text into a title-cased identifier with
// separators removed, e.g. "twenty-one" becomes "TwentyOne".
func makeIdentTitle(inp string) string {
	var b strings.Builder
	nextUpper := true
	for i, r := range inp {
		switch {
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			nextUpper = true
		case unicode.IsLetter(r):
			if nextUpper {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
			nextUpper = false
		default:
			nextUpper = true
		}
	}
	return b.String()
}

func partition(s string, sep string) (l, r string) {
	idx := strings.Index(s, sep)
	if idx == -1 {
		return s, ""
	}
	return s[:idx], s[idx+len(sep):]
}
