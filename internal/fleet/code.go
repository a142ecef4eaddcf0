package fleet

import (
	"strings"
	"unicode"
)

// CodeAlphabet is the set of characters used in activation codes.
// 0/O and 1/I are left out because operators read codes off a screen and
// type them on a remote.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Code length bounds.
const (
	MinCodeLength     = 6
	MaxCodeLength     = 8
	DefaultCodeLength = 6
)

// NormalizeCode canonicalizes an operator-entered code: whitespace and
// dashes are dropped and letters are upper-cased.
func NormalizeCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ValidCode reports whether a normalized code could have been issued.
func ValidCode(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}
