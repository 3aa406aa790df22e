package normalize

import (
	"strings"
	"unicode"
)

// DefaultCheckNumberKeep is the length at or below which check numbers keep
// their leading zeros.
const DefaultCheckNumberKeep = 4

// CleanCheckNumber strips leading zeros from check numbers longer than keep
// digits. Short numbers are returned as-is so institution series like "0026"
// survive; an all-zero number collapses to "0". keep <= 0 uses the default.
func CleanCheckNumber(s string, keep int) string {
	s = strings.TrimSpace(s)
	if keep <= 0 {
		keep = DefaultCheckNumberKeep
	}
	if len(s) <= keep {
		return s
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// NormalizeZIP reduces a postal code to five digits, keeping leading zeros.
// "1234" -> "01234", "12345-6789" -> "12345". Input without digits yields "".
func NormalizeZIP(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	d := Digits(s)
	switch {
	case d == "":
		return ""
	case len(d) < 5:
		return strings.Repeat("0", 5-len(d)) + d
	case len(d) > 5:
		return d[:5]
	}
	return d
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKey is the last seven digits of a phone number, or "" when the number
// is too short to compare meaningfully.
func PhoneKey(s string) string {
	d := Digits(s)
	if len(d) < 7 {
		return ""
	}
	return d[len(d)-7:]
}

// EmailKey lower-cases and trims an email address.
func EmailKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
