package normalize

import (
	"strings"
	"unicode"
)

// words that keep a fixed spelling when proper-casing all-caps input.
var properCaseExceptions = map[string]string{
	"PO":  "PO",
	"LLC": "LLC",
	"INC": "Inc",
	"JR":  "Jr",
	"SR":  "Sr",
	"II":  "II",
	"III": "III",
	"IV":  "IV",
}

// ProperCase title-cases ALL-CAPS text such as "JOHN SMITH JR" -> "John Smith Jr".
// Anything that is not fully upper-case is returned unchanged, which makes the
// function idempotent.
func ProperCase(s string) string {
	if s == "" || s != strings.ToUpper(s) {
		return s
	}
	parts := strings.Split(s, " ")
	for i, w := range parts {
		parts[i] = properCaseWord(w)
	}
	return strings.Join(parts, " ")
}

func properCaseWord(w string) string {
	if w == "" {
		return w
	}
	core := strings.Trim(w, ".,;:()")
	if repl, ok := properCaseExceptions[core]; ok {
		return strings.Replace(w, core, repl, 1)
	}
	runes := []rune(w)
	out := make([]rune, len(runes))
	upperNext := true
	letters := 0
	for i, r := range runes {
		if !unicode.IsLetter(r) {
			out[i] = r
			// O'BRIEN -> O'Brien, but JOHN'S -> John's
			upperNext = r == '-' || (r == '\'' && letters == 1)
			continue
		}
		if upperNext {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
		upperNext = false
		letters++
	}
	return string(out)
}
