package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OrgStopWords never count as significant organization words.
var OrgStopWords = map[string]struct{}{
	"the": {}, "and": {}, "inc": {}, "llc": {}, "corp": {}, "corporation": {}, "company": {},
}

var entitySuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "llc": {}, "corp": {}, "corporation": {}, "co": {},
	"company": {}, "ltd": {}, "limited": {}, "lp": {}, "llp": {}, "pllc": {}, "pc": {},
}

var (
	stripAccents  = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	dottedInitial = regexp.MustCompile(`(^|\s)(\pL)\.`)
	camelLower    = regexp.MustCompile(`([\p{Ll}0-9])(\p{Lu})`)
	camelUpper    = regexp.MustCompile(`(\p{Lu})(\p{Lu}\p{Ll})`)
)

// ExtractLastName returns the family-name token of a person's name.
// "Smith, John" -> "smith"; "John Q Smith" -> "Smith"; "Cher" -> "Cher".
func ExtractLastName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		return strings.ToLower(strings.TrimSpace(name[:i]))
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// NameKey folds a name for comparison: lower-case, accents removed, "&" as
// "and", punctuation dropped, whitespace collapsed.
func NameKey(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = strings.ReplaceAll(folded, "&", " and ")
	folded = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '\'', r == '’':
			return -1
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// OrgKey is NameKey with a leading "the" and trailing entity suffixes
// (Inc, LLC, Corp, ...) removed.
func OrgKey(s string) string {
	tokens := strings.Fields(NameKey(s))
	if len(tokens) > 1 && tokens[0] == "the" {
		tokens = tokens[1:]
	}
	for len(tokens) > 1 {
		if _, ok := entitySuffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// NormalizeAlias cleans an alias for searching while keeping its casing:
// initials lose their dots, other punctuation becomes space, whitespace is
// collapsed. "J. Q. Smith, Jr." -> "J Q Smith Jr".
func NormalizeAlias(s string) string {
	s = dottedInitial.ReplaceAllString(strings.TrimSpace(s), "$1$2")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r == '\'', r == '-', r == '&':
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Words splits s into punctuation-free tokens, keeping their casing.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// SignificantWords returns the tokens of s longer than minLen runes that are
// not in stop. Casing is kept; the stop lookup is case-insensitive.
func SignificantWords(s string, minLen int, stop map[string]struct{}) []string {
	var out []string
	for _, w := range Words(s) {
		if len([]rune(w)) <= minLen {
			continue
		}
		if _, skip := stop[strings.ToLower(w)]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}

// SplitCamel inserts spaces at case transitions: "DAFgiving360" -> "DA Fgiving360",
// "BrightFunds" -> "Bright Funds".
func SplitCamel(s string) string {
	s = camelLower.ReplaceAllString(s, "$1 $2")
	s = camelUpper.ReplaceAllString(s, "$1 $2")
	return s
}
