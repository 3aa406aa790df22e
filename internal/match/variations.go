package match

import (
	"sort"
	"strings"

	"github.com/jask/donormatch/internal/normalize"
)

var nameSuffixes = map[string]struct{}{"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}}

type variationSet struct {
	seen map[string]struct{}
	out  []string
}

func (v *variationSet) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if v.seen == nil {
		v.seen = map[string]struct{}{}
	}
	if _, ok := v.seen[s]; ok {
		return
	}
	v.seen[s] = struct{}{}
	v.out = append(v.out, s)
}

// GenerateVariations builds the ordered list of directory search terms for a
// donor. Per alias: original, normalized, "First Last" for "Last, First",
// first+last without middle names, last name alone. For an organization:
// original, normalized, its two most significant words, its most significant
// word, and a camel-case split. Duplicates are dropped case-sensitively.
func GenerateVariations(aliases []string, orgName string) []string {
	var v variationSet
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		v.add(alias)
		norm := normalize.NormalizeAlias(alias)
		v.add(norm)

		ordered := norm
		if last, first, ok := strings.Cut(alias, ","); ok {
			last, first = normalize.NormalizeAlias(last), normalize.NormalizeAlias(first)
			if first != "" && last != "" {
				ordered = first + " " + last
				v.add(ordered)
			}
		}

		tokens := dropSuffixes(strings.Fields(ordered))
		if len(tokens) >= 3 {
			v.add(tokens[0] + " " + tokens[len(tokens)-1])
		}
		if last := normalize.ExtractLastName(strings.Join(tokens, " ")); len([]rune(last)) > 2 {
			v.add(last)
		}
	}

	if org := strings.TrimSpace(orgName); org != "" {
		v.add(org)
		v.add(normalize.NormalizeAlias(org))
		sig := normalize.SignificantWords(org, 3, normalize.OrgStopWords)
		if top := mostSignificant(sig, 2); len(top) == 2 {
			v.add(top[0] + " " + top[1])
		}
		if top := mostSignificant(sig, 1); len(top) == 1 && len([]rune(top[0])) > 4 {
			v.add(top[0])
		}
		if split := normalize.SplitCamel(org); split != org {
			v.add(split)
		}
	}
	return v.out
}

func dropSuffixes(tokens []string) []string {
	for len(tokens) > 1 {
		if _, ok := nameSuffixes[strings.ToLower(tokens[len(tokens)-1])]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// mostSignificant picks the n longest words, returned in their original order.
func mostSignificant(words []string, n int) []string {
	if len(words) < n {
		return nil
	}
	idx := make([]int, len(words))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len([]rune(words[idx[a]])) > len([]rune(words[idx[b]]))
	})
	picked := idx[:n]
	sort.Ints(picked)
	out := make([]string, 0, n)
	for _, i := range picked {
		out = append(out, words[i])
	}
	return out
}
