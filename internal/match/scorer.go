package match

import (
	"strings"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// scoreStopWords extends the organization stop words with common connectives.
var scoreStopWords = func() map[string]struct{} {
	m := map[string]struct{}{}
	for w := range normalize.OrgStopWords {
		m[w] = struct{}{}
	}
	for _, w := range []string{"for", "of", "a", "an", "in", "on", "at", "to"} {
		m[w] = struct{}{}
	}
	return m
}()

// Scorer rates how well a directory candidate fits a canonical record.
type Scorer interface {
	Score(rec *model.CanonicalRecord, cand model.Customer) Breakdown
}

// Breakdown is a score on 0-100 with its per-dimension inputs. Contact
// sub-scores are 0-1 and only count when the matching Has flag is set.
type Breakdown struct {
	Name       float64
	Email      float64
	Address    float64
	Phone      float64
	HasEmail   bool
	HasAddress bool
	HasPhone   bool
	Total      float64
}

// Weights sets the relative contribution of each dimension.
type Weights struct {
	Name    float64
	Email   float64
	Address float64
	Phone   float64
}

// DefaultWeights: name 40%, email 30%, address 20%, phone 10%.
var DefaultWeights = Weights{Name: 0.4, Email: 0.3, Address: 0.2, Phone: 0.1}

// WeightedScorer blends the tiered name score with contact evidence.
// Dimensions missing on either side drop out and the remaining weights are
// renormalized. The total never falls below the name score.
type WeightedScorer struct {
	Weights Weights
}

func (s WeightedScorer) Score(rec *model.CanonicalRecord, cand model.Customer) Breakdown {
	w := s.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}

	b := Breakdown{Name: NameScore(rec.Payer, cand)}
	sum := w.Name * b.Name / 100
	weight := w.Name

	if email, ok := emailScore(rec.Contact.Email, cand.Email); ok {
		b.Email, b.HasEmail = email, true
		sum += w.Email * email
		weight += w.Email
	}
	if addr, ok := addressScore(rec.Contact.Address, cand.BillAddr); ok {
		b.Address, b.HasAddress = addr, true
		sum += w.Address * addr
		weight += w.Address
	}
	if phone, ok := phoneScore(rec.Contact.Phone, cand.Phone); ok {
		b.Phone, b.HasPhone = phone, true
		sum += w.Phone * phone
		weight += w.Phone
	}

	blended := 0.0
	if weight > 0 {
		blended = 100 * sum / weight
	}
	b.Total = clamp(max(b.Name, blended))
	return b
}

// NameScore is the best tiered score across the payer's organization name and
// every alias. Scores are never summed.
func NameScore(p model.Payer, cand model.Customer) float64 {
	best := 0.0
	if org := strings.TrimSpace(p.OrganizationName); org != "" {
		best = max(best, OrgScore(org, candidateOrgName(cand)))
		if cand.DisplayName != "" && cand.DisplayName != cand.CompanyName {
			best = max(best, OrgScore(org, cand.DisplayName))
		}
	}
	for _, alias := range p.Aliases {
		best = max(best, AliasScore(alias, cand))
	}
	return best
}

func candidateOrgName(c model.Customer) string {
	if strings.TrimSpace(c.CompanyName) != "" {
		return c.CompanyName
	}
	return c.DisplayName
}

// OrgScore compares two organization names:
// 100 normalized equality, 98 raw equality, 85 containment,
// 80 two or more shared significant words, 70 one long shared word,
// 60 one short shared word, 0 otherwise.
func OrgScore(a, b string) float64 {
	ka, kb := normalize.OrgKey(a), normalize.OrgKey(b)
	switch {
	case ka != "" && ka == kb:
		return 100
	case strings.TrimSpace(a) != "" && strings.TrimSpace(a) == strings.TrimSpace(b):
		return 98
	case ka != "" && kb != "" && (strings.Contains(ka, kb) || strings.Contains(kb, ka)):
		return 85
	}

	shared := sharedSignificant(ka, kb)
	switch {
	case len(shared) >= 2:
		return 80
	case len(shared) == 1 && len([]rune(shared[0])) >= 5:
		return 70
	case len(shared) == 1:
		return 60
	}
	return 0
}

func sharedSignificant(a, b string) []string {
	inB := map[string]struct{}{}
	for _, w := range normalize.SignificantWords(b, 2, scoreStopWords) {
		inB[w] = struct{}{}
	}
	var shared []string
	seen := map[string]struct{}{}
	for _, w := range normalize.SignificantWords(a, 2, scoreStopWords) {
		if _, ok := inB[w]; !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		shared = append(shared, w)
	}
	return shared
}

// AliasScore compares an individual's alias with a candidate:
// 100 normalized equality with the display name, 98 raw equality,
// 95 first and last token equal given and family name, 90 last name equal
// and given name starting with the first token, 85 given and family both
// found as substrings of the alias, 80 alias contained in display name, 75 last name only,
// 60 any longer token contained in the display name, 0 otherwise.
func AliasScore(alias string, cand model.Customer) float64 {
	na := normalize.NameKey(alias)
	nd := normalize.NameKey(cand.DisplayName)
	if na == "" {
		return 0
	}
	switch {
	case na == nd:
		return 100
	case strings.TrimSpace(alias) == strings.TrimSpace(cand.DisplayName):
		return 98
	}

	first, last, tokens := nameParts(alias)
	given := normalize.NameKey(cand.GivenName)
	family := normalize.NameKey(cand.FamilyName)

	switch {
	case given != "" && family != "" && first == given && last == family:
		return 95
	case family != "" && given != "" && first != "" && last == family && strings.HasPrefix(given, first):
		return 90
	case given != "" && family != "" && strings.Contains(na, given) && strings.Contains(na, family):
		return 85
	case nd != "" && strings.Contains(nd, na):
		return 80
	case family != "" && last == family:
		return 75
	}
	if nd != "" {
		for _, tok := range tokens {
			if len([]rune(tok)) > 2 && strings.Contains(nd, tok) {
				return 60
			}
		}
	}
	return 0
}

// nameParts returns the folded first and last tokens of a personal name,
// reading "Last, First" forms and ignoring generational suffixes.
func nameParts(alias string) (first, last string, tokens []string) {
	if l, f, ok := strings.Cut(alias, ","); ok {
		lt := strings.Fields(normalize.NameKey(l))
		ft := dropSuffixes(strings.Fields(normalize.NameKey(f)))
		if len(lt) > 0 && len(ft) > 0 && !isSuffix(ft[0]) {
			tokens = append(append([]string{}, ft...), lt...)
			return ft[0], lt[len(lt)-1], tokens
		}
	}
	tokens = dropSuffixes(strings.Fields(normalize.NameKey(alias)))
	if len(tokens) == 0 {
		return "", "", nil
	}
	return tokens[0], tokens[len(tokens)-1], tokens
}

func isSuffix(tok string) bool {
	_, ok := nameSuffixes[strings.ToLower(tok)]
	return ok
}

func emailScore(a, b string) (float64, bool) {
	ka := normalize.EmailKey(a)
	if ka == "" {
		return 0, false
	}
	list := splitList(b)
	if len(list) == 0 {
		return 0, false
	}
	for _, e := range list {
		if normalize.EmailKey(e) == ka {
			return 1, true
		}
	}
	return 0, true
}

func phoneScore(a, b string) (float64, bool) {
	ka := normalize.PhoneKey(a)
	if ka == "" {
		return 0, false
	}
	present := false
	for _, p := range splitList(b) {
		kb := normalize.PhoneKey(p)
		if kb == "" {
			continue
		}
		present = true
		if kb == ka {
			return 1, true
		}
	}
	return 0, present
}

// addressScore weighs ZIP 50%, city 30%, state 20% over the components
// present on both sides.
func addressScore(a, b model.Address) (float64, bool) {
	var sum, weight float64
	if za, zb := normalize.NormalizeZIP(a.ZIP), normalize.NormalizeZIP(b.ZIP); za != "" && zb != "" {
		weight += 0.5
		if za == zb {
			sum += 0.5
		}
	}
	if ca, cb := normalize.NameKey(a.City), normalize.NameKey(b.City); ca != "" && cb != "" {
		weight += 0.3
		if ca == cb {
			sum += 0.3
		}
	}
	if sa, sb := strings.ToUpper(strings.TrimSpace(a.State)), strings.ToUpper(strings.TrimSpace(b.State)); sa != "" && sb != "" {
		weight += 0.2
		if sa == sb {
			sum += 0.2
		}
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

func clamp(v float64) float64 {
	return min(max(v, 0), 100)
}
