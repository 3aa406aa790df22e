package match

import (
	"strings"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// AddressUpdateRatio is the similarity below which the extracted street line
// replaces the directory's.
const AddressUpdateRatio = 0.5

// AddressSimilarity is the share of positions, over the longer string, at
// which the two lower-cased lines carry the same character.
func AddressSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))
	longer := max(len(ra), len(rb))
	if longer == 0 {
		return 1
	}
	same := 0
	for i := 0; i < min(len(ra), len(rb)); i++ {
		if ra[i] == rb[i] {
			same++
		}
	}
	return float64(same) / float64(longer)
}

// Reconcile compares extracted contact details with a matched customer and
// builds a matched result carrying the values the directory should hold.
// The customer's own record is never modified.
func Reconcile(extracted model.Contact, c model.Customer, score float64) model.MatchResult {
	ref := c.Ref()
	cust := c
	res := model.MatchResult{
		Status:      model.StatusMatched,
		Score:       score,
		Customer:    &cust,
		CustomerRef: &ref,
	}

	current := canonicalAddress(c.BillAddr)
	ex := extracted.Address
	exLine := strings.TrimSpace(ex.Line1)
	curLine := strings.TrimSpace(current.Line1)

	update := false
	switch {
	case exLine == "":
	case curLine == "":
		update = true
	default:
		update = AddressSimilarity(exLine, curLine) < AddressUpdateRatio
	}

	if update {
		next := model.Address{
			Line1: exLine,
			City:  firstNonEmpty(ex.City, current.City),
			State: firstNonEmpty(strings.ToUpper(strings.TrimSpace(ex.State)), current.State),
			ZIP:   firstNonEmpty(normalize.NormalizeZIP(ex.ZIP), current.ZIP),
		}
		prev := current
		res.QBAddress = &next
		res.PreviousAddress = &prev
		res.UpdatesNeeded.Address = true
		res.Patch.BillAddr = &next
	} else {
		res.QBAddress = &current
	}

	res.QBEmail = splitList(c.Email)
	if email := strings.TrimSpace(extracted.Email); email != "" && !containsKey(res.QBEmail, email, normalize.EmailKey) {
		res.QBEmail = append(res.QBEmail, email)
		res.UpdatesNeeded.EmailAdded = true
		joined := strings.Join(res.QBEmail, ", ")
		res.Patch.Email = &joined
	}

	res.QBPhone = splitList(c.Phone)
	if phone := strings.TrimSpace(extracted.Phone); phone != "" && !containsKey(res.QBPhone, phone, phoneIdentity) {
		res.QBPhone = append(res.QBPhone, phone)
		res.UpdatesNeeded.PhoneAdded = true
		joined := strings.Join(res.QBPhone, ", ")
		res.Patch.Phone = &joined
	}
	return res
}

func canonicalAddress(a model.Address) model.Address {
	return model.Address{
		Line1: strings.TrimSpace(a.Line1),
		City:  strings.TrimSpace(a.City),
		State: strings.ToUpper(strings.TrimSpace(a.State)),
		ZIP:   normalize.NormalizeZIP(a.ZIP),
	}
}

// phoneIdentity compares on the last seven digits, falling back to all digits
// for short numbers.
func phoneIdentity(p string) string {
	if k := normalize.PhoneKey(p); k != "" {
		return k
	}
	return normalize.Digits(p)
}

func containsKey(list []string, v string, key func(string) string) bool {
	k := key(v)
	for _, item := range list {
		if key(item) == k {
			return true
		}
	}
	return false
}

// splitList reads a directory field that may hold several comma or
// semicolon separated values. The result is never nil.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
