package dedup

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// Deduplicator collapses raw extractions of the same physical payment.
type Deduplicator struct {
	// CheckNumberKeep is passed to normalize.CleanCheckNumber.
	CheckNumberKeep int
	Logger          *zap.SugaredLogger

	nowFn func() time.Time
}

// New builds a Deduplicator. A nil logger discards output.
func New(checkNumberKeep int, logger *zap.SugaredLogger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Deduplicator{CheckNumberKeep: checkNumberKeep, Logger: logger, nowFn: time.Now}
}

// WithClock overrides the merge log timestamp source (tests).
func (d *Deduplicator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		d.nowFn = nowFn
	}
}

type group struct {
	key     string
	checkNo string
	amount  decimal.Decimal
	members []*model.RawPaymentRecord
}

// Deduplicate groups records by (cleaned check number, amount) and merges
// each group into one canonical record. Records without a check number or a
// positive amount are never merged. A nil record fails the whole call.
func (d *Deduplicator) Deduplicate(raw []*model.RawPaymentRecord) ([]model.CanonicalRecord, []model.MergeLogEntry, error) {
	for i, r := range raw {
		if r == nil {
			return nil, nil, &model.DeduplicationError{Err: eris.Errorf("record %d is nil", i)}
		}
	}
	if d.nowFn == nil {
		d.nowFn = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}

	// slots keeps input order: unkeyed records and the first member of each group.
	var slots []*group
	byKey := map[string]*group{}
	for _, r := range raw {
		checkNo := normalize.CleanCheckNumber(r.Payment.CheckNo, d.CheckNumberKeep)
		if checkNo == "" || !r.Payment.Amount.IsPositive() {
			slots = append(slots, &group{members: []*model.RawPaymentRecord{r}})
			continue
		}
		key := checkNo + "|" + r.Payment.Amount.String()
		if g, ok := byKey[key]; ok {
			g.members = append(g.members, r)
			continue
		}
		g := &group{key: key, checkNo: checkNo, amount: r.Payment.Amount, members: []*model.RawPaymentRecord{r}}
		byKey[key] = g
		slots = append(slots, g)
	}

	out := make([]model.CanonicalRecord, 0, len(slots))
	var log []model.MergeLogEntry
	for _, g := range slots {
		rec := merge(g)
		out = append(out, rec)
		if len(g.members) < 2 {
			continue
		}
		entry := model.MergeLogEntry{
			MergeKey:        g.key,
			MergedCount:     len(g.members),
			CheckNo:         g.checkNo,
			Amount:          g.amount,
			SourceDocuments: rec.SourceDocuments,
			Timestamp:       d.nowFn().UTC().Format(time.RFC3339),
		}
		log = append(log, entry)
		d.Logger.Infow("merged duplicate payment records",
			"merge_key", g.key, "merged_count", entry.MergedCount, "sources", entry.SourceDocuments)
	}
	return out, log, nil
}

func merge(g *group) model.CanonicalRecord {
	ms := g.members
	first := ms[0]

	rec := model.CanonicalRecord{MergeCount: len(ms)}
	if g.key != "" {
		rec.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("payment:"+g.key)).String()
	} else {
		rec.ID = uuid.NewString()
	}

	p := &rec.Payment
	p.Method = model.PaymentMethod(mostFrequent(ms, func(r *model.RawPaymentRecord) string { return string(r.Payment.Method) }))
	p.CheckNo = g.checkNo
	p.Amount = first.Payment.Amount
	if g.key == "" {
		p.CheckNo = strings.TrimSpace(first.Payment.CheckNo)
	}
	p.PaymentDate = earliest(ms, func(r *model.RawPaymentRecord) string { return r.Payment.PaymentDate })
	p.CheckDate = earliest(ms, func(r *model.RawPaymentRecord) string { return r.Payment.CheckDate })
	p.PostmarkDate = earliest(ms, func(r *model.RawPaymentRecord) string { return r.Payment.PostmarkDate })
	p.DepositDate = earliest(ms, func(r *model.RawPaymentRecord) string { return r.Payment.DepositDate })
	p.DepositMethod = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Payment.DepositMethod })
	p.Memo = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Payment.Memo })

	rec.Payer.Aliases = unionAliases(ms)
	rec.Payer.OrganizationName = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Payer.OrganizationName })
	rec.Payer.Salutation = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Payer.Salutation })

	a := &rec.Contact.Address
	a.Line1 = longest(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Address.Line1 })
	a.City = longest(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Address.City })
	a.State = longest(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Address.State })
	a.ZIP = longest(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Address.ZIP })
	rec.Contact.Email = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Email })
	rec.Contact.Phone = mostFrequent(ms, func(r *model.RawPaymentRecord) string { return r.Contact.Phone })

	rec.SourceDocuments = []string{}
	seen := map[string]struct{}{}
	for _, r := range ms {
		src := strings.TrimSpace(r.SourceDocument)
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		rec.SourceDocuments = append(rec.SourceDocuments, src)
	}
	return rec
}

// mostFrequent picks the most common non-empty value; ties go to the first seen.
func mostFrequent(ms []*model.RawPaymentRecord, get func(*model.RawPaymentRecord) string) string {
	counts := map[string]int{}
	var order []string
	for _, r := range ms {
		v := strings.TrimSpace(get(r))
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	for _, v := range order {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// longest treats the longer value as the more complete one; ties go to the first seen.
func longest(ms []*model.RawPaymentRecord, get func(*model.RawPaymentRecord) string) string {
	best := ""
	for _, r := range ms {
		if v := strings.TrimSpace(get(r)); len(v) > len(best) {
			best = v
		}
	}
	return best
}

// earliest returns the earliest YYYY-MM-DD value. Unparseable values only win
// when nothing parses.
func earliest(ms []*model.RawPaymentRecord, get func(*model.RawPaymentRecord) string) string {
	var (
		best     string
		bestTime time.Time
		fallback string
	)
	for _, r := range ms {
		v := strings.TrimSpace(get(r))
		if v == "" {
			continue
		}
		if fallback == "" {
			fallback = v
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			continue
		}
		if best == "" || t.Before(bestTime) {
			best, bestTime = v, t
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

// unionAliases collects distinct aliases in first-seen order. Spellings that
// differ only in case count once; the group keeps a mixed-case spelling,
// proper-casing an all-caps one when no member was written that way.
func unionAliases(ms []*model.RawPaymentRecord) []string {
	out := []string{}
	seen := map[string]int{}
	for _, r := range ms {
		for _, a := range r.Payer.Aliases {
			a = strings.Join(strings.Fields(a), " ")
			if a == "" {
				continue
			}
			k := strings.ToLower(a)
			i, ok := seen[k]
			if !ok {
				seen[k] = len(out)
				out = append(out, a)
				continue
			}
			if mixedCase(out[i]) {
				continue
			}
			for _, c := range []string{a, normalize.ProperCase(out[i]), normalize.ProperCase(a)} {
				if mixedCase(c) {
					out[i] = c
					break
				}
			}
		}
	}
	return out
}

func mixedCase(s string) bool {
	return s != strings.ToUpper(s) && s != strings.ToLower(s)
}
