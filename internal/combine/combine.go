// Package combine projects a canonical record and its match into the shape
// the review and sync surfaces consume.
package combine

import (
	"strings"

	"github.com/jask/donormatch/internal/model"
)

// Combine merges rec and res into an EnrichedRecord. List fields are never
// nil. A nil result means the match attempt failed and projects as unmatched.
func Combine(rec model.CanonicalRecord, res *model.MatchResult) model.EnrichedRecord {
	out := model.EnrichedRecord{
		ID:              rec.ID,
		PaymentInfo:     paymentInfo(rec.Payment),
		SourceDocuments: nonNil(rec.SourceDocuments),
		MergeCount:      rec.MergeCount,
		MatchStatus:     model.StatusUnmatched,
	}

	p := &out.PayerInfo
	p.Aliases = nonNil(rec.Payer.Aliases)
	p.OrganizationName = rec.Payer.OrganizationName
	p.Salutation = rec.Payer.Salutation
	p.Address = rec.Contact.Address
	p.Email = rec.Contact.Email
	p.Phone = rec.Contact.Phone
	p.FullName = rec.DisplayName()
	p.QBEmail = []string{}
	p.QBPhone = []string{}

	if res == nil {
		return out
	}

	out.MatchStatus = res.Status
	out.MatchScore = res.Score
	out.Patch = res.Patch
	out.Status = model.RecordStatus{
		Matched:        res.Status == model.StatusMatched,
		NewCustomer:    res.Status == model.StatusNewCustomer,
		PendingReview:  res.Status == model.StatusPendingReview,
		AddressUpdated: res.UpdatesNeeded.Address,
		EmailUpdated:   res.UpdatesNeeded.EmailAdded,
		PhoneUpdated:   res.UpdatesNeeded.PhoneAdded,
	}

	if res.CustomerRef != nil {
		ref := *res.CustomerRef
		p.CustomerRef = ref
		if org := strings.TrimSpace(ref.CompanyName); org != "" {
			p.QBOrganization = org
			p.FullName = org
		} else if full := strings.TrimSpace(ref.FirstName + " " + ref.LastName); full != "" {
			p.FullName = full
		} else if ref.DisplayName != "" {
			p.FullName = ref.DisplayName
		}
	}
	if res.QBAddress != nil {
		p.QBAddress = *res.QBAddress
	}
	if res.PreviousAddress != nil {
		p.PreviousAddress = *res.PreviousAddress
	}
	p.QBEmail = nonNil(res.QBEmail)
	p.QBPhone = nonNil(res.QBPhone)
	return out
}

func paymentInfo(p model.Payment) model.PaymentInfo {
	return model.PaymentInfo{
		PaymentMethod: string(p.Method),
		CheckNo:       p.CheckNo,
		Amount:        p.Amount.StringFixed(2),
		PaymentDate:   p.PaymentDate,
		CheckDate:     p.CheckDate,
		PostmarkDate:  p.PostmarkDate,
		DepositDate:   p.DepositDate,
		DepositMethod: p.DepositMethod,
		Memo:          p.Memo,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
