package model

// MatchStatus is the outcome of matching one canonical record.
type MatchStatus string

const (
	StatusMatched       MatchStatus = "matched"
	StatusNewCustomer   MatchStatus = "new_customer"
	StatusPendingReview MatchStatus = "pending_review"
	// StatusUnmatched marks a record whose match attempt failed. It is never
	// treated as a new customer.
	StatusUnmatched MatchStatus = "unmatched"
)

// UpdatesNeeded flags which contact fields differ from the directory.
type UpdatesNeeded struct {
	Address    bool `json:"address"`
	EmailAdded bool `json:"email_added"`
	PhoneAdded bool `json:"phone_added"`
}

// Any reports whether at least one update is pending.
func (u UpdatesNeeded) Any() bool {
	return u.Address || u.EmailAdded || u.PhoneAdded
}

// MatchResult is produced once per match attempt and never mutated.
type MatchResult struct {
	Status          MatchStatus   `json:"status"`
	Score           float64       `json:"score"`
	Customer        *Customer     `json:"customer,omitempty"`
	CustomerRef     *CustomerRef  `json:"customer_ref,omitempty"`
	QBAddress       *Address      `json:"qb_address"`
	PreviousAddress *Address      `json:"previous_address,omitempty"`
	QBEmail         []string      `json:"qb_email"`
	QBPhone         []string      `json:"qb_phone"`
	UpdatesNeeded   UpdatesNeeded `json:"updates_needed"`
	Patch           ContactPatch  `json:"patch"`
}

// NewCustomerResult is the terminal result when no acceptable candidate exists.
func NewCustomerResult(score float64) MatchResult {
	return MatchResult{Status: StatusNewCustomer, Score: score, QBEmail: []string{}, QBPhone: []string{}}
}
