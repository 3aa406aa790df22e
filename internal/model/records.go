package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the extraction-side payment kind.
type PaymentMethod string

const (
	MethodHandwrittenCheck PaymentMethod = "handwritten_check"
	MethodPrintedCheck     PaymentMethod = "printed_check"
	MethodOnlinePayment    PaymentMethod = "online_payment"
)

// Valid reports whether m is one of the known methods. Empty is allowed.
func (m PaymentMethod) Valid() bool {
	switch m {
	case "", MethodHandwrittenCheck, MethodPrintedCheck, MethodOnlinePayment:
		return true
	}
	return false
}

// Payment holds the payment group of an extracted record.
// Dates are YYYY-MM-DD; empty means not present.
type Payment struct {
	Method        PaymentMethod   `json:"payment_method"`
	CheckNo       string          `json:"check_no_or_payment_ref"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date"`
	CheckDate     string          `json:"check_date"`
	PostmarkDate  string          `json:"postmark_date"`
	DepositDate   string          `json:"deposit_date"`
	DepositMethod string          `json:"deposit_method"`
	Memo          string          `json:"memo"`
}

// Payer identifies who paid: aliases for individuals/couples or an organization.
type Payer struct {
	Aliases          []string `json:"aliases"`
	OrganizationName string   `json:"organization_name"`
	Salutation       string   `json:"salutation"`
}

// Address is a postal address in the extraction shape.
type Address struct {
	Line1 string `json:"line_1"`
	City  string `json:"city"`
	State string `json:"state"`
	ZIP   string `json:"zip"`
}

// IsZero reports whether every field is blank.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" && strings.TrimSpace(a.ZIP) == ""
}

// Contact holds the contact group of an extracted record.
type Contact struct {
	Address Address `json:"address"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
}

// RawPaymentRecord is one record as produced by the extraction collaborator.
type RawPaymentRecord struct {
	SourceDocument string  `json:"source_document"`
	Payment        Payment `json:"payment"`
	Payer          Payer   `json:"payer"`
	Contact        Contact `json:"contact"`
}

// HasPayer reports whether the record names a payer (aliases or organization).
func (r *RawPaymentRecord) HasPayer() bool {
	return payerPresent(r.Payer)
}

// Validate checks the invariants needed before matching.
func (r *RawPaymentRecord) Validate() error {
	return validateFields(r.SourceDocument, r.Payment, r.Payer)
}

// CanonicalRecord is the merged form of all raw records sharing a dedup key.
type CanonicalRecord struct {
	ID              string   `json:"id"`
	Payment         Payment  `json:"payment"`
	Payer           Payer    `json:"payer"`
	Contact         Contact  `json:"contact"`
	SourceDocuments []string `json:"source_documents"`
	MergeCount      int      `json:"merge_count"`
}

// HasPayer reports whether the canonical record names a payer.
func (c *CanonicalRecord) HasPayer() bool {
	return payerPresent(c.Payer)
}

// Validate checks the invariants needed before matching.
func (c *CanonicalRecord) Validate() error {
	src := ""
	if len(c.SourceDocuments) > 0 {
		src = c.SourceDocuments[0]
	}
	return validateFields(src, c.Payment, c.Payer)
}

// DisplayName is the best human label for the payer.
func (c *CanonicalRecord) DisplayName() string {
	if org := strings.TrimSpace(c.Payer.OrganizationName); org != "" {
		return org
	}
	for _, a := range c.Payer.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
	}
	return ""
}

// MergeLogEntry is the audit trail for one merged dedup group.
type MergeLogEntry struct {
	MergeKey        string          `json:"merge_key"`
	MergedCount     int             `json:"merged_count"`
	CheckNo         string          `json:"check_no"`
	Amount          decimal.Decimal `json:"amount"`
	SourceDocuments []string        `json:"source_documents"`
	Timestamp       string          `json:"timestamp"`
}

func payerPresent(p Payer) bool {
	if strings.TrimSpace(p.OrganizationName) != "" {
		return true
	}
	for _, a := range p.Aliases {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}

// validateFields requires a positive amount and some payer. A payer carrying
// both aliases and an organization is accepted; display picks the organization.
func validateFields(source string, p Payment, payer Payer) error {
	if !p.Amount.IsPositive() {
		return &ValidationError{SourceDocument: source, CheckNo: p.CheckNo, Reason: "amount must be positive"}
	}
	if !payerPresent(payer) {
		return &ValidationError{SourceDocument: source, CheckNo: p.CheckNo, Reason: "no identifiable payer"}
	}
	return nil
}
