package model

// PayerInfo is the payer half of an enriched record.
type PayerInfo struct {
	Aliases          []string    `json:"aliases"`
	OrganizationName string      `json:"organization_name"`
	Salutation       string      `json:"salutation"`
	Address          Address     `json:"address"`
	Email            string      `json:"email"`
	Phone            string      `json:"phone"`
	CustomerRef      CustomerRef `json:"customer_ref"`
	FullName         string      `json:"full_name"`
	QBOrganization   string      `json:"qb_organization_name"`
	QBAddress        Address     `json:"qb_address"`
	PreviousAddress  Address     `json:"previous_address"`
	QBEmail          []string    `json:"qb_email"`
	QBPhone          []string    `json:"qb_phone"`
}

// PaymentInfo is the payment half of an enriched record.
type PaymentInfo struct {
	PaymentMethod string `json:"payment_method"`
	CheckNo       string `json:"check_no_or_payment_ref"`
	Amount        string `json:"amount"`
	PaymentDate   string `json:"payment_date"`
	CheckDate     string `json:"check_date"`
	PostmarkDate  string `json:"postmark_date"`
	DepositDate   string `json:"deposit_date"`
	DepositMethod string `json:"deposit_method"`
	Memo          string `json:"memo"`
}

// RecordStatus carries the review/sync flags the frontend renders.
type RecordStatus struct {
	Matched        bool `json:"matched"`
	NewCustomer    bool `json:"new_customer"`
	PendingReview  bool `json:"pending_review"`
	AddressUpdated bool `json:"address_updated"`
	EmailUpdated   bool `json:"email_updated"`
	PhoneUpdated   bool `json:"phone_updated"`
	Edited         bool `json:"edited"`
}

// EnrichedRecord is the final projection of a canonical record and its match.
type EnrichedRecord struct {
	ID              string       `json:"id"`
	PayerInfo       PayerInfo    `json:"payer_info"`
	PaymentInfo     PaymentInfo  `json:"payment_info"`
	Status          RecordStatus `json:"status"`
	MatchStatus     MatchStatus  `json:"match_status"`
	MatchScore      float64      `json:"match_score"`
	Patch           ContactPatch `json:"patch"`
	SourceDocuments []string     `json:"source_documents"`
	MergeCount      int          `json:"merge_count"`
}
