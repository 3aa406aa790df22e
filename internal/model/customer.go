package model

// Customer is a record in the external customer directory.
type Customer struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	GivenName   string  `json:"given_name"`
	FamilyName  string  `json:"family_name"`
	CompanyName string  `json:"company_name"`
	BillAddr    Address `json:"bill_addr"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	SyncToken   string  `json:"sync_token"`
}

// CustomerRef is the subset of a customer copied onto match results.
type CustomerRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	SyncToken   string `json:"sync_token"`
}

// Ref projects a customer to its reference fields.
func (c Customer) Ref() CustomerRef {
	return CustomerRef{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		FirstName:   c.GivenName,
		LastName:    c.FamilyName,
		CompanyName: c.CompanyName,
		SyncToken:   c.SyncToken,
	}
}

// ContactPatch is the diff needed to bring a directory customer up to date.
// Nil fields are left untouched.
type ContactPatch struct {
	BillAddr *Address `json:"bill_addr,omitempty"`
	Email    *string  `json:"email,omitempty"`
	Phone    *string  `json:"phone,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ContactPatch) Empty() bool {
	return p.BillAddr == nil && p.Email == nil && p.Phone == nil
}
