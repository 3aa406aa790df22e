package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRecordValidate(t *testing.T) {
	t.Parallel()

	amount := decimal.RequireFromString("25")
	cases := []struct {
		name   string
		rec    CanonicalRecord
		reason string
	}{
		{"aliases", CanonicalRecord{Payment: Payment{Amount: amount}, Payer: Payer{Aliases: []string{"Ann Lee"}}}, ""},
		{"organization", CanonicalRecord{Payment: Payment{Amount: amount}, Payer: Payer{OrganizationName: "Smith Foundation"}}, ""},
		{"aliases and organization", CanonicalRecord{Payment: Payment{Amount: amount}, Payer: Payer{Aliases: []string{"John Smith"}, OrganizationName: "Smith Foundation"}}, ""},
		{"blank aliases", CanonicalRecord{Payment: Payment{Amount: amount}, Payer: Payer{Aliases: []string{" "}}}, "no identifiable payer"},
		{"zero amount", CanonicalRecord{Payer: Payer{Aliases: []string{"Ann Lee"}}}, "amount must be positive"},
	}
	for _, tc := range cases {
		err := tc.rec.Validate()
		if tc.reason == "" {
			require.NoError(t, err, tc.name)
			continue
		}
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), tc.name)
		require.Equal(t, tc.reason, ve.Reason, tc.name)
	}
}
