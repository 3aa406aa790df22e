package match

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/donormatch/internal/model"
)

func TestOrgScoreTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want float64
	}{
		{"Smith Foundation", "Smith Foundation", 100},
		{"The Smith Foundation, Inc.", "Smith Foundation", 100},
		{"!!!", "!!!", 98},
		{"Acme Widgets", "Acme Widgets Holdings", 85},
		{"Smith Family Foundation", "Smith Foundation", 80},
		{"Green Valley Church", "Valley Bank", 70},
		{"Oak Hill Club", "Oak Tree Farm", 60},
		{"Acme", "Zenith", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, OrgScore(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestAliasScoreTiers(t *testing.T) {
	t.Parallel()

	john := model.Customer{DisplayName: "John Smith", GivenName: "John", FamilyName: "Smith"}
	jones := model.Customer{DisplayName: "Jones Family Trust", GivenName: "Robert", FamilyName: "Jones"}
	junior := model.Customer{DisplayName: "John Smith Jr"}
	household := model.Customer{DisplayName: "Smith Household", GivenName: "Jane", FamilyName: "Smith"}
	trust := model.Customer{DisplayName: "Anderson Trust"}
	jon := model.Customer{DisplayName: "Jon Smith", GivenName: "Jon", FamilyName: "Smith"}

	cases := []struct {
		alias string
		cand  model.Customer
		want  float64
	}{
		{"John Smith", john, 100},
		{"JOHN  SMITH", john, 100},
		{"Smith, John", john, 95},
		{"John Q Smith", john, 95},
		{"J Smith", john, 90},
		{"Mary and Robert Jones", jones, 85},
		{"Jonathan Smithson", jon, 85},
		{"John Smith", junior, 80},
		{"Bob Smith", household, 75},
		{"Karl Anderson", trust, 60},
		{"Zzyx Qrvth", john, 0},
		{"", john, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, AliasScore(tc.alias, tc.cand), "%q vs %q", tc.alias, tc.cand.DisplayName)
	}
}

func TestNameScoreTakesBestOfOrgAndAliases(t *testing.T) {
	t.Parallel()

	cand := model.Customer{DisplayName: "Smith Foundation", CompanyName: "Smith Foundation"}
	payer := model.Payer{Aliases: []string{"Zzyx Qrvth", "Karl Smith"}, OrganizationName: "The Smith Foundation"}
	require.Equal(t, 100.0, NameScore(payer, cand))

	payer.OrganizationName = ""
	require.Equal(t, 60.0, NameScore(payer, cand))
}

func TestWeightedScorer(t *testing.T) {
	t.Parallel()

	s := WeightedScorer{}
	cand := model.Customer{
		DisplayName: "Smith Household",
		GivenName:   "Jane",
		FamilyName:  "Smith",
		Email:       "bob@example.org",
		BillAddr:    model.Address{City: "Salem", State: "MA", ZIP: "01970"},
	}

	t.Run("name only", func(t *testing.T) {
		rec := &model.CanonicalRecord{Payer: model.Payer{Aliases: []string{"Bob Smith"}}}
		b := s.Score(rec, cand)
		require.InDelta(t, 75.0, b.Total, 1e-9)
		require.False(t, b.HasEmail || b.HasAddress || b.HasPhone)
	})

	t.Run("contact evidence lifts", func(t *testing.T) {
		rec := &model.CanonicalRecord{
			Payer:   model.Payer{Aliases: []string{"Bob Smith"}},
			Contact: model.Contact{Email: "BOB@example.org"},
		}
		b := s.Score(rec, cand)
		require.True(t, b.HasEmail)
		require.InDelta(t, 600.0/7.0, b.Total, 1e-9)
	})

	t.Run("contact mismatch never lowers", func(t *testing.T) {
		rec := &model.CanonicalRecord{
			Payer: model.Payer{Aliases: []string{"Bob Smith"}},
			Contact: model.Contact{
				Email:   "someone@else.org",
				Address: model.Address{City: "Boston", State: "MA", ZIP: "02139"},
			},
		}
		b := s.Score(rec, cand)
		require.True(t, b.HasAddress)
		require.InDelta(t, 0.2, b.Address, 1e-9)
		require.Equal(t, 75.0, b.Total)
	})

	t.Run("exact name dominates", func(t *testing.T) {
		exact := &model.CanonicalRecord{Payer: model.Payer{Aliases: []string{"Jane Smith"}}}
		other := model.Customer{DisplayName: "Jane Smith"}
		partial := &model.CanonicalRecord{
			Payer:   model.Payer{Aliases: []string{"Jane Smithers"}},
			Contact: model.Contact{Email: "j@x.org", Phone: "555-123-4567"},
		}
		withContact := other
		withContact.Email = "j@x.org"
		withContact.Phone = "(555) 123-4567"
		require.Equal(t, 100.0, s.Score(exact, other).Total)
		require.LessOrEqual(t, s.Score(partial, withContact).Total, s.Score(exact, other).Total)
	})
}
