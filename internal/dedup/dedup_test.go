package dedup

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

func rawRecord(src, checkNo, amount string) *model.RawPaymentRecord {
	return &model.RawPaymentRecord{
		SourceDocument: src,
		Payment:        model.Payment{CheckNo: checkNo, Amount: decimal.RequireFromString(amount)},
	}
}

func newTestDeduplicator() *Deduplicator {
	d := New(normalize.DefaultCheckNumberKeep, nil)
	d.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return d
}

func TestDeduplicate_SimpleMerge(t *testing.T) {
	t.Parallel()

	a := rawRecord("scan-1.jpg", "001234", "100.00")
	a.Payer.Aliases = []string{"John Smith"}
	b := rawRecord("scan-2.jpg", "1234", "100")
	b.Contact.Address.City = "New York"

	out, log, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b})
	require.NoError(t, err)
	require.Len(t, out, 1)

	rec := out[0]
	require.Equal(t, "1234", rec.Payment.CheckNo)
	require.Equal(t, []string{"John Smith"}, rec.Payer.Aliases)
	require.Equal(t, "New York", rec.Contact.Address.City)
	require.Equal(t, 2, rec.MergeCount)
	require.Equal(t, []string{"scan-1.jpg", "scan-2.jpg"}, rec.SourceDocuments)

	require.Len(t, log, 1)
	require.Equal(t, "1234|100", log[0].MergeKey)
	require.Equal(t, 2, log[0].MergedCount)
	require.Equal(t, "2026-03-01T12:00:00Z", log[0].Timestamp)
}

func TestDeduplicate_AmountMismatchNeverMerges(t *testing.T) {
	t.Parallel()

	a := rawRecord("a", "5001", "100.00")
	b := rawRecord("b", "5001", "100.01")
	out, log, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Empty(t, log)
}

func TestDeduplicate_UnkeyedRecordsStayApart(t *testing.T) {
	t.Parallel()

	a := rawRecord("a", "", "25.00")
	a.Payer.Aliases = []string{"Jane Doe"}
	b := rawRecord("b", "", "25.00")
	b.Payer.Aliases = []string{"Jane Doe"}
	c := rawRecord("c", "777", "0")

	out, log, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b, c})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Empty(t, log)
	for _, rec := range out {
		require.Equal(t, 1, rec.MergeCount)
	}
	require.NotEqual(t, out[0].ID, out[1].ID)
}

func TestDeduplicate_FieldMergePolicy(t *testing.T) {
	t.Parallel()

	a := rawRecord("a", "0042", "50")
	a.Payment.CheckDate = "2026-01-10"
	a.Payment.PostmarkDate = "2026-01-12"
	a.Payment.Memo = "annual gift"
	a.Payer.Aliases = []string{"Robert Jones", "Bob Jones"}
	a.Contact.Address = model.Address{Line1: "12 Elm St", City: "Salem", State: "MA", ZIP: "1970"}
	a.Contact.Email = "bob@example.org"

	b := rawRecord("b", "0042", "50.00")
	b.Payment.CheckDate = "2026-01-08"
	b.Payment.Memo = "building fund"
	b.Payer.Aliases = []string{"bob jones", "R. Jones"}
	b.Contact.Address = model.Address{Line1: "12 Elm Street Apt 3", City: "Salem", ZIP: "01970"}
	b.Contact.Email = "rjones@example.org"

	c := rawRecord("c", "42", "50")
	c.Payment.Memo = "building fund"
	c.Contact.Email = "rjones@example.org"

	out, _, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b})
	require.NoError(t, err)
	require.Len(t, out, 1)
	rec := out[0]
	require.Equal(t, "0042", rec.Payment.CheckNo)
	require.Equal(t, "2026-01-08", rec.Payment.CheckDate)
	require.Equal(t, "2026-01-12", rec.Payment.PostmarkDate)
	require.Equal(t, []string{"Robert Jones", "Bob Jones", "R. Jones"}, rec.Payer.Aliases)
	require.Equal(t, "12 Elm Street Apt 3", rec.Contact.Address.Line1)
	require.Equal(t, "MA", rec.Contact.Address.State)
	require.Equal(t, "01970", rec.Contact.Address.ZIP)
	// tie between two memos: first seen wins
	require.Equal(t, "annual gift", rec.Payment.Memo)
	require.Equal(t, "bob@example.org", rec.Contact.Email)

	// "42" is kept as-is (short series) so it does not join the "0042" group.
	out, _, err = newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b, c})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 2, out[0].MergeCount)
}

func TestDeduplicate_AliasCaseVariants(t *testing.T) {
	t.Parallel()

	a := rawRecord("a", "5150", "20")
	a.Payer.Aliases = []string{"JOHN SMITH", "MARY SMITH", "ann lee"}
	b := rawRecord("b", "5150", "20")
	b.Payer.Aliases = []string{"John Smith", "mary smith", "Ann Lee", "Ann M Lee"}

	out, _, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []string{"John Smith", "Mary Smith", "Ann Lee", "Ann M Lee"}, out[0].Payer.Aliases)

	// a lone all-caps spelling is left as extracted
	c := rawRecord("c", "6160", "20")
	c.Payer.Aliases = []string{"JOHN SMITH"}
	out, _, err = newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{c})
	require.NoError(t, err)
	require.Equal(t, []string{"JOHN SMITH"}, out[0].Payer.Aliases)
}

func TestDeduplicate_MostFrequentWins(t *testing.T) {
	t.Parallel()

	recs := []*model.RawPaymentRecord{
		rawRecord("a", "900100", "10"),
		rawRecord("b", "900100", "10"),
		rawRecord("c", "900100", "10"),
	}
	recs[0].Payer.OrganizationName = "Acme Fund"
	recs[1].Payer.OrganizationName = "ACME Fund Inc"
	recs[2].Payer.OrganizationName = "ACME Fund Inc"

	out, log, err := newTestDeduplicator().Deduplicate(recs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "ACME Fund Inc", out[0].Payer.OrganizationName)
	require.Equal(t, 3, log[0].MergedCount)
}

func TestDeduplicate_KeyEqualityProperty(t *testing.T) {
	t.Parallel()

	checks := []string{"001234", "0001234", "1234"}
	for _, x := range checks {
		for _, y := range checks {
			a := rawRecord("a", x, "75.5")
			a.Payer.Aliases = []string{"A One"}
			b := rawRecord("b", y, "75.50")
			b.Payer.Aliases = []string{"B Two"}
			out, _, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{a, b})
			require.NoError(t, err)
			require.Len(t, out, 1, "%s vs %s", x, y)
			require.Equal(t, 2, out[0].MergeCount)
			require.ElementsMatch(t, []string{"A One", "B Two"}, out[0].Payer.Aliases)
		}
	}
}

func TestDeduplicate_NilRecordFailsAtomically(t *testing.T) {
	t.Parallel()

	out, log, err := newTestDeduplicator().Deduplicate([]*model.RawPaymentRecord{rawRecord("a", "1", "1"), nil})
	require.Error(t, err)
	var de *model.DeduplicationError
	require.True(t, errors.As(err, &de))
	require.Nil(t, out)
	require.Nil(t, log)
}

func TestDecodeBatch(t *testing.T) {
	t.Parallel()

	recs, err := DecodeBatch(strings.NewReader(`[
		{"source_document":"a.jpg","payment":{"check_no_or_payment_ref":"0101","amount":"20.00"},"payer":{"aliases":["Ann Lee"]}},
		{"source_document":"b.jpg","payment":{"check_no_or_payment_ref":"0101","amount":20},"contact":{"email":"ann@example.org"}}
	]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.True(t, recs[0].Payment.Amount.Equal(recs[1].Payment.Amount))

	for _, bad := range []string{`{"payment":{}}`, `[1, 2]`, `[{"payment":{"amount":"abc"}}]`, `nope`} {
		_, err := DecodeBatch(strings.NewReader(bad))
		var de *model.DeduplicationError
		require.True(t, errors.As(err, &de), "input %s", bad)
	}
}
