package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jask/donormatch/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	records := []model.EnrichedRecord{
		{
			ID:          "r1",
			MatchStatus: model.StatusMatched,
			MatchScore:  100,
			PaymentInfo: model.PaymentInfo{CheckNo: "1001", Amount: "100.00", PaymentMethod: "printed_check"},
			PayerInfo: model.PayerInfo{
				FullName:       "Smith Foundation",
				QBOrganization: "Smith Foundation",
				CustomerRef:    model.CustomerRef{ID: "c1"},
				Address:        model.Address{Line1: "old"},
				QBAddress:      model.Address{Line1: "1 Foundation Way", City: "Boston", State: "MA", ZIP: "02110"},
				QBEmail:        []string{"a@x.org", "b@x.org"},
			},
			Status:          model.RecordStatus{Matched: true, EmailUpdated: true},
			SourceDocuments: []string{"scan-1.jpg", "scan-2.jpg"},
		},
		{
			ID:          "r2",
			MatchStatus: model.StatusNewCustomer,
			PaymentInfo: model.PaymentInfo{CheckNo: "2002", Amount: "50.00"},
			PayerInfo: model.PayerInfo{
				FullName: "Jane Roe",
				Address:  model.Address{Line1: "5 Oak Ave", ZIP: "01901"},
				Email:    "jane@example.org",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, headers, rows[0])

	col := func(row []string, name string) string {
		for i, h := range headers {
			if h == name {
				if i < len(row) {
					return row[i]
				}
				return ""
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	require.Equal(t, "matched", col(rows[1], "Status"))
	require.Equal(t, "100.00", col(rows[1], "Amount"))
	require.Equal(t, "1 Foundation Way", col(rows[1], "Address"))
	require.Equal(t, "a@x.org, b@x.org", col(rows[1], "Email"))
	require.Equal(t, "yes", col(rows[1], "Email Added"))
	require.Equal(t, "scan-1.jpg; scan-2.jpg", col(rows[1], "Sources"))

	require.Equal(t, "new_customer", col(rows[2], "Status"))
	require.Equal(t, "5 Oak Ave", col(rows[2], "Address"))
	require.Equal(t, "01901", col(rows[2], "ZIP"))
	require.Equal(t, "jane@example.org", col(rows[2], "Email"))
}

func TestWriteXLSXEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
