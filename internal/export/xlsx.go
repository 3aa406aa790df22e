package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/jask/donormatch/internal/model"
)

const sheetName = "Donations"

var headers = []string{
	"Record ID", "Status", "Score", "Full Name", "Organization", "Customer ID",
	"Check / Ref", "Amount", "Payment Date", "Method", "Memo",
	"Address", "City", "State", "ZIP", "Email", "Phone",
	"Address Update", "Email Added", "Phone Added", "Sources",
}

// WriteXLSX writes one row per enriched record with a styled header.
// Pending review rows are highlighted.
func WriteXLSX(w io.Writer, records []model.EnrichedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return eris.Wrap(err, "export: rename sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return eris.Wrap(err, "export: header style")
	}
	pendingStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return eris.Wrap(err, "export: pending style")
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return eris.Wrap(err, "export: header row")
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheetName, "A1", last+"1", headerStyle); err != nil {
		return eris.Wrap(err, "export: header style")
	}

	for i, rec := range records {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := rowValues(rec)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return eris.Wrapf(err, "export: row %d", row)
		}
		if rec.MatchStatus == model.StatusPendingReview {
			end, _ := excelize.CoordinatesToCellName(len(headers), row)
			if err := f.SetCellStyle(sheetName, cell, end, pendingStyle); err != nil {
				return eris.Wrapf(err, "export: row %d style", row)
			}
		}
	}

	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, 16)
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return eris.Wrap(err, "export: freeze header")
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func rowValues(rec model.EnrichedRecord) []any {
	p := rec.PayerInfo
	pay := rec.PaymentInfo
	addr := p.QBAddress
	if rec.MatchStatus != model.StatusMatched || addr.IsZero() {
		addr = p.Address
	}
	email := strings.Join(p.QBEmail, ", ")
	if email == "" {
		email = p.Email
	}
	phone := strings.Join(p.QBPhone, ", ")
	if phone == "" {
		phone = p.Phone
	}
	return []any{
		rec.ID,
		string(rec.MatchStatus),
		rec.MatchScore,
		p.FullName,
		firstNonEmpty(p.QBOrganization, p.OrganizationName),
		p.CustomerRef.ID,
		pay.CheckNo,
		pay.Amount,
		pay.PaymentDate,
		pay.PaymentMethod,
		pay.Memo,
		addr.Line1,
		addr.City,
		addr.State,
		addr.ZIP,
		email,
		phone,
		yesNo(rec.Status.AddressUpdated),
		yesNo(rec.Status.EmailUpdated),
		yesNo(rec.Status.PhoneUpdated),
		strings.Join(rec.SourceDocuments, "; "),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
