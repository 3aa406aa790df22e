package testdata

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// Generator builds reproducible fake rosters and extraction batches.
type Generator struct {
	f *gofakeit.Faker
}

// New seeds the generator. The same seed yields the same data.
func New(seed int64) *Generator {
	return &Generator{f: gofakeit.New(seed)}
}

// Customers returns n directory customers; roughly one in four is an
// organization.
func (g *Generator) Customers(n int) []model.Customer {
	out := make([]model.Customer, 0, n)
	for i := 0; i < n; i++ {
		c := model.Customer{
			ID: g.f.UUID(),
			BillAddr: model.Address{
				Line1: g.f.Street(),
				City:  g.f.City(),
				State: g.f.StateAbr(),
				ZIP:   normalize.NormalizeZIP(g.f.Zip()),
			},
			Email:     g.f.Email(),
			Phone:     g.f.Phone(),
			SyncToken: "0",
		}
		if g.f.Number(1, 4) == 1 {
			c.CompanyName = g.f.Company()
			c.DisplayName = c.CompanyName
		} else {
			c.GivenName = g.f.FirstName()
			c.FamilyName = g.f.LastName()
			c.DisplayName = c.GivenName + " " + c.FamilyName
		}
		out = append(out, c)
	}
	return out
}

// Batch returns n extracted payments from donors in customers plus some
// unknown donors. About one payment in five is scanned twice (a check and
// its stub), the second time with a zero-padded check number.
func (g *Generator) Batch(customers []model.Customer, n int) []*model.RawPaymentRecord {
	var out []*model.RawPaymentRecord
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rec := &model.RawPaymentRecord{
			SourceDocument: fmt.Sprintf("scan-%03d.jpg", len(out)+1),
			Payment: model.Payment{
				Method:      model.MethodPrintedCheck,
				CheckNo:     fmt.Sprintf("%d", g.f.Number(1000, 99999)),
				Amount:      decimal.NewFromFloat(g.f.Price(10, 500)).Round(2),
				PaymentDate: day.AddDate(0, 0, g.f.Number(0, 27)).Format(time.DateOnly),
				Memo:        g.memo(),
			},
		}
		if len(customers) > 0 && g.f.Number(1, 10) <= 7 {
			g.fillFromCustomer(rec, customers[g.f.Number(0, len(customers)-1)])
		} else {
			rec.Payer.Aliases = []string{g.f.FirstName() + " " + g.f.LastName()}
			rec.Contact.Address = model.Address{Line1: g.f.Street(), City: g.f.City(), State: g.f.StateAbr(), ZIP: normalize.NormalizeZIP(g.f.Zip())}
		}
		out = append(out, rec)

		if g.f.Number(1, 5) == 1 {
			dup := *rec
			dup.SourceDocument = fmt.Sprintf("scan-%03d.jpg", len(out)+1)
			dup.Payment.CheckNo = "00" + rec.Payment.CheckNo
			dup.Payment.Method = model.MethodHandwrittenCheck
			dup.Payer.Aliases = append([]string(nil), rec.Payer.Aliases...)
			out = append(out, &dup)
		}
	}
	return out
}

func (g *Generator) fillFromCustomer(rec *model.RawPaymentRecord, c model.Customer) {
	if c.CompanyName != "" {
		rec.Payer.OrganizationName = c.CompanyName
	} else {
		rec.Payer.Aliases = []string{c.DisplayName}
		if g.f.Bool() {
			rec.Payer.Aliases = append(rec.Payer.Aliases, c.FamilyName+", "+c.GivenName)
		}
	}
	rec.Contact.Address = c.BillAddr
	if g.f.Number(1, 4) == 1 {
		rec.Contact.Address.Line1 = g.f.Street()
	}
	if g.f.Number(1, 3) == 1 {
		rec.Contact.Email = g.f.Email()
	}
}

func (g *Generator) memo() string {
	if g.f.Bool() {
		return ""
	}
	return g.f.RandomString([]string{"Annual fund", "In memory of Dad", "Building fund", "Spring appeal", "Gala"})
}
