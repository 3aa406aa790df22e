package directory

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// SQLiteDirectory serves the customer roster kept in the local database.
type SQLiteDirectory struct {
	Customers *repository.CustomerRepo
}

func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{Customers: repository.NewCustomerRepo(db)}
}

func (d *SQLiteDirectory) Search(ctx context.Context, term string) ([]model.Customer, error) {
	found, err := d.Customers.Search(ctx, term)
	if err != nil {
		return nil, &model.DirectoryError{Op: "search", Term: term, Err: err}
	}
	return found, nil
}

func (d *SQLiteDirectory) Get(ctx context.Context, id string) (model.Customer, error) {
	c, err := d.Customers.Get(ctx, id)
	if err != nil {
		return model.Customer{}, &model.DirectoryError{Op: "get", Term: id, Err: err}
	}
	if c == nil {
		return model.Customer{}, &model.DirectoryError{Op: "get", Term: id, Err: model.ErrNotFound}
	}
	return *c, nil
}

// Create stores c, assigning an ID when it has none.
func (d *SQLiteDirectory) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	if strings.TrimSpace(c.DisplayName) == "" {
		return model.Customer{}, &model.DirectoryError{Op: "create", Err: eris.New("display name required")}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.SyncToken = "0"
	if err := d.Customers.Upsert(ctx, c); err != nil {
		return model.Customer{}, &model.DirectoryError{Op: "create", Term: c.DisplayName, Err: err}
	}
	return c, nil
}

func (d *SQLiteDirectory) List(ctx context.Context) ([]model.Customer, error) {
	all, err := d.Customers.List(ctx)
	if err != nil {
		return nil, &model.DirectoryError{Op: "list", Err: err}
	}
	return all, nil
}

func (d *SQLiteDirectory) Update(ctx context.Context, c model.Customer, patch model.ContactPatch) (model.Customer, error) {
	if err := d.Customers.UpdateContact(ctx, c.ID, patch); err != nil {
		if err == sql.ErrNoRows {
			err = model.ErrNotFound
		}
		return model.Customer{}, &model.DirectoryError{Op: "update", Term: c.ID, Err: err}
	}
	return d.Get(ctx, c.ID)
}

// ImportResult summarizes a roster import.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

var csvColumns = map[string]string{
	"id": "id", "customer_id": "id",
	"display_name": "display_name", "name": "display_name", "customer": "display_name",
	"given_name": "given_name", "first_name": "given_name",
	"family_name": "family_name", "last_name": "family_name",
	"company_name": "company_name", "company": "company_name", "organization": "company_name",
	"line1": "line1", "line_1": "line1", "address": "line1", "street": "line1",
	"city": "city", "state": "state", "zip": "zip", "postal_code": "zip",
	"email": "email", "phone": "phone",
}

// ImportCSV loads a customer roster. The first row is a header naming the
// columns (id, display_name, first_name, last_name, company, address, city,
// state, zip, email, phone in any order). Rows without an ID get a stable
// one derived from the display name. Bad rows are reported and skipped.
func (d *SQLiteDirectory) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	res := ImportResult{}
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err == io.EOF {
		return res, nil
	}
	if err != nil {
		return res, eris.Wrap(err, "directory: read header")
	}
	cols := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if name, ok := csvColumns[key]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	if _, ok := cols["display_name"]; !ok {
		if _, ok := cols["company_name"]; !ok {
			if _, ok := cols["given_name"]; !ok {
				return res, eris.New("directory: header needs a name column")
			}
		}
	}

	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		c := model.Customer{
			ID:          field("id"),
			DisplayName: field("display_name"),
			GivenName:   field("given_name"),
			FamilyName:  field("family_name"),
			CompanyName: field("company_name"),
			BillAddr: model.Address{
				Line1: field("line1"),
				City:  field("city"),
				State: strings.ToUpper(field("state")),
				ZIP:   normalize.NormalizeZIP(field("zip")),
			},
			Email: field("email"),
			Phone: field("phone"),
		}
		if c.DisplayName == "" {
			c.DisplayName = firstNonEmpty(c.CompanyName, strings.TrimSpace(c.GivenName+" "+c.FamilyName))
		}
		if c.DisplayName == "" {
			res.Skipped++
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("customer:"+normalize.NameKey(c.DisplayName))).String()
		}
		if err := d.Customers.Upsert(ctx, c); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d insert: %w", line, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
