package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jask/donormatch/internal/model"
)

const customerColumns = `id, display_name, given_name, family_name, company_name, line1, city, state, zip, email, phone, sync_token`

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CustomerRepo handles the local customer directory.
type CustomerRepo struct {
	db DBTX
}

func NewCustomerRepo(db DBTX) *CustomerRepo {
	return &CustomerRepo{db: db}
}

func (r *CustomerRepo) Upsert(ctx context.Context, c model.Customer) error {
	if c.SyncToken == "" {
		c.SyncToken = "0"
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO customers(`+customerColumns+`, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 display_name=excluded.display_name,
	 given_name=excluded.given_name,
	 family_name=excluded.family_name,
	 company_name=excluded.company_name,
	 line1=excluded.line1,
	 city=excluded.city,
	 state=excluded.state,
	 zip=excluded.zip,
	 email=excluded.email,
	 phone=excluded.phone,
	 sync_token=excluded.sync_token,
	 updated_at=CURRENT_TIMESTAMP;
	`, c.ID, c.DisplayName, c.GivenName, c.FamilyName, c.CompanyName,
		c.BillAddr.Line1, c.BillAddr.City, c.BillAddr.State, c.BillAddr.ZIP,
		c.Email, c.Phone, c.SyncToken)
	return err
}

// Get returns nil when the customer does not exist.
func (r *CustomerRepo) Get(ctx context.Context, id string) (*model.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Search matches term as a case-insensitive substring of any name column.
func (r *CustomerRepo) Search(ctx context.Context, term string) ([]model.Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	like := "%" + escapeLike(term) + "%"
	return r.query(ctx, `SELECT `+customerColumns+` FROM customers
	WHERE display_name LIKE ? ESCAPE '\' OR company_name LIKE ? ESCAPE '\'
	 OR given_name LIKE ? ESCAPE '\' OR family_name LIKE ? ESCAPE '\'
	 OR (given_name || ' ' || family_name) LIKE ? ESCAPE '\'
	ORDER BY display_name, id`, like, like, like, like, like)
}

func (r *CustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	return r.query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY display_name, id`)
}

func (r *CustomerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

// UpdateContact applies a patch and bumps the sync token. It returns
// sql.ErrNoRows when the customer does not exist.
func (r *CustomerRepo) UpdateContact(ctx context.Context, id string, patch model.ContactPatch) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return sql.ErrNoRows
	}
	if patch.BillAddr != nil {
		current.BillAddr = *patch.BillAddr
	}
	if patch.Email != nil {
		current.Email = *patch.Email
	}
	if patch.Phone != nil {
		current.Phone = *patch.Phone
	}
	n, _ := strconv.Atoi(current.SyncToken)
	current.SyncToken = strconv.Itoa(n + 1)
	return r.Upsert(ctx, *current)
}

func (r *CustomerRepo) query(ctx context.Context, q string, args ...any) ([]model.Customer, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(s scanner) (model.Customer, error) {
	var c model.Customer
	err := s.Scan(&c.ID, &c.DisplayName, &c.GivenName, &c.FamilyName, &c.CompanyName,
		&c.BillAddr.Line1, &c.BillAddr.City, &c.BillAddr.State, &c.BillAddr.ZIP,
		&c.Email, &c.Phone, &c.SyncToken)
	return c, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
