package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jask/donormatch/internal/model"
)

const (
	// QuickBooksProductionURL is the QBO v3 API host.
	QuickBooksProductionURL = "https://quickbooks.api.intuit.com"
	// QuickBooksSandboxURL is the QBO sandbox host.
	QuickBooksSandboxURL = "https://sandbox-quickbooks.api.intuit.com"

	qbMinorVersion = "65"
	qbSearchLimit  = 100
)

// QuickBooksConfig configures a QuickBooksClient. Token acquisition is out of
// scope; AccessToken must already be valid.
type QuickBooksConfig struct {
	BaseURL     string
	RealmID     string
	AccessToken string
	Timeout     time.Duration
	// RequestsPerSecond throttles calls; QBO allows 500 per minute per realm.
	RequestsPerSecond float64
}

// QuickBooksClient talks to the QuickBooks Online customer endpoints.
type QuickBooksClient struct {
	baseURL    string
	realmID    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

func NewQuickBooksClient(cfg QuickBooksConfig, logger *zap.SugaredLogger) (*QuickBooksClient, error) {
	if cfg.RealmID == "" {
		return nil, eris.New("quickbooks: realm id required")
	}
	if cfg.AccessToken == "" {
		return nil, eris.New("quickbooks: access token required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = QuickBooksProductionURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 8
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &QuickBooksClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		realmID:    cfg.RealmID,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     logger,
	}, nil
}

type qbAddress struct {
	Line1                  string `json:"Line1,omitempty"`
	City                   string `json:"City,omitempty"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode,omitempty"`
	PostalCode             string `json:"PostalCode,omitempty"`
}

type qbEmail struct {
	Address string `json:"Address,omitempty"`
}

type qbPhone struct {
	FreeFormNumber string `json:"FreeFormNumber,omitempty"`
}

type qbCustomer struct {
	ID               string     `json:"Id,omitempty"`
	SyncToken        string     `json:"SyncToken,omitempty"`
	Sparse           bool       `json:"sparse,omitempty"`
	DisplayName      string     `json:"DisplayName,omitempty"`
	GivenName        string     `json:"GivenName,omitempty"`
	FamilyName       string     `json:"FamilyName,omitempty"`
	CompanyName      string     `json:"CompanyName,omitempty"`
	BillAddr         *qbAddress `json:"BillAddr,omitempty"`
	PrimaryEmailAddr *qbEmail   `json:"PrimaryEmailAddr,omitempty"`
	PrimaryPhone     *qbPhone   `json:"PrimaryPhone,omitempty"`
}

type qbFault struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
		Type string `json:"type"`
	} `json:"Fault"`
}

func (c qbCustomer) toModel() model.Customer {
	out := model.Customer{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		CompanyName: c.CompanyName,
		SyncToken:   c.SyncToken,
	}
	if c.BillAddr != nil {
		out.BillAddr = model.Address{
			Line1: c.BillAddr.Line1,
			City:  c.BillAddr.City,
			State: c.BillAddr.CountrySubDivisionCode,
			ZIP:   c.BillAddr.PostalCode,
		}
	}
	if c.PrimaryEmailAddr != nil {
		out.Email = c.PrimaryEmailAddr.Address
	}
	if c.PrimaryPhone != nil {
		out.Phone = c.PrimaryPhone.FreeFormNumber
	}
	return out
}

func fromModel(c model.Customer) qbCustomer {
	out := qbCustomer{
		ID:          c.ID,
		SyncToken:   c.SyncToken,
		DisplayName: c.DisplayName,
		GivenName:   c.GivenName,
		FamilyName:  c.FamilyName,
		CompanyName: c.CompanyName,
	}
	if !c.BillAddr.IsZero() {
		out.BillAddr = addrToQB(c.BillAddr)
	}
	if c.Email != "" {
		out.PrimaryEmailAddr = &qbEmail{Address: c.Email}
	}
	if c.Phone != "" {
		out.PrimaryPhone = &qbPhone{FreeFormNumber: c.Phone}
	}
	return out
}

func addrToQB(a model.Address) *qbAddress {
	return &qbAddress{Line1: a.Line1, City: a.City, CountrySubDivisionCode: a.State, PostalCode: a.ZIP}
}

// Search runs a LIKE query over DisplayName. QBO's query language has no OR,
// so company and person names are reached through the many search variations.
func (q *QuickBooksClient) Search(ctx context.Context, term string) ([]model.Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT * FROM Customer WHERE DisplayName LIKE '%%%s%%' MAXRESULTS %d", escapeQBO(term), qbSearchLimit)
	var resp struct {
		QueryResponse struct {
			Customer []qbCustomer `json:"Customer"`
		} `json:"QueryResponse"`
	}
	params := url.Values{"query": {query}}
	if err := q.do(ctx, http.MethodGet, "query", params, nil, &resp); err != nil {
		return nil, &model.DirectoryError{Op: "search", Term: term, Err: err}
	}
	out := make([]model.Customer, 0, len(resp.QueryResponse.Customer))
	for _, c := range resp.QueryResponse.Customer {
		out = append(out, c.toModel())
	}
	q.logger.Debugw("quickbooks search", "term", term, "results", len(out))
	return out, nil
}

func (q *QuickBooksClient) Get(ctx context.Context, id string) (model.Customer, error) {
	var resp struct {
		Customer qbCustomer `json:"Customer"`
	}
	if err := q.do(ctx, http.MethodGet, "customer/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return model.Customer{}, &model.DirectoryError{Op: "get", Term: id, Err: err}
	}
	return resp.Customer.toModel(), nil
}

func (q *QuickBooksClient) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	body := fromModel(c)
	body.ID, body.SyncToken = "", ""
	var resp struct {
		Customer qbCustomer `json:"Customer"`
	}
	if err := q.do(ctx, http.MethodPost, "customer", nil, body, &resp); err != nil {
		return model.Customer{}, &model.DirectoryError{Op: "create", Term: c.DisplayName, Err: err}
	}
	return resp.Customer.toModel(), nil
}

// Update sends a sparse update carrying only the patched fields. c must hold
// the current SyncToken.
func (q *QuickBooksClient) Update(ctx context.Context, c model.Customer, patch model.ContactPatch) (model.Customer, error) {
	body := qbCustomer{ID: c.ID, SyncToken: c.SyncToken, Sparse: true}
	if patch.BillAddr != nil {
		body.BillAddr = addrToQB(*patch.BillAddr)
	}
	if patch.Email != nil {
		body.PrimaryEmailAddr = &qbEmail{Address: *patch.Email}
	}
	if patch.Phone != nil {
		body.PrimaryPhone = &qbPhone{FreeFormNumber: *patch.Phone}
	}
	var resp struct {
		Customer qbCustomer `json:"Customer"`
	}
	if err := q.do(ctx, http.MethodPost, "customer", nil, body, &resp); err != nil {
		return model.Customer{}, &model.DirectoryError{Op: "update", Term: c.ID, Err: err}
	}
	return resp.Customer.toModel(), nil
}

func (q *QuickBooksClient) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("minorversion", qbMinorVersion)
	endpoint := fmt.Sprintf("%s/v3/company/%s/%s?%s", q.baseURL, url.PathEscape(q.realmID), path, params.Encode())

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+q.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func statusError(code int, raw []byte) error {
	var fault qbFault
	if err := json.Unmarshal(raw, &fault); err == nil && len(fault.Fault.Error) > 0 {
		e := fault.Fault.Error[0]
		if code == http.StatusNotFound || strings.Contains(strings.ToLower(e.Message), "object not found") {
			return eris.Wrapf(model.ErrNotFound, "quickbooks %s: %s", e.Code, e.Detail)
		}
		return eris.Errorf("quickbooks status %d (%s): %s %s", code, e.Code, e.Message, e.Detail)
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return eris.Errorf("quickbooks status %d: authentication failed", code)
	case http.StatusTooManyRequests:
		return eris.New("quickbooks status 429: throttled")
	case http.StatusNotFound:
		return eris.Wrap(model.ErrNotFound, "quickbooks status 404")
	}
	return eris.Errorf("quickbooks status %d", code)
}

// escapeQBO escapes a literal for the QBO query language.
func escapeQBO(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
