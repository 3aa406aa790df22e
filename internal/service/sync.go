package service

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/directory"
	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// Syncer pushes review outcomes back to the directory: new customers are
// created and matched customers get their contact patch. Pending and
// unmatched records are left alone.
type Syncer struct {
	Directory directory.Directory
	// Batches, when set, stores each synced record back into BatchID.
	Batches *repository.BatchRepo
	BatchID string
	Logger  *zap.SugaredLogger
}

type SyncResult struct {
	Created int
	Updated int
	Skipped int
	Records []model.EnrichedRecord
	Errors  []error
}

// Apply syncs records in order. A failing record is reported in Errors and
// kept unchanged; the rest continue.
func (s *Syncer) Apply(ctx context.Context, records []model.EnrichedRecord) (SyncResult, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if s.Directory == nil {
		return SyncResult{}, eris.New("sync: directory not configured")
	}

	res := SyncResult{Records: make([]model.EnrichedRecord, 0, len(records))}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var (
			out     model.EnrichedRecord
			changed bool
			err     error
		)
		switch {
		case rec.MatchStatus == model.StatusNewCustomer:
			out, err = s.create(ctx, rec)
			changed = err == nil
			if changed {
				res.Created++
			}
		case rec.MatchStatus == model.StatusMatched && !rec.Patch.Empty():
			out, err = s.update(ctx, rec)
			changed = err == nil
			if changed {
				res.Updated++
			}
		default:
			out = rec
			res.Skipped++
		}
		if err != nil {
			logger.Errorw("sync failed", "record_id", rec.ID, "status", rec.MatchStatus, "error", err)
			res.Errors = append(res.Errors, &model.RecordError{RecordID: rec.ID, Err: err})
			res.Records = append(res.Records, rec)
			continue
		}
		if changed && s.Batches != nil && s.BatchID != "" {
			if err := s.Batches.UpdateRecord(ctx, s.BatchID, out); err != nil {
				res.Errors = append(res.Errors, &model.RecordError{RecordID: rec.ID, Err: eris.Wrap(err, "store synced record")})
			}
		}
		res.Records = append(res.Records, out)
	}
	logger.Infow("sync finished", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped, "errors", len(res.Errors))
	return res, nil
}

func (s *Syncer) create(ctx context.Context, rec model.EnrichedRecord) (model.EnrichedRecord, error) {
	c := customerFromRecord(rec)
	if c.DisplayName == "" {
		return rec, eris.New("record has no payer name")
	}
	created, err := s.Directory.Create(ctx, c)
	if err != nil {
		return rec, err
	}
	out := rec
	out.MatchStatus = model.StatusMatched
	out.Status.Matched = true
	out.Status.NewCustomer = false
	out.PayerInfo.CustomerRef = created.Ref()
	out.PayerInfo.QBOrganization = created.CompanyName
	out.PayerInfo.QBAddress = created.BillAddr
	out.PayerInfo.QBEmail = splitContact(created.Email)
	out.PayerInfo.QBPhone = splitContact(created.Phone)
	return out, nil
}

func (s *Syncer) update(ctx context.Context, rec model.EnrichedRecord) (model.EnrichedRecord, error) {
	up, ok := s.Directory.(directory.Updater)
	if !ok {
		return rec, eris.New("directory does not support updates")
	}
	ref := rec.PayerInfo.CustomerRef
	if ref.ID == "" {
		return rec, eris.New("matched record has no customer reference")
	}
	cur := model.Customer{
		ID:          ref.ID,
		SyncToken:   ref.SyncToken,
		DisplayName: ref.DisplayName,
		GivenName:   ref.FirstName,
		FamilyName:  ref.LastName,
		CompanyName: ref.CompanyName,
	}
	updated, err := up.Update(ctx, cur, rec.Patch)
	if err != nil {
		return rec, err
	}
	out := rec
	out.PayerInfo.CustomerRef.SyncToken = updated.SyncToken
	if rec.Patch.BillAddr != nil {
		out.PayerInfo.QBAddress = *rec.Patch.BillAddr
	}
	if rec.Patch.Email != nil {
		out.PayerInfo.QBEmail = splitContact(*rec.Patch.Email)
	}
	if rec.Patch.Phone != nil {
		out.PayerInfo.QBPhone = splitContact(*rec.Patch.Phone)
	}
	out.Patch = model.ContactPatch{}
	return out, nil
}

// customerFromRecord builds the directory entry for a new payer. An
// organization becomes the company; otherwise the first alias is split into
// given and family names.
func customerFromRecord(rec model.EnrichedRecord) model.Customer {
	p := rec.PayerInfo
	c := model.Customer{
		BillAddr: model.Address{
			Line1: strings.TrimSpace(p.Address.Line1),
			City:  strings.TrimSpace(p.Address.City),
			State: strings.ToUpper(strings.TrimSpace(p.Address.State)),
			ZIP:   normalize.NormalizeZIP(p.Address.ZIP),
		},
		Email: strings.TrimSpace(p.Email),
		Phone: strings.TrimSpace(p.Phone),
	}
	if org := strings.TrimSpace(p.OrganizationName); org != "" {
		c.CompanyName = org
		c.DisplayName = org
		return c
	}
	name := strings.TrimSpace(p.FullName)
	for _, a := range p.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			name = a
			break
		}
	}
	if i := strings.Index(name, ","); i >= 0 {
		name = strings.TrimSpace(name[i+1:]) + " " + strings.TrimSpace(name[:i])
	}
	name = normalize.NormalizeAlias(name)
	c.DisplayName = name
	words := strings.Fields(name)
	switch len(words) {
	case 0:
	case 1:
		c.FamilyName = words[0]
	default:
		c.GivenName = words[0]
		c.FamilyName = words[len(words)-1]
	}
	return c
}

func splitContact(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
