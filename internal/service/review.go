package service

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/model"
)

// ErrNotPending is returned when deciding a record that is not awaiting review.
var ErrNotPending = errors.New("record is not pending review")

// ReviewService resolves pending_review records of a stored batch.
type ReviewService struct {
	Batches *repository.BatchRepo
	Logger  *zap.SugaredLogger
}

// Pending lists the records of a batch that still need a decision.
func (s *ReviewService) Pending(ctx context.Context, batchID string) ([]model.EnrichedRecord, error) {
	return s.Batches.Records(ctx, batchID, repository.RecordFilter{Status: string(model.StatusPendingReview)})
}

// Decide approves the proposed customer (matched) or rejects it
// (new_customer, candidate data cleared) and stores the outcome.
func (s *ReviewService) Decide(ctx context.Context, batchID, recordID string, approve bool) (model.EnrichedRecord, error) {
	rec, err := s.Batches.Record(ctx, batchID, recordID)
	if err != nil {
		return model.EnrichedRecord{}, eris.Wrapf(err, "review: load %s", recordID)
	}
	if rec == nil {
		return model.EnrichedRecord{}, eris.Wrapf(model.ErrNotFound, "review: record %s in batch %s", recordID, batchID)
	}
	if rec.MatchStatus != model.StatusPendingReview {
		return model.EnrichedRecord{}, eris.Wrapf(ErrNotPending, "review: record %s is %s", recordID, rec.MatchStatus)
	}

	out := *rec
	if approve {
		approveRecord(&out)
	} else {
		rejectRecord(&out)
	}
	if err := s.Batches.UpdateRecord(ctx, batchID, out); err != nil {
		return model.EnrichedRecord{}, eris.Wrapf(err, "review: store %s", recordID)
	}
	if s.Logger != nil {
		s.Logger.Infow("review decision", "batch_id", batchID, "record_id", recordID, "approved", approve, "status", out.MatchStatus)
	}
	return out, nil
}

func approveRecord(r *model.EnrichedRecord) {
	r.MatchStatus = model.StatusMatched
	r.Status.Matched = true
	r.Status.PendingReview = false
	r.Status.Edited = true
}

func rejectRecord(r *model.EnrichedRecord) {
	r.MatchStatus = model.StatusNewCustomer
	r.Status = model.RecordStatus{NewCustomer: true, Edited: true}
	r.Patch = model.ContactPatch{}

	p := &r.PayerInfo
	p.CustomerRef = model.CustomerRef{}
	p.QBOrganization = ""
	p.QBAddress = model.Address{}
	p.PreviousAddress = model.Address{}
	p.QBEmail = []string{}
	p.QBPhone = []string{}
	p.FullName = p.OrganizationName
	for _, a := range p.Aliases {
		if p.FullName != "" {
			break
		}
		p.FullName = a
	}
}
