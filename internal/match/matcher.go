package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

const (
	// DefaultThreshold is the minimum score accepted as a match.
	DefaultThreshold = 50.0
)

// Searcher is the part of the customer directory the matcher reads.
type Searcher interface {
	Search(ctx context.Context, term string) ([]model.Customer, error)
	Get(ctx context.Context, id string) (model.Customer, error)
}

// State tracks one match attempt.
type State int

const (
	StateNotSearched State = iota
	StateSearching
	StateNoCandidates
	StateCandidatesScored
	StateNewCustomer
	StateMatched
	StatePendingReview
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotSearched:
		return "not_searched"
	case StateSearching:
		return "searching"
	case StateNoCandidates:
		return "no_candidates"
	case StateCandidatesScored:
		return "candidates_scored"
	case StateNewCustomer:
		return "new_customer"
	case StateMatched:
		return "matched"
	case StatePendingReview:
		return "pending_review"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateNotSearched:      {StateSearching},
	StateSearching:        {StateNoCandidates, StateCandidatesScored, StateFailed},
	StateNoCandidates:     {StateNewCustomer},
	StateCandidatesScored: {StateNewCustomer, StateMatched, StatePendingReview, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Matcher finds the best directory customer for a canonical record.
type Matcher struct {
	Directory Searcher
	Scorer    Scorer
	// Threshold is the minimum accepted score; zero means DefaultThreshold.
	Threshold float64
	// AutoMatchThreshold splits accepted scores: below it the record is
	// pending_review. Zero or anything at or below Threshold disables the band.
	AutoMatchThreshold float64
	Logger             *zap.SugaredLogger
}

type attempt struct {
	recordID string
	state    State
	logger   *zap.SugaredLogger
}

func (a *attempt) advance(to State) {
	for _, next := range transitions[a.state] {
		if next == to {
			a.logger.Debugw("match state", "record_id", a.recordID, "from", a.state.String(), "to", to.String())
			a.state = to
			return
		}
	}
	panic(fmt.Sprintf("match: invalid transition %s -> %s", a.state, to))
}

type scored struct {
	cand  model.Customer
	score Breakdown
}

// Match runs one attempt. Directory failures return a *model.DirectoryError
// and never produce a new_customer result.
func (m *Matcher) Match(ctx context.Context, rec *model.CanonicalRecord) (model.MatchResult, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	scorer := m.Scorer
	if scorer == nil {
		scorer = WeightedScorer{}
	}
	threshold := m.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	at := &attempt{recordID: rec.ID, logger: logger}
	at.advance(StateSearching)

	candidates, err := m.collect(ctx, rec)
	if err != nil {
		at.advance(StateFailed)
		return model.MatchResult{}, err
	}
	if len(candidates) == 0 {
		at.advance(StateNoCandidates)
		at.advance(StateNewCustomer)
		return model.NewCustomerResult(0), nil
	}

	best := pickBest(rec, candidates, scorer)
	at.advance(StateCandidatesScored)
	logger.Debugw("best candidate", "record_id", rec.ID, "customer_id", best.cand.ID, "score", best.score.Total)

	if best.score.Total < threshold {
		at.advance(StateNewCustomer)
		return model.NewCustomerResult(best.score.Total), nil
	}

	full, err := m.Directory.Get(ctx, best.cand.ID)
	if err != nil {
		at.advance(StateFailed)
		return model.MatchResult{}, directoryError("get", best.cand.ID, err)
	}

	res := Reconcile(rec.Contact, full, best.score.Total)
	if m.AutoMatchThreshold > threshold && best.score.Total < m.AutoMatchThreshold {
		res.Status = model.StatusPendingReview
		at.advance(StatePendingReview)
	} else {
		at.advance(StateMatched)
	}
	return res, nil
}

// collect searches every variation and keeps candidates in first-seen order,
// de-duplicated by ID.
func (m *Matcher) collect(ctx context.Context, rec *model.CanonicalRecord) ([]model.Customer, error) {
	var out []model.Customer
	seen := map[string]struct{}{}
	for _, term := range GenerateVariations(rec.Payer.Aliases, rec.Payer.OrganizationName) {
		found, err := m.Directory.Search(ctx, term)
		if err != nil {
			return nil, directoryError("search", term, err)
		}
		for _, c := range found {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

func directoryError(op, term string, err error) error {
	var de *model.DirectoryError
	if errors.As(err, &de) {
		return err
	}
	return &model.DirectoryError{Op: op, Term: term, Err: err}
}

// pickBest returns the highest scorer. Ties go to the smaller edit distance
// between the record's primary name and the candidate's display name, then
// to the candidate seen first.
func pickBest(rec *model.CanonicalRecord, candidates []model.Customer, scorer Scorer) scored {
	primary := normalize.NameKey(rec.DisplayName())
	best := scored{cand: candidates[0], score: scorer.Score(rec, candidates[0])}
	bestDist := levenshtein.ComputeDistance(primary, normalize.NameKey(candidates[0].DisplayName))
	for _, c := range candidates[1:] {
		s := scorer.Score(rec, c)
		dist := levenshtein.ComputeDistance(primary, normalize.NameKey(c.DisplayName))
		if s.Total > best.score.Total || (s.Total == best.score.Total && dist < bestDist) {
			best, bestDist = scored{cand: c, score: s}, dist
		}
	}
	return best
}
