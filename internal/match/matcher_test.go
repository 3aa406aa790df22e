package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jask/donormatch/internal/model"
)

type mockDirectory struct {
	mock.Mock
}

func (d *mockDirectory) Search(ctx context.Context, term string) ([]model.Customer, error) {
	args := d.Called(ctx, term)
	found, _ := args.Get(0).([]model.Customer)
	return found, args.Error(1)
}

func (d *mockDirectory) Get(ctx context.Context, id string) (model.Customer, error) {
	args := d.Called(ctx, id)
	c, _ := args.Get(0).(model.Customer)
	return c, args.Error(1)
}

// fixedScorer returns a preset total per candidate ID.
type fixedScorer map[string]float64

func (f fixedScorer) Score(_ *model.CanonicalRecord, c model.Customer) Breakdown {
	return Breakdown{Name: f[c.ID], Total: f[c.ID]}
}

func individual(alias string) *model.CanonicalRecord {
	return &model.CanonicalRecord{ID: "rec-1", Payer: model.Payer{Aliases: []string{alias}}}
}

func TestMatch_OrganizationExact(t *testing.T) {
	t.Parallel()

	foundation := model.Customer{ID: "7", DisplayName: "Smith Foundation", CompanyName: "Smith Foundation",
		BillAddr: model.Address{Line1: "1 Foundation Way", City: "Boston", State: "MA", ZIP: "02110"}}
	dir := &mockDirectory{}
	dir.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{foundation}, nil)
	dir.On("Get", mock.Anything, "7").Return(foundation, nil).Once()

	rec := &model.CanonicalRecord{ID: "rec-1", Payer: model.Payer{OrganizationName: "Smith Foundation"}}
	res, err := (&Matcher{Directory: dir}).Match(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, model.StatusMatched, res.Status)
	require.Equal(t, 100.0, res.Score)
	require.Equal(t, "7", res.CustomerRef.ID)
	require.Equal(t, "1 Foundation Way", res.QBAddress.Line1)
	dir.AssertExpectations(t)
}

func TestMatch_NoCandidates(t *testing.T) {
	t.Parallel()

	dir := &mockDirectory{}
	dir.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{}, nil)

	res, err := (&Matcher{Directory: dir}).Match(context.Background(), individual("Zzyx Qrvth"))
	require.NoError(t, err)
	require.Equal(t, model.StatusNewCustomer, res.Status)
	require.Equal(t, 0.0, res.Score)
	require.Nil(t, res.QBAddress)
	require.NotNil(t, res.QBEmail)
	dir.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestMatch_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	cand := model.Customer{ID: "c1", DisplayName: "Someone Else"}
	for _, tc := range []struct {
		score float64
		want  model.MatchStatus
	}{
		{49, model.StatusNewCustomer},
		{49.99, model.StatusNewCustomer},
		{50, model.StatusMatched},
		{51, model.StatusMatched},
	} {
		dir := &mockDirectory{}
		dir.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{cand}, nil)
		dir.On("Get", mock.Anything, "c1").Return(cand, nil)

		m := &Matcher{Directory: dir, Scorer: fixedScorer{"c1": tc.score}}
		res, err := m.Match(context.Background(), individual("John Smith"))
		require.NoError(t, err)
		require.Equal(t, tc.want, res.Status, "score %v", tc.score)
		require.Equal(t, tc.score, res.Score)
		if tc.want == model.StatusNewCustomer {
			require.Nil(t, res.QBAddress)
			require.Nil(t, res.CustomerRef)
		}
	}
}

func TestMatch_PendingReviewBand(t *testing.T) {
	t.Parallel()

	cand := model.Customer{ID: "c1", DisplayName: "Jon Smyth"}
	dir := &mockDirectory{}
	dir.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{cand}, nil)
	dir.On("Get", mock.Anything, "c1").Return(cand, nil)

	m := &Matcher{Directory: dir, Scorer: fixedScorer{"c1": 65}, AutoMatchThreshold: 80}
	res, err := m.Match(context.Background(), individual("John Smith"))
	require.NoError(t, err)
	require.Equal(t, model.StatusPendingReview, res.Status)
	require.Equal(t, "c1", res.CustomerRef.ID)

	m.Scorer = fixedScorer{"c1": 80}
	res, err = m.Match(context.Background(), individual("John Smith"))
	require.NoError(t, err)
	require.Equal(t, model.StatusMatched, res.Status)
}

func TestMatch_DirectoryFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")

	searchFails := &mockDirectory{}
	searchFails.On("Search", mock.Anything, mock.Anything).Return(nil, boom)
	_, err := (&Matcher{Directory: searchFails}).Match(context.Background(), individual("John Smith"))
	var de *model.DirectoryError
	require.True(t, errors.As(err, &de))
	require.Equal(t, "search", de.Op)
	require.Equal(t, "John Smith", de.Term)
	require.ErrorIs(t, err, boom)

	cand := model.Customer{ID: "c1", DisplayName: "John Smith"}
	getFails := &mockDirectory{}
	getFails.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{cand}, nil)
	getFails.On("Get", mock.Anything, "c1").Return(nil, boom)
	_, err = (&Matcher{Directory: getFails}).Match(context.Background(), individual("John Smith"))
	require.True(t, errors.As(err, &de))
	require.Equal(t, "get", de.Op)
}

func TestMatch_TieBreakAndDedupe(t *testing.T) {
	t.Parallel()

	far := model.Customer{ID: "far", DisplayName: "Jonathan Smythe"}
	near := model.Customer{ID: "near", DisplayName: "Jon Smith"}
	dir := &mockDirectory{}
	dir.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{far, near, far}, nil)
	dir.On("Get", mock.Anything, "near").Return(near, nil).Once()

	m := &Matcher{Directory: dir, Scorer: fixedScorer{"far": 70, "near": 70}}
	res, err := m.Match(context.Background(), individual("Jon Smith"))
	require.NoError(t, err)
	require.Equal(t, "near", res.CustomerRef.ID)
	dir.AssertExpectations(t)

	// equal scores and equal distance keep the first candidate seen
	a := model.Customer{ID: "a", DisplayName: "Ann Lee"}
	b := model.Customer{ID: "b", DisplayName: "Ann Lee"}
	dir2 := &mockDirectory{}
	dir2.On("Search", mock.Anything, mock.Anything).Return([]model.Customer{a, b}, nil)
	dir2.On("Get", mock.Anything, "a").Return(a, nil)
	res, err = (&Matcher{Directory: dir2}).Match(context.Background(), individual("Ann Lee"))
	require.NoError(t, err)
	require.Equal(t, "a", res.CustomerRef.ID)
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	require.False(t, StateSearching.Terminal())
	for _, s := range []State{StateNewCustomer, StateMatched, StatePendingReview, StateFailed} {
		require.True(t, s.Terminal(), s.String())
	}
	require.Equal(t, "pending_review", StatePendingReview.String())

	at := &attempt{logger: zap.NewNop().Sugar()}
	require.Panics(t, func() { at.advance(StateMatched) })
}
