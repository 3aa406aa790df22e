package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/donormatch/internal/model"
)

type fakeReviewer struct {
	calls []bool
	err   error
}

func (f *fakeReviewer) Decide(_ context.Context, _, recordID string, approve bool) (model.EnrichedRecord, error) {
	f.calls = append(f.calls, approve)
	if f.err != nil {
		return model.EnrichedRecord{}, f.err
	}
	status := model.StatusNewCustomer
	if approve {
		status = model.StatusMatched
	}
	return model.EnrichedRecord{ID: recordID, MatchStatus: status, PayerInfo: model.PayerInfo{FullName: "Ann Lee"}}, nil
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func records() []model.EnrichedRecord {
	return []model.EnrichedRecord{
		{ID: "r1", MatchStatus: model.StatusPendingReview, MatchScore: 65, PayerInfo: model.PayerInfo{FullName: "Ann Lee"}},
		{ID: "r2", MatchStatus: model.StatusMatched, MatchScore: 100, PayerInfo: model.PayerInfo{FullName: "Smith Foundation"}},
	}
}

func TestApproveUpdatesItem(t *testing.T) {
	t.Parallel()

	rv := &fakeReviewer{}
	app := New(context.Background(), "b1", records(), rv)
	require.Equal(t, 1, app.Pending())
	require.Contains(t, app.View(), "Ann Lee")

	_, cmd := app.Update(key('a'))
	require.NotNil(t, cmd)
	msg := cmd()
	_, _ = app.Update(msg)

	require.Equal(t, []bool{true}, rv.calls)
	require.Equal(t, 0, app.Pending())
	require.Contains(t, app.View(), "Ann Lee -> matched")
}

func TestRejectOnlyPending(t *testing.T) {
	t.Parallel()

	rv := &fakeReviewer{}
	app := New(context.Background(), "b1", records(), rv)

	_, _ = app.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := app.Update(key('r'))
	require.Nil(t, cmd)
	require.Empty(t, rv.calls)
	require.Contains(t, app.View(), "only pending records")
}

func TestDecisionError(t *testing.T) {
	t.Parallel()

	rv := &fakeReviewer{err: errors.New("db locked")}
	app := New(context.Background(), "b1", records(), rv)
	_, cmd := app.Update(key('r'))
	_, _ = app.Update(cmd())
	require.Equal(t, 1, app.Pending())
	require.Contains(t, app.View(), "error: db locked")
}

func TestQuit(t *testing.T) {
	t.Parallel()

	app := New(context.Background(), "b1", nil, &fakeReviewer{})
	_, cmd := app.Update(key('q'))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
