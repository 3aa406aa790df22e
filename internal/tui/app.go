package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/donormatch/internal/model"
)

// Reviewer records a decision on a pending record.
type Reviewer interface {
	Decide(ctx context.Context, batchID, recordID string, approve bool) (model.EnrichedRecord, error)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5c2e7"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#b4befe")).Bold(true)
)

type recordItem struct {
	rec model.EnrichedRecord
}

func (i recordItem) Title() string {
	name := i.rec.PayerInfo.FullName
	if name == "" {
		name = "(no payer)"
	}
	return fmt.Sprintf("%s  $%s  #%s", name, i.rec.PaymentInfo.Amount, i.rec.PaymentInfo.CheckNo)
}

func (i recordItem) Description() string {
	ref := i.rec.PayerInfo.CustomerRef
	switch {
	case ref.ID != "":
		return fmt.Sprintf("%s (%s) score %.1f", ref.DisplayName, ref.ID, i.rec.MatchScore)
	case i.rec.MatchStatus == model.StatusNewCustomer:
		return fmt.Sprintf("new customer, best score %.1f", i.rec.MatchScore)
	}
	return "no match attempted"
}

func (i recordItem) FilterValue() string { return i.rec.PayerInfo.FullName }

func statusLabel(s model.MatchStatus) string {
	switch s {
	case model.StatusPendingReview:
		return pendingStyle.Render("PENDING")
	case model.StatusMatched:
		return matchedStyle.Render("MATCHED")
	case model.StatusNewCustomer:
		return newStyle.Render("NEW    ")
	}
	return errorStyle.Render("FAILED ")
}

type recordDelegate struct{}

func (recordDelegate) Height() int                             { return 2 }
func (recordDelegate) Spacing() int                            { return 0 }
func (recordDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (recordDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(recordItem)
	if !ok {
		return
	}
	cursor := "  "
	title := it.Title()
	if index == m.Index() {
		cursor = cursorStyle.Render("> ")
		title = cursorStyle.Render(title)
	}
	fmt.Fprintf(w, "%s%s %s\n    %s", cursor, statusLabel(it.rec.MatchStatus), title, dimStyle.Render(it.Description()))
}

type decidedMsg struct {
	rec model.EnrichedRecord
}

type errMsg struct{ error }

// App is the batch review screen.
type App struct {
	ctx      context.Context
	batchID  string
	reviewer Reviewer
	list     list.Model
	status   string
}

func New(ctx context.Context, batchID string, records []model.EnrichedRecord, reviewer Reviewer) *App {
	items := make([]list.Item, 0, len(records))
	for _, r := range records {
		items = append(items, recordItem{rec: r})
	}
	lst := list.New(items, recordDelegate{}, 80, 20)
	lst.SetShowTitle(false)
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	return &App{ctx: ctx, batchID: batchID, reviewer: reviewer, list: lst}
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.list.SetSize(m.Width, max(4, m.Height-4))
		return a, nil
	case tea.KeyMsg:
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "a":
			return a, a.decide(true)
		case "r":
			return a, a.decide(false)
		}
	case decidedMsg:
		for i, item := range a.list.Items() {
			if it, ok := item.(recordItem); ok && it.rec.ID == m.rec.ID {
				a.list.SetItem(i, recordItem{rec: m.rec})
				break
			}
		}
		a.status = fmt.Sprintf("%s -> %s", m.rec.PayerInfo.FullName, m.rec.MatchStatus)
		return a, nil
	case errMsg:
		a.status = "error: " + m.Error()
		return a, nil
	}
	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) decide(approve bool) tea.Cmd {
	it, ok := a.list.SelectedItem().(recordItem)
	if !ok {
		return nil
	}
	if it.rec.MatchStatus != model.StatusPendingReview {
		a.status = "only pending records can be decided"
		return nil
	}
	id := it.rec.ID
	return func() tea.Msg {
		rec, err := a.reviewer.Decide(a.ctx, a.batchID, id, approve)
		if err != nil {
			return errMsg{err}
		}
		return decidedMsg{rec: rec}
	}
}

// Pending counts records still awaiting a decision.
func (a *App) Pending() int {
	n := 0
	for _, item := range a.list.Items() {
		if it, ok := item.(recordItem); ok && it.rec.MatchStatus == model.StatusPendingReview {
			n++
		}
	}
	return n
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Batch %s", a.batchID)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d records, %d pending", len(a.list.Items()), a.Pending())))
	b.WriteString("\n\n")
	b.WriteString(a.list.View())
	b.WriteString("\n")
	if a.status != "" {
		b.WriteString(a.status + "\n")
	}
	b.WriteString(dimStyle.Render("a approve  r reject  j/k move  q quit"))
	return b.String()
}
