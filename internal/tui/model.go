// Package tui implements the terminal dashboard (component O): a bubbletea
// alternative to the HTTP dashboard, subscribing to the in-process event
// publisher directly rather than the network push channel, for use when the
// orchestrator and dashboard share a process (`orc dashboard --tui`).
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/repo"
	"github.com/relayforge/orchestra/internal/session"
)

// Model is the root bubbletea model, following the Model/Update/View split
// sibling example repo zjrosen-perles uses for its own root application
// model (internal/app/app.go), trimmed to this dashboard's single session
// list view rather than that repo's mode-switching kanban/search/dashboard
// stack.
type Model struct {
	repos     *repo.Service
	publisher events.Publisher
	eventCh   <-chan events.Event
	keys      keyMap

	records  []*session.Record
	selected int
	width    int
	height   int
	err      error
	quitting bool
}

// New constructs the dashboard model. The publisher must be the same
// in-process instance the orchestrator's session services publish to.
func New(repos *repo.Service, publisher events.Publisher) Model {
	return Model{
		repos:     repos,
		publisher: publisher,
		eventCh:   publisher.Subscribe(events.GlobalSessionID),
		keys:      defaultKeys,
	}
}

type sessionsMsg []*session.Record
type eventMsg events.Event
type errMsg struct{ err error }

func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.repos), listenCmd(m.eventCh))
}

func refreshCmd(repos *repo.Service) tea.Cmd {
	return func() tea.Msg {
		records, err := repos.ListAll(context.Background(), session.ListOptions{})
		if err != nil {
			return errMsg{err}
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].RepoID != records[j].RepoID {
				return records[i].RepoID < records[j].RepoID
			}
			return records[i].ID < records[j].ID
		})
		return sessionsMsg(records)
	}
}

func listenCmd(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case sessionsMsg:
		m.records = msg
		if m.selected >= len(m.records) {
			m.selected = len(m.records) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		return m, nil

	case eventMsg:
		return m, tea.Batch(refreshCmd(m.repos), listenCmd(m.eventCh))

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.records)-1 {
				m.selected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, refreshCmd(m.repos)
		case key.Matches(msg, m.keys.Pause):
			return m, m.transition(session.StatusPaused)
		case key.Matches(msg, m.keys.Resume):
			return m, m.transition(session.StatusWorking)
		}
	}
	return m, nil
}

// transition issues a pause/resume for the selected session through its
// repo's session.Service, re-using Pause/Resume rather than Update directly
// so the no-op/already-there semantics in §4.2 apply here too.
func (m Model) transition(target session.Status) tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.records) {
		return nil
	}
	record := m.records[m.selected]
	entry := m.repos.Get(record.RepoID)
	if entry == nil {
		return nil
	}
	return func() tea.Msg {
		var err error
		if target == session.StatusPaused {
			_, err = entry.Service.Pause(context.Background(), record.ID)
		} else {
			_, err = entry.Service.Resume(context.Background(), record.ID)
		}
		if err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-6s %-12s %-40s", "REPO", "ID", "STATUS", "TITLE")))
	b.WriteString("\n")

	for i, r := range m.records {
		line := fmt.Sprintf("%-8s %-6s %-12s %-40s", r.RepoID, r.ID, statusStyle(string(r.Status)).Render(string(r.Status)), truncate(r.Issue.Title, 40))
		if i == m.selected {
			line = selectedRow.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.records) == 0 {
		b.WriteString(dimStyle.Render("no sessions"))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(statusStyle("stuck").Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render("↑/↓ move · p pause · r resume · R refresh · q quit"))
	return lipgloss.NewStyle().Width(m.width).Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
