package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relayforge/orchestra/internal/events"
	"github.com/relayforge/orchestra/internal/repo"
)

// Run launches the terminal dashboard as a blocking bubbletea program,
// mirroring the `tea.NewProgram(...).Run()` entrypoint idiom `orc dashboard
// --tui` uses in place of the HTTP dashboard's ListenAndServe.
func Run(repos *repo.Service, publisher events.Publisher) error {
	m := New(repos, publisher)
	defer publisher.Unsubscribe(events.GlobalSessionID, m.eventCh)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal dashboard: %w", err)
	}
	return nil
}
