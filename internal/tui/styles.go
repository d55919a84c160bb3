package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Background(lipgloss.Color("62")).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectedRow = lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(1, 0, 0)

	statusStyles = map[string]lipgloss.Style{
		"working":         lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		"stuck":           lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		"paused":          lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"complete":        lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
		"shipping":        lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		"cancelled":       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		"deletion_failed": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func statusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
