package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	done    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	active  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	statusStyles = map[string]lipgloss.Style{
		"ready":  done,
		"cached": done,

		"resolved":    active,
		"downloading": active,
		"downloaded":  active,
		"extracting":  active,

		"unverified": warning,

		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		"pending": lipgloss.NewStyle().Faint(true),
	}

	terminal = map[string]bool{"ready": true, "error": true, "unverified": true}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// IsTerminal reports whether a row with status needs no further updates.
func IsTerminal(status string) bool {
	return terminal[status]
}
