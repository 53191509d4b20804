package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6B7785")
	warning = lipgloss.Color("#FFC107")
	info    = lipgloss.Color("#2196F3")
)

// Styles groups the lipgloss styles of the chat screen.
type Styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Notice    lipgloss.Style
	Panel     lipgloss.Style
	PanelHead lipgloss.Style
	Muted     lipgloss.Style
	Input     lipgloss.Style
	Footer    lipgloss.Style
}

// DefaultStyles returns the styles used by the chat screen.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1),
		User:      lipgloss.NewStyle().Bold(true).Foreground(info),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(primary),
		Notice:    lipgloss.NewStyle().Foreground(warning),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		PanelHead: lipgloss.NewStyle().Bold(true).Underline(true),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
	}
}
