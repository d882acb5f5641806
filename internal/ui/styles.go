// Package ui renders indexing progress and search results: a bubbletea TUI
// when stdout is a terminal, a plain line writer otherwise.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: single teal accent.
const (
	colorAccent    = "43"  // teal
	colorAccentDim = "30"  // dimmed teal
	colorWhite     = "255" // headers
	colorGray      = "245" // secondary text
	colorDarkGray  = "238" // separators
	colorRed       = "196" // errors
	colorYellow    = "220" // warnings
)

// Styles holds the lipgloss styles used by both renderers.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Path    lipgloss.Style
	Score   lipgloss.Style
}

// DefaultStyles returns the styled components.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Path:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccentDim)),
	}
}
