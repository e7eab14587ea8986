// Package tui is a demo BridgeClient (github.com/nbusch/reconcile/pkg/recon)
// that renders Text/Button/Box/List views with lipgloss and bubbles/list,
// and drives the whole thing through a single bubbletea program.
package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette every view style pulls from, the same shape
// as the teacher's Theme (pkg/bubbly/theme.go), narrowed to the colors this
// bridge's four view types actually use.
type Theme struct {
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme mirrors the teacher's DefaultTheme color choices.
var DefaultTheme = Theme{
	Primary:    lipgloss.Color("35"),
	Muted:      lipgloss.Color("240"),
	Background: lipgloss.Color("236"),
	Border:     lipgloss.Color("99"),
}
