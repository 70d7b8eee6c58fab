package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBlue   = lipgloss.Color("39")
	ColorGreen  = lipgloss.Color("42")
	ColorOrange = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
	ColorGray   = lipgloss.Color("244")
	ColorDim    = lipgloss.Color("240")
	ColorWhite  = lipgloss.Color("255")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorGray)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	errorStyle = lipgloss.NewStyle().Foreground(ColorRed)
	okStyle    = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorOrange)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite).Background(ColorBlue)
	lockedStyle   = lipgloss.NewStyle().Foreground(ColorDim).Strikethrough(true)

	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Padding(1, 2).
			Width(56)

	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorOrange)
)

// masteryBar renders mastery on the 0..MaxMastery scale as filled blocks.
func masteryBar(mastery, max int) string {
	if mastery < 0 {
		mastery = 0
	}
	if mastery > max {
		mastery = max
	}
	filled := lipgloss.NewStyle().Foreground(ColorGreen).Render(strings.Repeat("■", mastery))
	empty := dimStyle.Render(strings.Repeat("□", max-mastery))
	return filled + empty
}
