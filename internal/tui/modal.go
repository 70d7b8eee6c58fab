package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// renderModal renders a centered box with a scrollable body.
func renderModal(vp *viewport.Model, title, content string, hints []string, width, height int) string {
	modalWidth := max(min(width-8, 72), 20)
	modalHeight := max(height-6, 6)

	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	vp.Width = contentWidth
	vp.Height = contentHeight
	vp.SetContent(content)

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorBlue).
		Bold(true).
		Render(title)

	modal := lipgloss.JoinVertical(lipgloss.Left, header, "", vp.View(), renderModalStatusBar(hints))

	box := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func renderModalStatusBar(items []string) string {
	return lipgloss.NewStyle().Foreground(ColorGray).Render(strings.Join(items, " | "))
}

// scrollModal applies paging keys to a modal viewport.
func scrollModal(vp *viewport.Model, msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, keys.Down):
		vp.ScrollDown(1)
	case msg.String() == "pgup":
		vp.HalfPageUp()
	case msg.String() == "pgdown":
		vp.HalfPageDown()
	}
}
