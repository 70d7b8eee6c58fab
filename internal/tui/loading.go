package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 120 * time.Millisecond

func spinnerFrame() string {
	return spinnerFrames[time.Now().UnixMilli()/spinnerInterval.Milliseconds()%int64(len(spinnerFrames))]
}

// renderLoadingPlaceholder renders an animated loading indicator.
// The frame is selected based on the current time so it animates on re-render.
func renderLoadingPlaceholder(width, height int, label string) string {
	if label == "" {
		label = "Loading..."
	}
	text := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true).
		Render(spinnerFrame() + " " + label)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(_ time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// renderPageError renders a terminal load failure.
func renderPageError(width, height int, message string) string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		errorStyle.Bold(true).Render("Something went wrong"),
		"",
		mutedStyle.Render(message),
		"",
		dimStyle.Render("r: retry"),
	)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorRed).
		Padding(1, 3).
		Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
