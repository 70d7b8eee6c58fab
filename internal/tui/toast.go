package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/notice"
)

const maxVisibleNotices = 3

func noticeColor(k notice.Kind) lipgloss.Color {
	switch k {
	case notice.KindError:
		return ColorRed
	case notice.KindWarning:
		return ColorOrange
	case notice.KindSuccess:
		return ColorGreen
	default:
		return ColorBlue
	}
}

// renderNotices stacks the newest notices at the right edge.
func renderNotices(active []notice.Notice, width int) string {
	if len(active) == 0 {
		return ""
	}
	if len(active) > maxVisibleNotices {
		active = active[:maxVisibleNotices]
	}
	boxWidth := min(48, max(width-4, 10))
	boxes := make([]string, 0, len(active))
	for _, n := range active {
		color := noticeColor(n.Kind)
		content := lipgloss.NewStyle().Bold(true).Foreground(color).Render(n.Title)
		if n.Content != "" {
			content += "\n" + n.Content
		}
		boxes = append(boxes, lipgloss.NewStyle().
			Width(boxWidth).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Padding(0, 1).
			Render(content))
	}
	boxes = append(boxes, dimStyle.Render("ctrl+x: dismiss"))
	stack := lipgloss.JoinVertical(lipgloss.Right, boxes...)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
