package tui

import tea "github.com/charmbracelet/bubbletea"

// Page is one screen of the client.
type Page interface {
	ID() string
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Cmd, *PageNav)
	View(width, height int) string
}

// PageNav is returned from Update to request navigation.
type PageNav struct {
	Path string
}

// navTo is shorthand for a navigation request.
func navTo(path string) *PageNav { return &PageNav{Path: path} }

// closer is implemented by pages that own background work.
type closer interface {
	Close()
}

// capturer is implemented by pages with focused text input, which swallow
// the single-letter global shortcuts.
type capturer interface {
	Capturing() bool
}

// loader is implemented by pages that may be waiting on data.
type loader interface {
	Loading() bool
}
