package tui

import (
	"github.com/russianllm/ruterm/internal/session"
)

// NavigateMsg asks the app to show path.
type NavigateMsg struct {
	Path string
}

// SessionMsg carries a session state change.
type SessionMsg struct {
	Snapshot session.Snapshot
}

// FetchMsg reports that the resource key has a new committed state. Pages
// read the state from the controller.
type FetchMsg struct {
	Key string
}

// SpinnerTickMsg triggers a re-render for loading spinners.
type SpinnerTickMsg struct{}

// sessionExpiryMsg fires when the session of Version is due to expire.
type sessionExpiryMsg struct {
	Version uint64
}

// noticeTickMsg prunes expired notices.
type noticeTickMsg struct{}
