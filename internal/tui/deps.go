package tui

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/notice"
	"github.com/russianllm/ruterm/internal/session"
)

// SessionStore is the part of session.Store the screens use.
type SessionStore interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password, redirect string) (model.Session, error)
	Logout(ctx context.Context, redirect string) error
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	API       model.API
	Session   SessionStore
	Fetch     *fetch.Controller
	Notices   *notice.Board
	Clock     clockwork.Clock
	Logger    *slog.Logger
	StartPath string
}

func (d *Deps) defaults() {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notices == nil {
		d.Notices = notice.NewBoard(d.Clock, 0)
	}
	if d.StartPath == "" {
		d.StartPath = model.DefaultStartPath
	}
}
