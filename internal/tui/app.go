package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/route"
	"github.com/russianllm/ruterm/internal/session"
)

// App is the top-level Bubble Tea model that routes between pages and guards
// protected ones behind the session.
type App struct {
	deps   Deps
	route  route.Route
	page   Page
	width  int
	height int

	// last session version seen through SessionMsg
	sessionVersion uint64
	// version of the session already expired locally
	expiredVersion uint64
	spinning       bool
	noticeTick     bool
}

// NewApp creates the app showing startPath once the session is known.
func NewApp(deps Deps, startPath string) *App {
	deps.defaults()
	if startPath == "" {
		startPath = deps.StartPath
	}
	return &App{deps: deps, route: route.Parse(startPath)}
}

// Route is the route currently shown.
func (a *App) Route() route.Route { return a.route }

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.navigate(a.route.String()), a.ensureSpinner(), a.scheduleExpiry())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.handle(msg)
	if expire := a.checkExpiry(); expire != nil {
		cmd = tea.Batch(cmd, expire)
	}
	return a, cmd
}

func (a *App) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return a.quit()
		}
		if key.Matches(msg, keys.Dismiss) && (msg.String() == "ctrl+x" || !a.capturing()) {
			a.dismissNotice()
			return nil
		}
		if !a.capturing() {
			switch {
			case key.Matches(msg, keys.Quit):
				return a.quit()
			case a.loggedIn() && key.Matches(msg, keys.Logout):
				return a.logout()
			case a.loggedIn() && a.route.Protected() && key.Matches(msg, keys.Exercises):
				return a.navigate(route.PathExercises)
			case a.loggedIn() && a.route.Protected() && key.Matches(msg, keys.Stats):
				return a.navigate(route.PathStats)
			case a.loggedIn() && a.route.Protected() && key.Matches(msg, keys.Vocabulary):
				return a.navigate(route.PathVocabulary)
			}
		}

	case NavigateMsg:
		return a.navigate(msg.Path)

	case SessionMsg:
		if msg.Snapshot.Version <= a.sessionVersion {
			return nil
		}
		a.sessionVersion = msg.Snapshot.Version
		return tea.Batch(a.sessionChanged(), a.scheduleExpiry())

	case SpinnerTickMsg:
		if a.needsSpinner() {
			return spinnerTick()
		}
		a.spinning = false
		return nil

	case sessionExpiryMsg:
		// checked by Update after every message
		return nil

	case noticeTickMsg:
		a.noticeTick = false
		a.deps.Notices.Prune()
		return a.scheduleNoticeTick()
	}

	if a.page == nil {
		return nil
	}
	cmd, nav := a.page.Update(msg)
	cmds := []tea.Cmd{cmd, a.scheduleNoticeTick(), a.ensureSpinner()}
	if nav != nil {
		cmds = append(cmds, a.navigate(nav.Path))
	}
	return tea.Batch(cmds...)
}

func (a *App) View() string {
	width, height := a.width, a.height
	if width == 0 {
		width, height = 80, 24
	}

	snap := a.deps.Session.Snapshot()
	var header []string
	if banner := a.renderBanner(snap, width); banner != "" {
		header = append(header, banner)
	}
	if toasts := renderNotices(a.deps.Notices.Active(), width); toasts != "" {
		header = append(header, toasts)
	}
	bodyHeight := height
	if len(header) > 0 {
		bodyHeight -= lipgloss.Height(strings.Join(header, "\n"))
	}
	bodyHeight = max(bodyHeight, 1)

	var body string
	switch {
	case snap.State == session.StateUnknown || snap.State == session.StateValidating:
		body = renderLoadingPlaceholder(width, bodyHeight, "Checking session...")
	case a.route.Protected() && !snap.LoggedIn(a.deps.Clock.Now()):
		// Never show protected content without a session, even for the frame
		// before the redirect lands.
		body = renderLoadingPlaceholder(width, bodyHeight, "Redirecting to login...")
	case a.page == nil:
		body = renderLoadingPlaceholder(width, bodyHeight, "")
	default:
		body = a.page.View(width, bodyHeight)
	}

	parts := append(header, body)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// navigate resolves path through the session guard and mounts the page.
func (a *App) navigate(path string) tea.Cmd {
	target := route.Parse(path)
	snap := a.deps.Session.Snapshot()

	switch snap.State {
	case session.StateUnknown, session.StateValidating:
		// Decided once the session settles.
		a.unmount()
		a.route = target
		return nil
	}

	loggedIn := snap.LoggedIn(a.deps.Clock.Now())
	switch {
	case target.Name == route.NotFound:
		target = route.Parse(a.deps.StartPath)
		if !loggedIn {
			target = route.Parse(route.PathLogin)
		}
	case target.Protected() && !loggedIn:
		target = route.Parse(route.LoginWithRedirect(target.String()))
	case loggedIn && (target.Name == route.Login || target.Name == route.ForgotPassword):
		target = route.Parse(target.RedirectTarget(a.deps.StartPath))
	}

	if a.page != nil && target.String() == a.route.String() {
		return nil
	}
	a.unmount()
	a.route = target
	a.page = a.buildPage(target)
	if a.page == nil {
		return nil
	}
	return tea.Batch(a.page.Init(), a.ensureSpinner())
}

func (a *App) sessionChanged() tea.Cmd {
	snap := a.deps.Session.Snapshot()
	switch snap.State {
	case session.StateUnknown, session.StateValidating:
		return a.ensureSpinner()
	}
	if a.page == nil || (a.route.Protected() && !snap.LoggedIn(a.deps.Clock.Now())) {
		return a.navigate(a.route.String())
	}
	if a.route.Name == route.Login && snap.LoggedIn(a.deps.Clock.Now()) {
		return a.navigate(a.route.RedirectTarget(a.deps.StartPath))
	}
	return nil
}

func (a *App) buildPage(r route.Route) Page {
	switch r.Name {
	case route.Login:
		return NewLoginPage(a.deps, r)
	case route.ForgotPassword:
		return NewForgotPasswordPage(a.deps)
	case route.PasswordReset:
		return NewPasswordResetPage(a.deps, r.Token())
	case route.Exercises:
		return NewExercisesPage(a.deps)
	case route.ExerciseDetail:
		return NewExerciseDetailPage(r.ID)
	case route.Stats:
		return NewStatsPage(a.deps)
	case route.Vocabulary:
		return NewVocabularyPage(a.deps)
	}
	return nil
}

func (a *App) unmount() {
	if c, ok := a.page.(closer); ok {
		c.Close()
	}
	a.page = nil
}

func (a *App) quit() tea.Cmd {
	a.unmount()
	return tea.Quit
}

func (a *App) logout() tea.Cmd {
	store := a.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Logout(ctx, "")
		return NavigateMsg{Path: route.PathLogin}
	}
}

func (a *App) loggedIn() bool {
	return a.deps.Session.Snapshot().LoggedIn(a.deps.Clock.Now())
}

func (a *App) capturing() bool {
	c, ok := a.page.(capturer)
	return ok && c.Capturing()
}

func (a *App) needsSpinner() bool {
	switch a.deps.Session.Snapshot().State {
	case session.StateUnknown, session.StateValidating:
		return true
	}
	l, ok := a.page.(loader)
	return ok && l.Loading()
}

func (a *App) ensureSpinner() tea.Cmd {
	if a.spinning || !a.needsSpinner() {
		return nil
	}
	a.spinning = true
	return spinnerTick()
}

// checkExpiry ends a session whose expiry passed locally: the store is logged
// out and a protected route moves to login, keeping it as the redirect.
func (a *App) checkExpiry() tea.Cmd {
	snap := a.deps.Session.Snapshot()
	if snap.State != session.StateLoggedIn || snap.LoggedIn(a.deps.Clock.Now()) {
		return nil
	}
	if snap.Version == a.expiredVersion {
		return nil
	}
	a.expiredVersion = snap.Version
	a.deps.Logger.Info("session expired", "route", a.route.String())

	store := a.deps.Session
	cmds := []tea.Cmd{func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.Logout(ctx, "")
		return nil
	}}
	if a.route.Protected() {
		cmds = append(cmds, a.navigate(route.LoginWithRedirect(a.route.String())))
	}
	return tea.Batch(cmds...)
}

// scheduleExpiry wakes the app when the current session runs out.
func (a *App) scheduleExpiry() tea.Cmd {
	snap := a.deps.Session.Snapshot()
	if !snap.LoggedIn(a.deps.Clock.Now()) {
		return nil
	}
	version := snap.Version
	return tea.Tick(snap.ExpiresIn(a.deps.Clock.Now()), func(time.Time) tea.Msg {
		return sessionExpiryMsg{Version: version}
	})
}

func (a *App) dismissNotice() {
	if active := a.deps.Notices.Active(); len(active) > 0 {
		a.deps.Notices.Dismiss(active[0].ID)
	}
}

func (a *App) scheduleNoticeTick() tea.Cmd {
	if a.noticeTick {
		return nil
	}
	next, ok := a.deps.Notices.NextExpiry()
	if !ok {
		return nil
	}
	a.noticeTick = true
	wait := max(next.Sub(a.deps.Clock.Now()), 10*time.Millisecond)
	return tea.Tick(wait, func(time.Time) tea.Msg { return noticeTickMsg{} })
}

func (a *App) renderBanner(snap session.Snapshot, width int) string {
	var parts []string
	if snap.SlowNetwork {
		parts = append(parts, warnStyle.Render("Slow network detected, still trying to reach the server..."))
	}
	if snap.LoggedIn(a.deps.Clock.Now()) && a.route.Protected() {
		nav := dimStyle.Render("e: exercises  s: stats  v: vocabulary  o: log out  q: quit")
		user := mutedStyle.Render(snap.Session.Username)
		gap := max(width-lipgloss.Width(nav)-lipgloss.Width(user)-1, 1)
		parts = append(parts, nav+strings.Repeat(" ", gap)+user)
	}
	return strings.Join(parts, "\n")
}
