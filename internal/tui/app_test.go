package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
	"github.com/russianllm/ruterm/internal/session"
)

func TestProtectedRouteRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedOut)
	app := NewApp(env.deps, route.PathStats)
	app.Init()

	if got := app.Route().String(); got != "/login?redirect=%2Fstats" {
		t.Fatalf("route = %q", got)
	}
	if _, ok := app.page.(*LoginPage); !ok {
		t.Fatalf("page = %T, want *LoginPage", app.page)
	}
}

func TestValidatingSessionShowsPlaceholder(t *testing.T) {
	env := newTestEnv(t, session.StateValidating)
	app := NewApp(env.deps, route.PathStats)
	app.Init()

	if app.page != nil {
		t.Fatalf("page mounted while validating: %T", app.page)
	}
	if view := app.View(); !strings.Contains(view, "Checking session...") {
		t.Fatalf("view missing placeholder:\n%s", view)
	}
}

func TestSettledSessionMountsPendingRoute(t *testing.T) {
	env := newTestEnv(t, session.StateValidating)
	app := NewApp(env.deps, route.PathStats)
	app.Init()

	snap := env.session.set(session.StateLoggedIn, "testuser", env.clock.Now())
	app.Update(SessionMsg{Snapshot: snap})

	if got := app.Route().String(); got != route.PathStats {
		t.Fatalf("route = %q", got)
	}
	if _, ok := app.page.(*StatsPage); !ok {
		t.Fatalf("page = %T, want *StatsPage", app.page)
	}
}

func TestStaleSessionMessageIgnored(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathExercises)
	app.Init()

	fresh := env.session.set(session.StateLoggedIn, "testuser", env.clock.Now())
	app.Update(SessionMsg{Snapshot: fresh})
	stale := fresh
	stale.Version--
	stale.State = session.StateLoggedOut
	app.Update(SessionMsg{Snapshot: stale})

	if got := app.Route().String(); got != route.PathExercises {
		t.Fatalf("route = %q", got)
	}
}

func TestLogoutEventRedirectsWithOrigin(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathVocabulary)
	app.Init()

	snap := env.session.set(session.StateLoggedOut, "", env.clock.Now())
	app.Update(SessionMsg{Snapshot: snap})

	if got := app.Route().String(); got != "/login?redirect=%2Fvocabulary" {
		t.Fatalf("route = %q", got)
	}
}

func TestProtectedContentHiddenWithoutSession(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathStats)
	app.Init()

	// session ends before the app hears about it
	env.session.set(session.StateLoggedOut, "", env.clock.Now())
	view := app.View()
	if !strings.Contains(view, "Redirecting to login...") {
		t.Fatalf("view:\n%s", view)
	}
	if strings.Contains(view, "Language Skills") {
		t.Fatalf("protected content rendered:\n%s", view)
	}
}

func TestLoggedInLoginRouteGoesToRedirect(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, "/login?redirect=%2Fvocabulary")
	app.Init()

	if got := app.Route().String(); got != route.PathVocabulary {
		t.Fatalf("route = %q", got)
	}
}

func TestLoggedInLoginRouteIgnoresUnsafeRedirect(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, "/login?redirect=https%3A%2F%2Fevil.example")
	app.Init()

	if got := app.Route().String(); got != route.PathExercises {
		t.Fatalf("route = %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		want  string
	}{
		{"logged in", session.StateLoggedIn, route.PathExercises},
		{"logged out", session.StateLoggedOut, route.PathLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.state)
			app := NewApp(env.deps, "/nowhere")
			app.Init()
			if got := app.Route().String(); got != tt.want {
				t.Fatalf("route = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNavigationKeysOnlyWhenLoggedIn(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathExercises)
	app.Init()

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	if got := app.Route().String(); got != route.PathVocabulary {
		t.Fatalf("route = %q", got)
	}

	out := newTestEnv(t, session.StateLoggedOut)
	login := NewApp(out.deps, route.PathLogin)
	login.Init()
	login.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if got := login.Route().String(); got != route.PathLogin {
		t.Fatalf("route = %q", got)
	}
}

func TestUnmountCancelsPageFetch(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	env.api.stats = func() (model.StatsResponse, error) {
		<-block
		return model.StatsResponse{}, nil
	}
	app := NewApp(env.deps, route.PathStats)
	app.Init()
	waitFetch(t, env.fetch, statsKey, hasStatus(fetch.StatusLoading))

	app.Update(NavigateMsg{Path: route.PathExercises})

	s, _ := env.fetch.Snapshot(statsKey)
	if s.Status != fetch.StatusIdle {
		t.Fatalf("stats status = %v after leaving page", s.Status)
	}
}

func TestExpiredSessionLeavesProtectedRoute(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathStats)
	app.Init()
	if _, ok := app.page.(*StatsPage); !ok {
		t.Fatalf("page = %T, want *StatsPage", app.page)
	}

	env.clock.Advance(2 * time.Hour)
	app.Update(sessionExpiryMsg{Version: env.session.Snapshot().Version})

	if got := app.Route().String(); got != "/login?redirect=%2Fstats" {
		t.Fatalf("route = %q", got)
	}
	if _, ok := app.page.(*LoginPage); !ok {
		t.Fatalf("page = %T, want *LoginPage", app.page)
	}
}

func TestExpiryNoticedOnAnyMessage(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathVocabulary)
	app.Init()

	// the expiry timer never fired, e.g. after a suspend
	env.clock.Advance(2 * time.Hour)
	app.Update(SpinnerTickMsg{})

	if got := app.Route().String(); got != "/login?redirect=%2Fvocabulary" {
		t.Fatalf("route = %q", got)
	}
	// navigation keys no longer apply
	app.Update(runeKey("s"))
	if got := app.Route().String(); got != "/login?redirect=%2Fvocabulary" {
		t.Fatalf("route after key = %q", got)
	}
}

func TestDismissKeyDropsNewestNotice(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	app := NewApp(env.deps, route.PathExercises)
	app.Init()

	env.deps.Notices.Error("older", "Older", "first")
	env.deps.Notices.Error("newer", "Newer", "second")
	if view := app.View(); !strings.Contains(view, "ctrl+x: dismiss") {
		t.Fatalf("view missing dismiss hint:\n%s", view)
	}

	app.Update(runeKey("x"))
	active := env.deps.Notices.Active()
	if len(active) != 1 || active[0].ID != "older" {
		t.Fatalf("active = %+v", active)
	}
	app.Update(runeKey("x"))
	if n := env.deps.Notices.Len(); n != 0 {
		t.Fatalf("notices = %d", n)
	}
}

func TestDismissWhileTyping(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedOut)
	app := NewApp(env.deps, route.PathLogin)
	app.Init()
	env.deps.Notices.Error("login", "Login failed", "Invalid credentials")

	// plain x goes to the focused input
	app.Update(runeKey("x"))
	if n := env.deps.Notices.Len(); n != 1 {
		t.Fatalf("notices = %d after typing", n)
	}
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	if n := env.deps.Notices.Len(); n != 0 {
		t.Fatalf("notices = %d after ctrl+x", n)
	}
}

func TestConfiguredStartPath(t *testing.T) {
	env := newTestEnv(t, session.StateLoggedIn)
	env.deps.StartPath = route.PathStats

	app := NewApp(env.deps, route.PathLogin)
	app.Init()
	if got := app.Route().String(); got != route.PathStats {
		t.Fatalf("route = %q", got)
	}

	app.Update(NavigateMsg{Path: "/nowhere"})
	if got := app.Route().String(); got != route.PathStats {
		t.Fatalf("unknown route went to %q", got)
	}
}
