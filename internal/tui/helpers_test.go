package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/logging"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/notice"
	"github.com/russianllm/ruterm/internal/session"
)

// stubAPI serves canned content. Unset handlers return zero values.
type stubAPI struct {
	exercises func() (model.ExercisesResponse, error)
	stats     func() (model.StatsResponse, error)
	words     func(page int) (model.WordsPage, error)

	mu            sync.Mutex
	validateToken func(token string) error
}

func (a *stubAPI) setValidateToken(fn func(token string) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validateToken = fn
}

func (a *stubAPI) CheckLoginStatus(context.Context) (model.Session, error) {
	return model.Session{}, nil
}

func (a *stubAPI) Login(context.Context, string, string) (model.Session, error) {
	return model.Session{}, nil
}

func (a *stubAPI) Logout(context.Context) error                 { return nil }
func (a *stubAPI) ForgotPassword(context.Context, string) error { return nil }

func (a *stubAPI) ValidateResetToken(_ context.Context, token string) error {
	a.mu.Lock()
	fn := a.validateToken
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(token)
}

func (a *stubAPI) ResetPassword(context.Context, model.ResetPasswordRequest) error {
	return nil
}

func (a *stubAPI) Exercises(context.Context) (model.ExercisesResponse, error) {
	if a.exercises == nil {
		return model.ExercisesResponse{}, nil
	}
	return a.exercises()
}

func (a *stubAPI) Stats(context.Context) (model.StatsResponse, error) {
	if a.stats == nil {
		return model.StatsResponse{}, nil
	}
	return a.stats()
}

func (a *stubAPI) Words(_ context.Context, page int) (model.WordsPage, error) {
	if a.words == nil {
		return model.WordsPage{}, nil
	}
	return a.words(page)
}

// stubSession is a SessionStore with a settable snapshot.
type stubSession struct {
	mu      sync.Mutex
	snap    session.Snapshot
	logins  int
	logouts []string
	loginFn func() (model.Session, error)
}

func (s *stubSession) Snapshot() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *stubSession) set(state session.State, username string, now time.Time) session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Version++
	s.snap.State = state
	s.snap.Session = model.Session{}
	if state == session.StateLoggedIn {
		s.snap.Session = model.Session{Username: username, ExpireAt: now.Add(time.Hour)}
	}
	return s.snap
}

func (s *stubSession) Login(context.Context, string, string, string) (model.Session, error) {
	s.mu.Lock()
	s.logins++
	fn := s.loginFn
	s.mu.Unlock()
	if fn == nil {
		return model.Session{}, nil
	}
	return fn()
}

func (s *stubSession) Logout(_ context.Context, redirect string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts = append(s.logouts, redirect)
	return nil
}

type testEnv struct {
	api     *stubAPI
	session *stubSession
	fetch   *fetch.Controller
	clock   testClock
	deps    Deps
}

type testClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func newTestEnv(t *testing.T, state session.State) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	env := &testEnv{api: &stubAPI{}, session: &stubSession{}, clock: clock}
	env.session.set(state, "testuser", clock.Now())
	env.fetch = fetch.New(env.session, fetch.WithClock(clock), fetch.WithLogger(logging.Discard()))
	t.Cleanup(env.fetch.Close)
	env.deps = Deps{
		API:     env.api,
		Session: env.session,
		Fetch:   env.fetch,
		Notices: notice.NewBoard(clock, 0),
		Clock:   clock,
		Logger:  logging.Discard(),
	}
	return env
}

// waitFetch polls the controller until key satisfies cond.
func waitFetch(t *testing.T, c *fetch.Controller, key string, cond func(fetch.Snapshot) bool) fetch.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, ok := c.Snapshot(key)
		if ok && cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting on %q, last state %+v", key, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func hasStatus(status fetch.Status) func(fetch.Snapshot) bool {
	return func(s fetch.Snapshot) bool { return s.Status == status }
}
