package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/marker"
	"github.com/russianllm/ruterm/internal/model"
)

type result struct {
	sess model.Session
	err  error
}

// fakeAuth answers each call with the next queued result; calls block until
// a result is queued.
type fakeAuth struct {
	probes  chan result
	logins  chan result
	logouts chan error

	mu         sync.Mutex
	probeCalls int
	creds      [][2]string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		probes:  make(chan result, 8),
		logins:  make(chan result, 8),
		logouts: make(chan error, 8),
	}
}

func (f *fakeAuth) CheckLoginStatus(ctx context.Context) (model.Session, error) {
	f.mu.Lock()
	f.probeCalls++
	f.mu.Unlock()
	select {
	case r := <-f.probes:
		return r.sess, r.err
	case <-ctx.Done():
		return model.Session{}, apierr.FromTransport("check-login-status", ctx.Err())
	}
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (model.Session, error) {
	f.mu.Lock()
	f.creds = append(f.creds, [2]string{email, password})
	f.mu.Unlock()
	select {
	case r := <-f.logins:
		return r.sess, r.err
	case <-ctx.Done():
		return model.Session{}, ctx.Err()
	}
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	select {
	case err := <-f.logouts:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAuth) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeCalls
}

type recordingNav struct {
	mu    sync.Mutex
	paths []string
	store *Store
	seen  []State
}

func (n *recordingNav) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	if n.store != nil {
		n.seen = append(n.seen, n.store.Snapshot().State)
	}
}

func (n *recordingNav) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type fixture struct {
	api    *fakeAuth
	marker *marker.Memory
	nav    *recordingNav
	clock  *clockworkClock
	store  *Store
}

// clockworkClock keeps the fake clock behind the two methods the tests use.
type clockworkClock struct {
	clockwork.Clock
	advance    func(time.Duration)
	blockUntil func(int)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	f := &fixture{
		api:    newFakeAuth(),
		marker: marker.NewMemory(),
		nav:    &recordingNav{},
		clock:  &clockworkClock{Clock: fc, advance: fc.Advance, blockUntil: fc.BlockUntil},
	}
	f.store = New(f.api, f.marker, f.nav, WithClock(fc))
	f.nav.store = f.store
	t.Cleanup(f.store.Close)
	return f
}

func (f *fixture) session(ttl time.Duration) model.Session {
	return model.Session{Username: "test", ExpireAt: f.clock.Now().Add(ttl)}
}

func waitState(t *testing.T, s *Store, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = s.Snapshot()
		return snap.State == want
	}, 2*time.Second, 5*time.Millisecond, "state never became %s", want)
	return snap
}

func storedExpiry(t *testing.T, m marker.Marker) (time.Time, bool) {
	t.Helper()
	at, ok, err := m.Load(context.Background())
	require.NoError(t, err)
	return at, ok
}

func TestStartWithoutMarkerIsLoggedOut(t *testing.T) {
	f := newFixture(t)
	f.store.Start()
	waitState(t, f.store, StateLoggedOut)
	assert.Zero(t, f.api.probeCount())
}

func TestStartWithElapsedMarkerClearsIt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(-time.Minute)))

	f.store.Start()
	waitState(t, f.store, StateLoggedOut)
	_, ok := storedExpiry(t, f.marker)
	assert.False(t, ok)
	assert.Zero(t, f.api.probeCount())
}

func TestStartProbeSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(time.Minute)))
	fresh := f.session(time.Hour)
	f.api.probes <- result{sess: fresh}

	f.store.Start()
	snap := waitState(t, f.store, StateLoggedIn)
	assert.Equal(t, "test", snap.Session.Username)
	assert.Equal(t, time.Hour, snap.ExpiresIn(f.clock.Now()))

	at, ok := storedExpiry(t, f.marker)
	assert.True(t, ok)
	assert.True(t, at.Equal(fresh.ExpireAt), "probe refreshes the persisted expiry")
}

func TestStartProbeUnauthorizedClearsMarker(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(time.Minute)))
	f.api.probes <- result{err: apierr.Unauthorized("check-login-status")}

	f.store.Start()
	waitState(t, f.store, StateLoggedOut)
	_, ok := storedExpiry(t, f.marker)
	assert.False(t, ok)
}

func TestStartProbeServerErrorLogsOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(time.Minute)))
	f.api.probes <- result{err: apierr.Server("check-login-status", 500, "")}

	f.store.Start()
	waitState(t, f.store, StateLoggedOut)
}

func TestProbeRetriesNetworkErrorsAndFlagsSlowNetwork(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(time.Hour)))
	netErr := apierr.Network("check-login-status", errors.New("connection refused"))
	for i := 0; i < 5; i++ {
		f.api.probes <- result{err: netErr}
	}

	f.store.Start()
	waitState(t, f.store, StateValidating)

	// Slow-network timer plus one probe retry timer per round.
	for round := 1; round <= 5; round++ {
		f.clock.blockUntil(2)
		assert.Equal(t, round, f.api.probeCount())
		snap := f.store.Snapshot()
		assert.Equal(t, StateValidating, snap.State)
		assert.False(t, snap.SlowNetwork, "round %d", round)
		if round == 5 {
			break
		}
		f.clock.advance(2 * time.Second)
	}

	// 10s have passed on the fake clock.
	f.clock.advance(2 * time.Second)
	require.Eventually(t, func() bool { return f.store.Snapshot().SlowNetwork }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateValidating, f.store.Snapshot().State)

	f.api.probes <- result{sess: f.session(time.Hour)}
	snap := waitState(t, f.store, StateLoggedIn)
	assert.False(t, snap.SlowNetwork)
}

func TestLoginSuccessPersistsAndRedirects(t *testing.T) {
	f := newFixture(t)
	f.api.logins <- result{sess: f.session(time.Hour)}

	sess, err := f.store.Login(context.Background(), "test@test.com", "password", "/stats")
	require.NoError(t, err)
	assert.Equal(t, "test", sess.Username)

	snap := f.store.Snapshot()
	assert.Equal(t, StateLoggedIn, snap.State)
	assert.False(t, snap.Busy)
	assert.Equal(t, []string{"/stats"}, f.nav.visited())

	at, ok := storedExpiry(t, f.marker)
	assert.True(t, ok)
	assert.True(t, at.Equal(sess.ExpireAt))
}

func TestLoginWithoutRedirectDoesNotNavigate(t *testing.T) {
	f := newFixture(t)
	f.api.logins <- result{sess: f.session(time.Hour)}
	_, err := f.store.Login(context.Background(), "test@test.com", "password", "")
	require.NoError(t, err)
	assert.Empty(t, f.nav.visited())
}

func TestLoginFailureReturnsClassifiedError(t *testing.T) {
	f := newFixture(t)
	f.api.logins <- result{err: apierr.Validation("login", "Invalid email or password")}

	_, err := f.store.Login(context.Background(), "x@y.z", "nope", "/stats")
	assert.True(t, apierr.IsValidation(err))

	snap := f.store.Snapshot()
	assert.Equal(t, StateLoggedOut, snap.State)
	assert.False(t, snap.Busy)
	assert.Empty(t, f.nav.visited())
	_, ok := storedExpiry(t, f.marker)
	assert.False(t, ok)
}

func TestLogoutCommitsBeforeNavigating(t *testing.T) {
	f := newFixture(t)
	f.api.logins <- result{sess: f.session(time.Hour)}
	_, err := f.store.Login(context.Background(), "test@test.com", "password", "")
	require.NoError(t, err)

	f.api.logouts <- nil
	require.NoError(t, f.store.Logout(context.Background(), "/vocabulary"))

	assert.Equal(t, []string{"/login?redirect=%2Fvocabulary"}, f.nav.visited())
	assert.Equal(t, []State{StateLoggedOut}, f.nav.seen, "navigation must observe the logged-out state")
	_, ok := storedExpiry(t, f.marker)
	assert.False(t, ok)
}

func TestLogoutIgnoresServerFailure(t *testing.T) {
	f := newFixture(t)
	f.api.logins <- result{sess: f.session(time.Hour)}
	_, err := f.store.Login(context.Background(), "test@test.com", "password", "")
	require.NoError(t, err)

	f.api.logouts <- apierr.Server("logout", 500, "")
	require.NoError(t, f.store.Logout(context.Background(), ""))
	assert.Equal(t, StateLoggedOut, f.store.Snapshot().State)
	assert.Empty(t, f.nav.visited())
}

func TestSlowLoginCannotOverrideLaterLogout(t *testing.T) {
	f := newFixture(t)

	loginDone := make(chan error, 1)
	go func() {
		_, err := f.store.Login(context.Background(), "test@test.com", "password", "/stats")
		loginDone <- err
	}()
	require.Eventually(t, func() bool { return f.store.Snapshot().Busy }, time.Second, 5*time.Millisecond)

	f.api.logouts <- nil
	require.NoError(t, f.store.Logout(context.Background(), ""))

	f.api.logins <- result{sess: f.session(time.Hour)}
	assert.ErrorIs(t, <-loginDone, ErrSuperseded)

	assert.Equal(t, StateLoggedOut, f.store.Snapshot().State)
	assert.Empty(t, f.nav.visited())
	_, ok := storedExpiry(t, f.marker)
	assert.False(t, ok, "a superseded login must not persist its expiry")
}

func TestSlowLogoutCannotOverrideLaterLogin(t *testing.T) {
	f := newFixture(t)

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- f.store.Logout(context.Background(), "/stats") }()
	require.Eventually(t, func() bool { return f.store.Snapshot().Busy }, time.Second, 5*time.Millisecond)

	f.api.logins <- result{sess: f.session(time.Hour)}
	_, err := f.store.Login(context.Background(), "test@test.com", "password", "")
	require.NoError(t, err)

	f.api.logouts <- nil
	assert.ErrorIs(t, <-logoutDone, ErrSuperseded)
	assert.Equal(t, StateLoggedIn, f.store.Snapshot().State)
	assert.Empty(t, f.nav.visited())
}

func TestLoginSupersedesProbe(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.marker.Save(context.Background(), f.clock.Now().Add(time.Minute)))
	f.store.Start()
	waitState(t, f.store, StateValidating)

	f.api.logins <- result{sess: f.session(time.Hour)}
	_, err := f.store.Login(context.Background(), "test@test.com", "password", "")
	require.NoError(t, err)

	f.api.probes <- result{err: apierr.Unauthorized("check-login-status")}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateLoggedIn, f.store.Snapshot().State)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	f := newFixture(t)
	var mu sync.Mutex
	var states []State
	require.NoError(t, f.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	}))

	f.store.Start()
	waitState(t, f.store, StateLoggedOut)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []State{StateLoggedOut}, states)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	f := newFixture(t)
	f.store.Close()
	_, err := f.store.Login(context.Background(), "a", "b", "")
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.ErrorIs(t, f.store.Logout(context.Background(), ""), ErrSuperseded)
}
