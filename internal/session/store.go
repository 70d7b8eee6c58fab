// Package session owns the client's authentication state.
//
// The Store moves through Unknown -> Validating -> {LoggedIn, LoggedOut}.
// Every operation takes a fresh token before it blocks; its result is applied
// only while that token is still the latest one, so a slow login can never
// overwrite a later logout and the other way round.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/jonboulle/clockwork"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/marker"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

// TopicChanged is published with a Snapshot after every state change.
const TopicChanged = "session:changed"

// ErrSuperseded is returned when a newer operation replaced this one.
var ErrSuperseded = errors.New("session: operation superseded")

// State of the store.
type State int

const (
	StateUnknown State = iota
	StateValidating
	StateLoggedIn
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateLoggedIn:
		return "logged-in"
	case StateLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the store state.
type Snapshot struct {
	Version     uint64
	State       State
	Session     model.Session
	SlowNetwork bool
	Busy        bool
}

// LoggedIn reports whether the snapshot holds a session valid at now.
func (s Snapshot) LoggedIn(now time.Time) bool {
	return s.State == StateLoggedIn && s.Session.Valid(now)
}

// ExpiresIn is the time left on the session at now, zero when logged out.
func (s Snapshot) ExpiresIn(now time.Time) time.Duration {
	if s.State != StateLoggedIn || !s.Session.Valid(now) {
		return 0
	}
	return s.Session.ExpireAt.Sub(now)
}

// Navigator moves the UI to another path.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Store is the session state machine.
type Store struct {
	mu    sync.Mutex
	seq   uint64
	snap  Snapshot
	close bool

	// persistMu orders marker writes with token checks.
	persistMu sync.Mutex

	api        model.AuthAPI
	marker     marker.Marker
	nav        Navigator
	bus        evbus.Bus
	clock      clockwork.Clock
	logger     *slog.Logger
	probeRetry time.Duration
	slowAfter  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithProbeRetry sets the delay between session probes after a network error.
func WithProbeRetry(d time.Duration) Option {
	return func(s *Store) { s.probeRetry = d }
}

// WithSlowNetwork sets how long validation may run before the slow-network
// flag is raised.
func WithSlowNetwork(d time.Duration) Option {
	return func(s *Store) { s.slowAfter = d }
}

// WithBus publishes changes on an existing bus.
func WithBus(bus evbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// New creates a store. nav may be nil when nothing should navigate.
func New(api model.AuthAPI, m marker.Marker, nav Navigator, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:        api,
		marker:     m,
		nav:        nav,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		probeRetry: model.DefaultProbeRetry,
		slowAfter:  model.DefaultSlowNetwork,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = evbus.New()
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe calls fn with a Snapshot after every change. Calls run on their
// own goroutine one at a time; use Snapshot.Version to drop stale ones.
func (s *Store) Subscribe(fn func(Snapshot)) error {
	return s.bus.SubscribeAsync(TopicChanged, fn, true)
}

// Start restores a persisted session and validates it with the server in the
// background.
func (s *Store) Start() {
	token, ok := s.begin()
	if !ok {
		return
	}
	s.wg.Add(1)
	go s.restore(token)
}

func (s *Store) restore(token uint64) {
	defer s.wg.Done()

	expireAt, ok, err := s.marker.Load(s.ctx)
	if err != nil {
		s.logger.Warn("session marker unreadable", "error", err)
		ok = false
	}
	if !ok || !expireAt.After(s.clock.Now()) {
		if ok || err != nil {
			s.persist(token, s.clearMarker)
		}
		s.commit(token, func(snap *Snapshot) {
			snap.State = StateLoggedOut
			snap.Session = model.Session{}
		})
		return
	}

	if !s.commit(token, func(snap *Snapshot) { snap.State = StateValidating }) {
		return
	}
	done := make(chan struct{})
	defer close(done)
	s.wg.Add(1)
	go s.watchSlow(token, done)

	for {
		sess, err := s.api.CheckLoginStatus(s.ctx)
		if !s.current(token) {
			return
		}
		switch {
		case err == nil && sess.Valid(s.clock.Now()):
			s.persist(token, func() error { return s.marker.Save(s.ctx, sess.ExpireAt) })
			s.commit(token, func(snap *Snapshot) {
				snap.State = StateLoggedIn
				snap.Session = sess
				snap.SlowNetwork = false
			})
			return

		case apierr.IsNetwork(err):
			s.logger.Debug("session probe failed, retrying", "delay", s.probeRetry, "error", err)
			timer := s.clock.NewTimer(s.probeRetry)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.Chan():
			}

		default:
			if err != nil {
				s.logger.Info("session probe rejected", "kind", apierr.KindOf(err).String(), "error", err)
			}
			s.persist(token, s.clearMarker)
			s.commit(token, func(snap *Snapshot) {
				snap.State = StateLoggedOut
				snap.Session = model.Session{}
				snap.SlowNetwork = false
			})
			return
		}
	}
}

// watchSlow raises the slow-network flag if validation outlives slowAfter.
func (s *Store) watchSlow(token uint64, done <-chan struct{}) {
	defer s.wg.Done()
	timer := s.clock.NewTimer(s.slowAfter)
	defer timer.Stop()
	select {
	case <-done:
	case <-s.ctx.Done():
	case <-timer.Chan():
		s.commit(token, func(snap *Snapshot) {
			if snap.State == StateValidating {
				snap.SlowNetwork = true
			}
		})
	}
}

// Login authenticates and, on success, persists the expiry and navigates to
// redirect when it is not empty. Any failure leaves the store logged out and
// is returned to the caller.
func (s *Store) Login(ctx context.Context, email, password, redirect string) (model.Session, error) {
	token, ok := s.begin()
	if !ok {
		return model.Session{}, ErrSuperseded
	}
	s.commit(token, func(snap *Snapshot) { snap.Busy = true })

	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.commit(token, func(snap *Snapshot) {
			snap.State = StateLoggedOut
			snap.Session = model.Session{}
			snap.Busy = false
		})
		return model.Session{}, err
	}

	if !s.persist(token, func() error { return s.marker.Save(ctx, sess.ExpireAt) }) {
		return model.Session{}, ErrSuperseded
	}
	if !s.commit(token, func(snap *Snapshot) {
		snap.State = StateLoggedIn
		snap.Session = sess
		snap.Busy = false
		snap.SlowNetwork = false
	}) {
		return model.Session{}, ErrSuperseded
	}
	s.logger.Info("logged in", "username", sess.Username, "expires", sess.ExpireAt)
	if redirect != "" && s.nav != nil {
		s.nav.Navigate(redirect)
	}
	return sess, nil
}

// Logout ends the session. The server call is best effort. When redirect is
// not empty the logged-out state is committed before navigating to the login
// screen that returns to redirect.
func (s *Store) Logout(ctx context.Context, redirect string) error {
	token, ok := s.begin()
	if !ok {
		return ErrSuperseded
	}
	s.commit(token, func(snap *Snapshot) { snap.Busy = true })

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}
	s.persist(token, s.clearMarker)
	if !s.commit(token, func(snap *Snapshot) {
		snap.State = StateLoggedOut
		snap.Session = model.Session{}
		snap.Busy = false
		snap.SlowNetwork = false
	}) {
		return ErrSuperseded
	}
	s.logger.Info("logged out", "redirect", redirect)
	if redirect != "" && s.nav != nil {
		s.nav.Navigate(route.LoginWithRedirect(redirect))
	}
	return nil
}

// Close stops background work and invalidates every pending operation.
func (s *Store) Close() {
	s.mu.Lock()
	if s.close {
		s.mu.Unlock()
		return
	}
	s.close = true
	s.seq++
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.bus.WaitAsync()
}

func (s *Store) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.close {
		return 0, false
	}
	s.seq++
	return s.seq, true
}

func (s *Store) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.close && s.seq == token
}

// commit applies fn when token is still the latest and publishes the result.
func (s *Store) commit(token uint64, fn func(*Snapshot)) bool {
	s.mu.Lock()
	if s.close || s.seq != token {
		s.mu.Unlock()
		return false
	}
	fn(&s.snap)
	s.snap.Version++
	snap := s.snap
	s.mu.Unlock()

	s.bus.Publish(TopicChanged, snap)
	return true
}

// persist runs a marker write while token is still the latest.
func (s *Store) persist(token uint64, write func() error) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if !s.current(token) {
		return false
	}
	if err := write(); err != nil {
		s.logger.Warn("session marker write failed", "error", err)
	}
	return true
}

func (s *Store) clearMarker() error {
	return s.marker.Clear(context.Background())
}
