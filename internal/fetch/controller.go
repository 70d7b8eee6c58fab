// Package fetch runs data loads for views with retry, backoff and
// stale-response suppression.
//
// Every Run for a resource key gets a fresh token and supersedes the previous
// invocation for that key. Only the invocation that still holds the latest
// token may change the key's state; late results of superseded invocations are
// dropped. Network failures are retried with exponential backoff for as long
// as the invocation stays current. Unauthorized failures hand over to the
// session, which logs out and redirects back to the request's path.
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/model"
)

// Status is the lifecycle position of a resource.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
	StatusUnauthorized
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "idle"
	}
}

// Func loads one resource. It must honour ctx cancellation.
type Func func(ctx context.Context) (any, error)

// Typed adapts a typed loader to Func.
func Typed[T any](fn func(ctx context.Context) (T, error)) Func {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// Policy decides how a resource treats server errors. Network errors are
// always retried; validation and unauthorized errors never are.
type Policy struct {
	RetryServer bool
}

// Request describes one invocation.
type Request struct {
	Key    string
	Path   string // route to come back to after a forced re-login
	Fetch  Func
	Policy Policy
}

// Snapshot is the committed state of one resource key.
type Snapshot struct {
	Key       string
	Token     uint64
	Version   uint64
	Status    Status
	Data      any   // last successful payload, kept while reloading
	Err       error // terminal error of the current invocation
	LastErr   error // most recent failure, including retried ones
	Attempts  int
	RetryIn   time.Duration
	UpdatedAt time.Time
}

// Loading reports whether the current invocation has not finished yet.
func (s Snapshot) Loading() bool { return s.Status == StatusLoading }

// Data extracts a typed payload from a snapshot.
func Data[T any](s Snapshot) (T, bool) {
	v, ok := s.Data.(T)
	return v, ok
}

// Session is the part of the session store the controller needs.
type Session interface {
	Logout(ctx context.Context, redirect string) error
}

type invocation struct {
	key    string
	token  uint64
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller owns the resource states of one application.
type Controller struct {
	mu      sync.Mutex
	seq     uint64
	current map[string]*invocation
	states  map[string]*Snapshot
	closed  bool

	session Session
	clock   clockwork.Clock
	logger  *slog.Logger
	notify  func(Snapshot)
	initial time.Duration
	max     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithBackoff sets the first retry delay and an optional cap.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Controller) {
		c.initial = initial
		c.max = max
	}
}

// WithNotify registers a callback run after every committed change. It is
// called outside the controller lock and may be called from any goroutine.
func WithNotify(fn func(Snapshot)) Option {
	return func(c *Controller) { c.notify = fn }
}

// New creates a controller that reports unauthorized failures to session.
func New(session Session, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		current: make(map[string]*invocation),
		states:  make(map[string]*Snapshot),
		session: session,
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
		initial: model.DefaultBackoffInitial,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts a new invocation for req.Key, superseding any previous one, and
// returns its token. It returns 0 once the controller is closed.
func (c *Controller) Run(req Request) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	if prev := c.current[req.Key]; prev != nil {
		prev.cancel()
	}
	c.seq++
	ctx, cancel := context.WithCancel(c.ctx)
	inv := &invocation{key: req.Key, token: c.seq, req: req, ctx: ctx, cancel: cancel}
	c.current[req.Key] = inv

	st := c.stateLocked(req.Key)
	st.Token = inv.token
	st.Status = StatusLoading
	st.Err = nil
	st.LastErr = nil
	st.Attempts = 0
	st.RetryIn = 0
	st.Version++
	st.UpdatedAt = c.clock.Now()
	snap := *st
	c.wg.Add(1)
	c.mu.Unlock()

	c.emit(snap)
	go c.loop(inv)
	return inv.token
}

// Cancel invalidates the current invocation of key, aborting its request and
// retry timer. The last committed data is kept.
func (c *Controller) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(key)
}

func (c *Controller) cancelLocked(key string) {
	inv := c.current[key]
	if inv == nil {
		return
	}
	inv.cancel()
	delete(c.current, key)
	if st := c.states[key]; st != nil && st.Status == StatusLoading {
		st.Status = StatusIdle
		st.RetryIn = 0
		st.Version++
	}
}

// Close cancels every invocation. Later calls to Run are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key := range c.current {
		c.cancelLocked(key)
	}
	c.mu.Unlock()
	c.cancel()
}

// Wait blocks until every invocation goroutine has exited.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns the committed state of key.
func (c *Controller) Snapshot(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[key]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return *st, true
}

// Forget cancels key and drops its committed state.
func (c *Controller) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(key)
	delete(c.states, key)
}

func (c *Controller) stateLocked(key string) *Snapshot {
	st, ok := c.states[key]
	if !ok {
		st = &Snapshot{Key: key}
		c.states[key] = st
	}
	return st
}

func (c *Controller) loop(inv *invocation) {
	defer c.wg.Done()
	defer inv.cancel()

	sched := NewSchedule(c.initial, c.max)
	for attempt := 1; ; attempt++ {
		data, err := inv.req.Fetch(inv.ctx)
		if inv.ctx.Err() != nil {
			return
		}

		if err == nil {
			c.commit(inv, func(st *Snapshot) {
				st.Status = StatusReady
				st.Data = data
				st.Attempts = attempt
				st.RetryIn = 0
				st.LastErr = nil
			})
			return
		}

		kind := apierr.KindOf(err)
		switch {
		case kind == apierr.KindUnauthorized:
			if c.commit(inv, func(st *Snapshot) {
				st.Status = StatusUnauthorized
				st.Err = err
				st.LastErr = err
				st.Attempts = attempt
				st.RetryIn = 0
			}) {
				c.logout(inv)
			}
			return

		case kind == apierr.KindNetwork, kind == apierr.KindServer && inv.req.Policy.RetryServer:
			delay := sched.Next()
			if !c.commit(inv, func(st *Snapshot) {
				st.LastErr = err
				st.Attempts = attempt
				st.RetryIn = delay
			}) {
				return
			}
			c.logger.Debug("fetch retry scheduled",
				"key", inv.key, "token", inv.token, "attempt", attempt, "delay", delay, "error", err)

			timer := c.clock.NewTimer(delay)
			select {
			case <-inv.ctx.Done():
				timer.Stop()
				return
			case <-timer.Chan():
			}

		default:
			c.commit(inv, func(st *Snapshot) {
				st.Status = StatusFailed
				st.Err = err
				st.LastErr = err
				st.Attempts = attempt
				st.RetryIn = 0
			})
			c.logger.Warn("fetch failed", "key", inv.key, "kind", kind.String(), "error", err)
			return
		}
	}
}

// commit applies fn to the state of inv's key if inv still holds the latest
// token. It reports whether the change was applied.
func (c *Controller) commit(inv *invocation, fn func(*Snapshot)) bool {
	c.mu.Lock()
	if c.current[inv.key] != inv {
		c.mu.Unlock()
		return false
	}
	st := c.stateLocked(inv.key)
	fn(st)
	st.Version++
	st.UpdatedAt = c.clock.Now()
	if st.Status != StatusLoading {
		delete(c.current, inv.key)
	}
	snap := *st
	c.mu.Unlock()

	c.emit(snap)
	return true
}

func (c *Controller) logout(inv *invocation) {
	if c.session == nil {
		return
	}
	if err := c.session.Logout(context.Background(), inv.req.Path); err != nil {
		c.logger.Warn("logout after unauthorized fetch failed", "key", inv.key, "error", err)
	}
}

func (c *Controller) emit(s Snapshot) {
	if c.notify != nil {
		c.notify(s)
	}
}
