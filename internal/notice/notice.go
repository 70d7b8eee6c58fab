// Package notice keeps the transient messages shown over the UI.
package notice

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/russianllm/ruterm/internal/model"
)

// Kind is the severity of a notice.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice is one message.
type Notice struct {
	ID       string
	Kind     Kind
	Title    string
	Content  string
	Duration time.Duration

	shownAt time.Time
	seq     uint64
}

// ExpiresAt is when the notice disappears on its own.
func (n Notice) ExpiresAt() time.Time { return n.shownAt.Add(n.Duration) }

// Board holds the active notices.
type Board struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	fallback time.Duration
	seq      uint64
	items    map[string]Notice
}

// NewBoard creates a board. A zero duration falls back to the default.
func NewBoard(clock clockwork.Clock, duration time.Duration) *Board {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if duration <= 0 {
		duration = model.DefaultToastDuration
	}
	return &Board{clock: clock, fallback: duration, items: make(map[string]Notice)}
}

// Push shows n and returns its id. A notice with the id of an active one
// replaces it and restarts its timer.
func (b *Board) Push(n Notice) string {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	if n.Duration <= 0 {
		n.Duration = b.fallback
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	n.seq = b.seq
	n.shownAt = b.clock.Now()
	b.items[n.ID] = n
	return n.ID
}

// Error shows an error notice.
func (b *Board) Error(id, title, content string) string {
	return b.Push(Notice{ID: id, Kind: KindError, Title: title, Content: content})
}

// Success shows a success notice.
func (b *Board) Success(id, title, content string) string {
	return b.Push(Notice{ID: id, Kind: KindSuccess, Title: title, Content: content})
}

// Dismiss removes a notice early.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.items[id]
	delete(b.items, id)
	return ok
}

// Prune drops expired notices and reports how many were removed.
func (b *Board) Prune() int {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for id, n := range b.items {
		if !n.ExpiresAt().After(now) {
			delete(b.items, id)
			removed++
		}
	}
	return removed
}

// Active returns the live notices, newest first.
func (b *Board) Active() []Notice {
	now := b.clock.Now()
	b.mu.Lock()
	out := make([]Notice, 0, len(b.items))
	for _, n := range b.items {
		if n.ExpiresAt().After(now) {
			out = append(out, n)
		}
	}
	b.mu.Unlock()

	slices.SortFunc(out, func(a, c Notice) int {
		switch {
		case a.seq > c.seq:
			return -1
		case a.seq < c.seq:
			return 1
		}
		return 0
	})
	return out
}

// Len counts the active notices.
func (b *Board) Len() int { return len(b.Active()) }

// NextExpiry is the earliest time a notice expires.
func (b *Board) NextExpiry() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var next time.Time
	for _, n := range b.items {
		if at := n.ExpiresAt(); next.IsZero() || at.Before(next) {
			next = at
		}
	}
	return next, !next.IsZero()
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
