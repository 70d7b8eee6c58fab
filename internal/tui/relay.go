package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/session"
)

// Relay forwards background events into a running program. Events sent
// before Attach are queued. Delivery never blocks the sender, so it is safe
// to trigger from inside Update.
type Relay struct {
	mu      sync.Mutex
	program *tea.Program
	queue   []tea.Msg
}

// NewRelay creates an unattached relay.
func NewRelay() *Relay { return &Relay{} }

// Attach starts delivering to p, flushing queued events.
func (r *Relay) Attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	queued := r.queue
	r.queue = nil
	r.mu.Unlock()
	for _, msg := range queued {
		go p.Send(msg)
	}
}

// Send delivers msg without blocking.
func (r *Relay) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	if p == nil {
		r.queue = append(r.queue, msg)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	go p.Send(msg)
}

// Navigate implements session.Navigator.
func (r *Relay) Navigate(path string) { r.Send(NavigateMsg{Path: path}) }

// Fetch is a fetch.Controller notify hook.
func (r *Relay) Fetch(s fetch.Snapshot) { r.Send(FetchMsg{Key: s.Key}) }

// Session is a session.Store subscriber.
func (r *Relay) Session(s session.Snapshot) { r.Send(SessionMsg{Snapshot: s}) }

var _ session.Navigator = (*Relay)(nil)
