package tui

import (
	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/fetch"
)

// resource binds one fetch key to a page.
type resource struct {
	ctrl   *fetch.Controller
	key    string
	path   string
	fn     fetch.Func
	policy fetch.Policy
}

func (r *resource) load() {
	r.ctrl.Run(fetch.Request{Key: r.key, Path: r.path, Fetch: r.fn, Policy: r.policy})
}

func (r *resource) cancel() { r.ctrl.Cancel(r.key) }

// forget drops the key from the controller along with its data.
func (r *resource) forget() { r.ctrl.Forget(r.key) }

func (r *resource) snapshot() fetch.Snapshot {
	s, _ := r.ctrl.Snapshot(r.key)
	return s
}

// view picks between the loading, error and data renderings of a resource.
// Unauthorized renders nothing: the session is already redirecting.
func (r *resource) view(width, height int, data func() string) string {
	s := r.snapshot()
	switch s.Status {
	case fetch.StatusReady:
		return data()
	case fetch.StatusFailed:
		return renderPageError(width, height, apierr.UserMessage(s.Err, ""))
	case fetch.StatusUnauthorized:
		return ""
	}
	return renderLoadingPlaceholder(width, height, "")
}
