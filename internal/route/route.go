// Package route parses the client's navigation paths.
package route

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/russianllm/ruterm/internal/model"
)

// Name identifies a screen.
type Name int

const (
	NotFound Name = iota
	Login
	ForgotPassword
	PasswordReset
	Exercises
	ExerciseDetail
	Stats
	Vocabulary
)

const (
	PathLogin          = "/login"
	PathForgotPassword = "/forgot-password"
	PathPasswordReset  = "/password-reset"
	PathExercises      = "/exercises"
	PathStats          = "/stats"
	PathVocabulary     = "/vocabulary"
)

// RedirectParam carries the path to return to after logging in.
const RedirectParam = "redirect"

var names = map[Name]string{
	NotFound:       "not-found",
	Login:          "login",
	ForgotPassword: "forgot-password",
	PasswordReset:  "password-reset",
	Exercises:      "exercises",
	ExerciseDetail: "exercise",
	Stats:          "stats",
	Vocabulary:     "vocabulary",
}

func (n Name) String() string { return names[n] }

// Route is a parsed navigation target.
type Route struct {
	Name  Name
	Path  string
	Query url.Values
	ID    int // exercise id for ExerciseDetail
}

// Parse resolves raw ("/stats", "/login?redirect=%2Fstats", "/exercises/3")
// into a Route. Unknown paths yield NotFound.
func Parse(raw string) Route {
	u, err := url.Parse(raw)
	if err != nil {
		return Route{Name: NotFound, Path: raw, Query: url.Values{}}
	}
	p := "/" + strings.Trim(u.Path, "/")
	r := Route{Path: p, Query: u.Query()}

	switch p {
	case PathLogin:
		r.Name = Login
	case PathForgotPassword:
		r.Name = ForgotPassword
	case PathPasswordReset:
		r.Name = PasswordReset
	case PathExercises:
		r.Name = Exercises
	case PathStats:
		r.Name = Stats
	case PathVocabulary:
		r.Name = Vocabulary
	default:
		rest, ok := strings.CutPrefix(p, PathExercises+"/")
		if !ok || strings.Contains(rest, "/") {
			r.Name = NotFound
			break
		}
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			r.Name = NotFound
			break
		}
		r.Name = ExerciseDetail
		r.ID = id
	}
	return r
}

// Protected reports whether the route requires a logged-in session.
func (r Route) Protected() bool {
	switch r.Name {
	case Exercises, ExerciseDetail, Stats, Vocabulary:
		return true
	}
	return false
}

// Public reports whether the route is only meant for logged-out users.
func (r Route) Public() bool {
	switch r.Name {
	case Login, ForgotPassword, PasswordReset:
		return true
	}
	return false
}

// String renders the route back into a path with its query.
func (r Route) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Token returns the reset token of a PasswordReset route.
func (r Route) Token() string {
	return r.Query.Get("token")
}

// Exercise builds the detail path of one exercise.
func Exercise(id int) string {
	return PathExercises + "/" + strconv.Itoa(id)
}

// LoginWithRedirect builds the login path that returns to path after login.
// An empty or unsafe path yields the bare login path.
func LoginWithRedirect(path string) string {
	if !safe(path) {
		return PathLogin
	}
	return PathLogin + "?" + RedirectParam + "=" + url.QueryEscape(path)
}

// RedirectTarget returns where to go after logging in from r. Missing, unsafe
// or public targets yield fallback, or the default start path when fallback
// is empty.
func (r Route) RedirectTarget(fallback string) string {
	if fallback == "" {
		fallback = model.DefaultStartPath
	}
	target := r.Query.Get(RedirectParam)
	if !safe(target) || Parse(target).Public() {
		return fallback
	}
	return target
}

// safe accepts only local absolute paths.
func safe(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") && !strings.Contains(path, "://")
}
