package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw       string
		name      Name
		id        int
		protected bool
	}{
		{"/login", Login, 0, false},
		{"/login?redirect=%2Fstats", Login, 0, false},
		{"/forgot-password", ForgotPassword, 0, false},
		{"/password-reset?token=abc", PasswordReset, 0, false},
		{"/exercises", Exercises, 0, true},
		{"/exercises/", Exercises, 0, true},
		{"/exercises/12", ExerciseDetail, 12, true},
		{"/exercises/0", NotFound, 0, false},
		{"/exercises/abc", NotFound, 0, false},
		{"/exercises/1/2", NotFound, 0, false},
		{"/stats", Stats, 0, true},
		{"/vocabulary", Vocabulary, 0, true},
		{"/nope", NotFound, 0, false},
		{"%zz", NotFound, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := Parse(tt.raw)
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, tt.id, r.ID)
			assert.Equal(t, tt.protected, r.Protected())
		})
	}
}

func TestLoginWithRedirect(t *testing.T) {
	assert.Equal(t, "/login?redirect=%2Fvocabulary", LoginWithRedirect("/vocabulary"))
	assert.Equal(t, "/login?redirect=%2Fexercises%2F3", LoginWithRedirect("/exercises/3"))
	assert.Equal(t, "/login", LoginWithRedirect(""))
	assert.Equal(t, "/login", LoginWithRedirect("https://evil.example"))
	assert.Equal(t, "/login", LoginWithRedirect("//evil.example"))
}

func TestRedirectTargetRoundTrip(t *testing.T) {
	for _, p := range []string{"/stats", "/vocabulary", "/exercises/7", "/stats?tab=words"} {
		assert.Equal(t, p, Parse(LoginWithRedirect(p)).RedirectTarget(""))
	}
}

func TestRedirectTargetFallback(t *testing.T) {
	assert.Equal(t, "/exercises", Parse("/login").RedirectTarget(""))
	assert.Equal(t, "/exercises", Parse("/login?redirect=https%3A%2F%2Fevil.example").RedirectTarget(""))
	assert.Equal(t, "/exercises", Parse("/login?redirect=%2Flogin").RedirectTarget(""))
}

func TestRedirectTargetConfiguredFallback(t *testing.T) {
	assert.Equal(t, "/stats", Parse("/login").RedirectTarget("/stats"))
	assert.Equal(t, "/stats", Parse("/login?redirect=%2F%2Fevil.example").RedirectTarget("/stats"))
	assert.Equal(t, "/vocabulary", Parse("/login?redirect=%2Fvocabulary").RedirectTarget("/stats"))
}

func TestToken(t *testing.T) {
	assert.Equal(t, "abc", Parse("/password-reset?token=abc").Token())
	assert.Empty(t, Parse("/password-reset").Token())
}

func TestStringKeepsQuery(t *testing.T) {
	assert.Equal(t, "/stats", Parse("/stats").String())
	assert.Equal(t, "/login?redirect=%2Fstats", Parse("/login?redirect=%2Fstats").String())
}
