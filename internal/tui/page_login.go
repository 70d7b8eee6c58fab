package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/forms"
	"github.com/russianllm/ruterm/internal/route"
	"github.com/russianllm/ruterm/internal/session"
)

// loginErrorID keeps repeated failures in a single toast.
const loginErrorID = "login-error"

const submitTimeout = 30 * time.Second

type loginResultMsg struct {
	err error
}

// LoginPage authenticates the user.
type LoginPage struct {
	deps  Deps
	route route.Route
	form  *form
}

// NewLoginPage creates the login screen for r, which may carry a redirect.
func NewLoginPage(deps Deps, r route.Route) *LoginPage {
	return &LoginPage{
		deps:  deps,
		route: r,
		form: newForm(
			newField("email", "Email", "test@test.com", false),
			newField("password", "Password", "password", true),
		),
	}
}

func (p *LoginPage) ID() string      { return "login" }
func (p *LoginPage) Init() tea.Cmd   { return textinput.Blink }
func (p *LoginPage) Capturing() bool { return true }
func (p *LoginPage) Loading() bool   { return p.form.submitting }

func (p *LoginPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case loginResultMsg:
		p.form.submitting = false
		if msg.err != nil && !errors.Is(msg.err, session.ErrSuperseded) {
			p.deps.Notices.Error(loginErrorID, "Authentication Error", apierr.UserMessage(msg.err, "Server Error"))
		}
		return nil, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Forgot) {
			return nil, navTo(route.PathForgotPassword)
		}
	}

	cmd, submit := p.form.update(msg)
	if !submit {
		return cmd, nil
	}
	input := forms.Login{Email: p.form.value("email"), Password: p.form.value("password")}
	if err := forms.Validate(input); err != nil {
		p.form.errors = forms.FieldErrors(err)
		return cmd, nil
	}
	p.form.errors = nil
	p.form.submitting = true
	return tea.Batch(cmd, p.submit(input)), nil
}

func (p *LoginPage) submit(input forms.Login) tea.Cmd {
	store := p.deps.Session
	redirect := p.route.RedirectTarget(p.deps.StartPath)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		_, err := store.Login(ctx, input.Email, input.Password, redirect)
		return loginResultMsg{err: err}
	}
}

func (p *LoginPage) View(width, height int) string {
	return renderFormBox(width, height, "Login",
		mutedStyle.Render("Use email: test@test.com and password: password"),
		"",
		p.form.view(),
		"",
		dimStyle.Render("enter: log in  tab: next field  ctrl+f: forgot password"),
	)
}
