package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/forms"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

const (
	forgotSentText    = "If the email exists, you will receive instructions on how to reset the password."
	resetInvalidText  = "This token is invalid or expired"
	resetSuccessText  = "Your password has been changed!"
	resetTokenKey     = "reset-token"
	accountErrorID    = "account-error"
	accountErrorTitle = "Error"
)

type forgotResultMsg struct{ err error }

// ForgotPasswordPage requests a password reset email.
type ForgotPasswordPage struct {
	deps Deps
	form *form
	sent bool
}

func NewForgotPasswordPage(deps Deps) *ForgotPasswordPage {
	return &ForgotPasswordPage{
		deps: deps,
		form: newForm(newField("email", "Email", "you@example.com", false)),
	}
}

func (p *ForgotPasswordPage) ID() string      { return "forgot-password" }
func (p *ForgotPasswordPage) Init() tea.Cmd   { return textinput.Blink }
func (p *ForgotPasswordPage) Capturing() bool { return !p.sent }
func (p *ForgotPasswordPage) Loading() bool   { return p.form.submitting }

func (p *ForgotPasswordPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case forgotResultMsg:
		p.form.submitting = false
		switch {
		case msg.err == nil:
			p.sent = true
		case apierr.IsValidation(msg.err):
			p.form.errors = forms.Errors{"email": apierr.UserMessage(msg.err, "")}
		default:
			p.deps.Notices.Error(accountErrorID, accountErrorTitle, apierr.UserMessage(msg.err, ""))
		}
		return nil, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Escape) || (p.sent && key.Matches(msg, keys.Enter)) {
			return nil, navTo(route.PathLogin)
		}
	}
	if p.sent {
		return nil, nil
	}

	cmd, submit := p.form.update(msg)
	if !submit {
		return cmd, nil
	}
	input := forms.ForgotPassword{Email: p.form.value("email")}
	if err := forms.Validate(input); err != nil {
		p.form.errors = forms.FieldErrors(err)
		return cmd, nil
	}
	p.form.errors = nil
	p.form.submitting = true
	api := p.deps.API
	return tea.Batch(cmd, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return forgotResultMsg{err: api.ForgotPassword(ctx, input.Email)}
	}), nil
}

func (p *ForgotPasswordPage) View(width, height int) string {
	if p.sent {
		return renderFormBox(width, height, "Forgot Password",
			okStyle.Render(forgotSentText),
			"",
			dimStyle.Render("enter: back to login"),
		)
	}
	return renderFormBox(width, height, "Forgot Password",
		p.form.view(),
		"",
		dimStyle.Render("enter: send instructions  esc: back to login"),
	)
}

type resetState int

const (
	resetChecking resetState = iota
	resetInvalid
	resetForm
	resetDone
	resetFailed
)

type resetResultMsg struct{ err error }

// PasswordResetPage sets a new password from an emailed token. The token is
// validated before the form is shown; a missing or rejected token never
// shows the form.
type PasswordResetPage struct {
	deps  Deps
	token string
	state resetState
	form  *form
	err   error
}

func NewPasswordResetPage(deps Deps, token string) *PasswordResetPage {
	p := &PasswordResetPage{
		deps:  deps,
		token: token,
		form: newForm(
			newField("newPassword", "New password", "", true),
			newField("repeatPassword", "Repeat password", "", true),
		),
	}
	if token == "" {
		p.state = resetInvalid
	}
	return p
}

func (p *PasswordResetPage) ID() string      { return "password-reset" }
func (p *PasswordResetPage) Capturing() bool { return p.state == resetForm }
func (p *PasswordResetPage) Loading() bool {
	return p.state == resetChecking || p.form.submitting
}

func (p *PasswordResetPage) Init() tea.Cmd {
	if p.state != resetChecking {
		return nil
	}
	p.validate()
	return textinput.Blink
}

func (p *PasswordResetPage) validate() {
	api, token := p.deps.API, p.token
	p.state = resetChecking
	p.deps.Fetch.Run(fetch.Request{
		Key:  resetTokenKey,
		Path: route.PathPasswordReset + "?token=" + token,
		Fetch: func(ctx context.Context) (any, error) {
			return nil, api.ValidateResetToken(ctx, token)
		},
	})
}

func (p *PasswordResetPage) Close() {
	p.deps.Fetch.Cancel(resetTokenKey)
}

func (p *PasswordResetPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case FetchMsg:
		if msg.Key == resetTokenKey && p.state == resetChecking {
			p.applyValidation()
		}
		return nil, nil
	case resetResultMsg:
		p.form.submitting = false
		switch {
		case msg.err == nil:
			p.state = resetDone
		case apierr.IsInvalidToken(msg.err):
			p.state = resetInvalid
		case apierr.IsValidation(msg.err):
			p.form.errors = forms.Errors{"newPassword": apierr.UserMessage(msg.err, "")}
		default:
			p.deps.Notices.Error(accountErrorID, accountErrorTitle, apierr.UserMessage(msg.err, ""))
		}
		return nil, nil
	case tea.KeyMsg:
		switch p.state {
		case resetInvalid, resetDone:
			if key.Matches(msg, keys.Escape) || key.Matches(msg, keys.Enter) {
				return nil, navTo(route.PathLogin)
			}
			return nil, nil
		case resetFailed:
			if key.Matches(msg, keys.Retry) {
				p.validate()
			}
			if key.Matches(msg, keys.Escape) {
				return nil, navTo(route.PathLogin)
			}
			return nil, nil
		case resetForm:
			if key.Matches(msg, keys.Escape) {
				return nil, navTo(route.PathLogin)
			}
		default:
			return nil, nil
		}
	}
	if p.state != resetForm {
		return nil, nil
	}

	cmd, submit := p.form.update(msg)
	if !submit {
		return cmd, nil
	}
	input := forms.PasswordReset{Password: p.form.value("newPassword"), RepeatPassword: p.form.value("repeatPassword")}
	if err := forms.Validate(input); err != nil {
		p.form.errors = forms.FieldErrors(err)
		return cmd, nil
	}
	p.form.errors = nil
	p.form.submitting = true
	api, token := p.deps.API, p.token
	return tea.Batch(cmd, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return resetResultMsg{err: api.ResetPassword(ctx, model.ResetPasswordRequest{Token: token, Password: input.Password})}
	}), nil
}

func (p *PasswordResetPage) applyValidation() {
	snap, ok := p.deps.Fetch.Snapshot(resetTokenKey)
	if !ok {
		return
	}
	switch snap.Status {
	case fetch.StatusReady:
		p.state = resetForm
	case fetch.StatusFailed:
		if apierr.IsValidation(snap.Err) {
			p.state = resetInvalid
			return
		}
		p.state = resetFailed
		p.err = snap.Err
	}
}

func (p *PasswordResetPage) View(width, height int) string {
	switch p.state {
	case resetChecking:
		return renderLoadingPlaceholder(width, height, "Checking reset link...")
	case resetInvalid:
		return renderFormBox(width, height, "Reset Password",
			errorStyle.Render(resetInvalidText),
			"",
			dimStyle.Render("enter: back to login"),
		)
	case resetDone:
		return renderFormBox(width, height, "Reset Password",
			okStyle.Render(resetSuccessText),
			"",
			dimStyle.Render("enter: go to login"),
		)
	case resetFailed:
		return renderPageError(width, height, apierr.UserMessage(p.err, ""))
	}
	return renderFormBox(width, height, "Reset Password",
		p.form.view(),
		"",
		dimStyle.Render("enter: change password  tab: next field  esc: cancel"),
	)
}
