package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/forms"
)

type formField struct {
	name  string
	label string
	input textinput.Model
}

func newField(name, label, placeholder string, secret bool) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return formField{name: name, label: label, input: ti}
}

// form is a vertical list of text inputs with per-field errors.
type form struct {
	fields     []formField
	focus      int
	errors     forms.Errors
	submitting bool
}

func newForm(fields ...formField) *form {
	f := &form{fields: fields}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	f.focus = (i + len(f.fields)) % len(f.fields)
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

func (f *form) value(name string) string {
	for _, fld := range f.fields {
		if fld.name == name {
			return strings.TrimSpace(fld.input.Value())
		}
	}
	return ""
}

// update handles focus movement and typing. It reports true when the user
// asked to submit.
func (f *form) update(msg tea.Msg) (tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Enter):
			if f.focus < len(f.fields)-1 {
				f.setFocus(f.focus + 1)
				return nil, false
			}
			return nil, !f.submitting
		case key.Matches(km, keys.NextField):
			f.setFocus(f.focus + 1)
			return nil, false
		case key.Matches(km, keys.PrevField):
			f.setFocus(f.focus - 1)
			return nil, false
		}
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd, false
}

func (f *form) view() string {
	var b strings.Builder
	for i, fld := range f.fields {
		label := mutedStyle.Render(fld.label)
		if i == f.focus {
			label = titleStyle.Render(fld.label)
		}
		b.WriteString(label + "\n")
		b.WriteString(fld.input.View() + "\n")
		if msg := f.errors[fld.name]; msg != "" {
			b.WriteString(errorStyle.Render(msg))
		}
		if i < len(f.fields)-1 {
			b.WriteString("\n\n")
		}
	}
	if f.submitting {
		b.WriteString("\n\n" + mutedStyle.Render(spinnerFrame()+" Submitting..."))
	}
	return b.String()
}

// renderFormBox centres a titled box.
func renderFormBox(width, height int, title string, body ...string) string {
	parts := append([]string{titleStyle.Render(title), ""}, body...)
	box := formStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
