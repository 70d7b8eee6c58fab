package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

const exercisesKey = "exercises"

// ExercisesPage lists the exercise catalog grouped by type.
type ExercisesPage struct {
	res    *resource
	items  []model.ExerciseOverview
	groups []exerciseGroup
	cursor int
}

type exerciseGroup struct {
	kind  model.ExerciseType
	items []model.ExerciseOverview
}

func NewExercisesPage(deps Deps) *ExercisesPage {
	api := deps.API
	return &ExercisesPage{res: &resource{
		ctrl: deps.Fetch,
		key:  exercisesKey,
		path: route.PathExercises,
		fn: fetch.Typed(func(ctx context.Context) (model.ExercisesResponse, error) {
			return api.Exercises(ctx)
		}),
	}}
}

func (p *ExercisesPage) ID() string    { return "exercises" }
func (p *ExercisesPage) Loading() bool { return p.res.snapshot().Loading() }
func (p *ExercisesPage) Close()        { p.res.cancel() }

func (p *ExercisesPage) Init() tea.Cmd {
	p.res.load()
	return nil
}

func (p *ExercisesPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case FetchMsg:
		if msg.Key == exercisesKey {
			p.refresh()
		}
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			p.cursor = max(p.cursor-1, 0)
		case key.Matches(msg, keys.Down):
			p.cursor = min(p.cursor+1, max(len(p.items)-1, 0))
		case key.Matches(msg, keys.Retry):
			if p.res.snapshot().Status == fetch.StatusFailed {
				p.res.load()
			}
		case key.Matches(msg, keys.Enter):
			if p.cursor < len(p.items) && !p.items[p.cursor].Locked {
				if id, err := strconv.Atoi(p.items[p.cursor].ID); err == nil {
					return nil, navTo(route.Exercise(id))
				}
			}
		}
	}
	return nil, nil
}

func (p *ExercisesPage) refresh() {
	data, ok := fetch.Data[model.ExercisesResponse](p.res.snapshot())
	if !ok {
		return
	}
	p.groups = p.groups[:0]
	p.items = p.items[:0]
	for _, t := range data.Types {
		items := data.ExercisesOf(t.ID)
		if len(items) == 0 {
			continue
		}
		p.groups = append(p.groups, exerciseGroup{kind: t, items: items})
		p.items = append(p.items, items...)
	}
	p.cursor = min(p.cursor, max(len(p.items)-1, 0))
}

func (p *ExercisesPage) View(width, height int) string {
	return p.res.view(width, height, func() string {
		var b strings.Builder
		b.WriteString(titleStyle.Render("Exercises") + "\n\n")
		idx := 0
		for _, g := range p.groups {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(g.kind.Name) + "\n")
			if g.kind.Description != nil && *g.kind.Description != "" {
				b.WriteString(mutedStyle.Render(*g.kind.Description) + "\n")
			}
			for _, ex := range g.items {
				b.WriteString(renderExercise(ex, idx == p.cursor) + "\n")
				idx++
			}
			b.WriteString("\n")
		}
		if len(p.items) == 0 {
			b.WriteString(mutedStyle.Render("No exercises yet.") + "\n")
		}
		b.WriteString(dimStyle.Render("↑/↓: select  enter: open"))
		return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 2).Render(b.String())
	})
}

func renderExercise(ex model.ExerciseOverview, selected bool) string {
	name := ex.Name
	if ex.Locked {
		name = lockedStyle.Render(name) + dimStyle.Render(" (locked)")
	}
	line := fmt.Sprintf("%s  %s", masteryBar(ex.Mastery, model.MaxMastery), name)
	if selected {
		return selectedStyle.Render("›") + " " + line
	}
	return "  " + line
}

// ExerciseDetailPage is a placeholder for a single exercise.
type ExerciseDetailPage struct {
	id int
}

func NewExerciseDetailPage(id int) *ExerciseDetailPage {
	return &ExerciseDetailPage{id: id}
}

func (p *ExerciseDetailPage) ID() string    { return "exercise" }
func (p *ExerciseDetailPage) Init() tea.Cmd { return nil }

func (p *ExerciseDetailPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, keys.Escape) {
		return nil, navTo(route.PathExercises)
	}
	return nil, nil
}

func (p *ExerciseDetailPage) View(width, height int) string {
	text := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(fmt.Sprintf("Exercise %d - Not Implemented Yet", p.id)),
		"",
		dimStyle.Render("esc: back to exercises"),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
