package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

const statsKey = "stats"

func statsResource(deps Deps, path string) *resource {
	api := deps.API
	return &resource{
		ctrl: deps.Fetch,
		key:  statsKey,
		path: path,
		fn: fetch.Typed(func(ctx context.Context) (model.StatsResponse, error) {
			return api.Stats(ctx)
		}),
	}
}

// StatsPage shows the language skills and links to the vocabulary.
type StatsPage struct {
	res *resource
}

func NewStatsPage(deps Deps) *StatsPage {
	return &StatsPage{res: statsResource(deps, route.PathStats)}
}

func (p *StatsPage) ID() string    { return "stats" }
func (p *StatsPage) Loading() bool { return p.res.snapshot().Loading() }
func (p *StatsPage) Close()        { p.res.cancel() }

func (p *StatsPage) Init() tea.Cmd {
	p.res.load()
	return nil
}

func (p *StatsPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches(km, keys.Enter):
		if p.res.snapshot().Status == fetch.StatusReady {
			return nil, navTo(route.PathVocabulary)
		}
	case key.Matches(km, keys.Retry):
		if p.res.snapshot().Status == fetch.StatusFailed {
			p.res.load()
		}
	}
	return nil, nil
}

func (p *StatsPage) View(width, height int) string {
	return p.res.view(width, height, func() string {
		stats, _ := fetch.Data[model.StatsResponse](p.res.snapshot())
		var b strings.Builder
		b.WriteString(titleStyle.Render("Language Skills") + "\n\n")
		for _, s := range stats.LanguageSkills {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", skillLabel(s.ID), masteryBar(s.Mastery, model.MaxMastery)))
		}
		b.WriteString("\n")
		if chart := renderSkillChart(stats.LanguageSkills, min(width-6, 60)); chart != "" {
			b.WriteString(chart + "\n\n")
		}
		b.WriteString(selectedStyle.Render(" View Vocabulary ") + dimStyle.Render("  enter"))
		return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 2).Render(b.String())
	})
}

func skillLabel(id string) string {
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

// renderSkillChart draws one bar per skill on the mastery scale.
func renderSkillChart(skills []model.Skill, width int) string {
	if len(skills) == 0 || width < 4*len(skills) {
		return ""
	}
	barWidth := max((width-len(skills)+1)/len(skills), 1)
	bc := barchart.New(width, model.MaxMastery*2,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	style := lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorGreen)
	for _, s := range skills {
		bc.Push(barchart.BarData{
			Label: skillLabel(s.ID),
			Values: []barchart.BarValue{
				{Name: s.ID, Value: float64(s.Mastery), Style: style},
			},
		})
	}
	bc.Draw()
	return bc.View()
}
