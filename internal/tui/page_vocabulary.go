package tui

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/fetch"
	"github.com/russianllm/ruterm/internal/model"
	"github.com/russianllm/ruterm/internal/route"
)

const (
	wordsKeyPrefix   = "words:"
	vocabErrorID     = "vocab-server-error"
	vocabErrorTitle  = "Server Error"
	vocabRetryingMsg = "Error fetching data, retrying..."
)

func wordsKey(page int) string { return wordsKeyPrefix + strconv.Itoa(page) }

type vocabRowKind int

const (
	rowSkill vocabRowKind = iota
	rowSubcategory
	rowCategory
	rowWord
)

type vocabRow struct {
	kind  vocabRowKind
	skill int
	sub   int
	cat   int
	word  int
}

// rulesView is the grammar rules overlay.
type rulesView struct {
	title     string
	rules     []model.WordRule
	highlight []int
}

// wordInfo is the word detail overlay.
type wordInfo struct {
	word   model.Word
	cursor int
}

// VocabularyPage shows word skills from stats and the paged word list.
type VocabularyPage struct {
	deps  Deps
	stats *resource
	pages []*resource
	total int

	categories []wordCategory
	skillOpen  map[string]bool
	catOpen    map[string]bool
	rows       []vocabRow
	cursor     int

	info  *wordInfo
	rules *rulesView
	vp    viewport.Model
}

func NewVocabularyPage(deps Deps) *VocabularyPage {
	return &VocabularyPage{
		deps:      deps,
		stats:     statsResource(deps, route.PathVocabulary),
		skillOpen: make(map[string]bool),
		catOpen:   make(map[string]bool),
		vp:        viewport.New(0, 0),
	}
}

func (p *VocabularyPage) ID() string { return "vocabulary" }

func (p *VocabularyPage) Init() tea.Cmd {
	p.stats.load()
	p.loadPage(1)
	return nil
}

// Close stops every fetch of the page. Word pages are forgotten since each
// visit starts again from the first page.
func (p *VocabularyPage) Close() {
	p.stats.cancel()
	for _, r := range p.pages {
		r.forget()
	}
}

func (p *VocabularyPage) Loading() bool {
	if p.stats.snapshot().Loading() {
		return true
	}
	return slices.ContainsFunc(p.pages, func(r *resource) bool { return r.snapshot().Loading() })
}

func (p *VocabularyPage) loadPage(n int) {
	api := p.deps.API
	r := &resource{
		ctrl: p.deps.Fetch,
		key:  wordsKey(n),
		path: route.PathVocabulary,
		fn: fetch.Typed(func(ctx context.Context) (model.WordsPage, error) {
			return api.Words(ctx, n)
		}),
		policy: fetch.Policy{RetryServer: true},
	}
	p.pages = append(p.pages, r)
	r.load()
}

// canLoadMore reports whether another words page exists. A page that is
// still retrying does not hold back the next one.
func (p *VocabularyPage) canLoadMore() bool {
	return p.total > len(p.pages)
}

func (p *VocabularyPage) statsData() (model.StatsResponse, bool) {
	return fetch.Data[model.StatsResponse](p.stats.snapshot())
}

func (p *VocabularyPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case FetchMsg:
		if strings.HasPrefix(msg.Key, wordsKeyPrefix) {
			p.wordsChanged(msg.Key)
		}
		p.rebuild()
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *VocabularyPage) wordsChanged(k string) {
	for _, r := range p.pages {
		if r.key != k {
			continue
		}
		s := r.snapshot()
		if s.Status == fetch.StatusLoading && apierr.IsServer(s.LastErr) {
			p.deps.Notices.Error(vocabErrorID, vocabErrorTitle, vocabRetryingMsg)
		}
		if page, ok := fetch.Data[model.WordsPage](s); ok {
			p.total = max(p.total, page.Pages)
		}
	}
}

// rebuild regroups loaded words and recomputes the visible rows.
func (p *VocabularyPage) rebuild() {
	var words []model.Word
	for _, r := range p.pages {
		if page, ok := fetch.Data[model.WordsPage](r.snapshot()); ok {
			words = append(words, page.Words...)
		}
	}
	p.categories = groupWords(words)

	p.rows = p.rows[:0]
	if stats, ok := p.statsData(); ok {
		for i, ws := range stats.WordSkills {
			p.rows = append(p.rows, vocabRow{kind: rowSkill, skill: i})
			if p.skillOpen[ws.ID] {
				for j := range ws.Subcategories {
					p.rows = append(p.rows, vocabRow{kind: rowSubcategory, skill: i, sub: j})
				}
			}
		}
	}
	for i, c := range p.categories {
		p.rows = append(p.rows, vocabRow{kind: rowCategory, cat: i})
		if p.catOpen[c.name] {
			for j := range c.words {
				p.rows = append(p.rows, vocabRow{kind: rowWord, cat: i, word: j})
			}
		}
	}
	p.cursor = min(p.cursor, max(len(p.rows)-1, 0))
}

func (p *VocabularyPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	if p.rules != nil {
		if key.Matches(msg, keys.Escape, keys.Enter) {
			p.rules = nil
			return nil, nil
		}
		scrollModal(&p.vp, msg)
		return nil, nil
	}
	if p.info != nil {
		return p.handleInfoKey(msg), nil
	}

	switch {
	case key.Matches(msg, keys.Escape):
		return nil, navTo(route.PathStats)
	case key.Matches(msg, keys.Up):
		p.cursor = max(p.cursor-1, 0)
	case key.Matches(msg, keys.Down):
		p.cursor = min(p.cursor+1, max(len(p.rows)-1, 0))
	case key.Matches(msg, keys.More):
		if p.canLoadMore() {
			p.loadPage(len(p.pages) + 1)
		}
	case key.Matches(msg, keys.Retry):
		if p.stats.snapshot().Status == fetch.StatusFailed {
			p.stats.load()
		}
	case key.Matches(msg, keys.Info):
		if row, ok := p.current(); ok && row.kind == rowWord {
			p.openInfo(p.categories[row.cat].words[row.word])
		}
	case key.Matches(msg, keys.Enter):
		p.activate()
	}
	return nil, nil
}

func (p *VocabularyPage) handleInfoKey(msg tea.KeyMsg) tea.Cmd {
	variants := p.info.word.Variants
	switch {
	case key.Matches(msg, keys.Escape):
		p.info = nil
	case key.Matches(msg, keys.Up):
		p.info.cursor = max(p.info.cursor-1, 0)
	case key.Matches(msg, keys.Down):
		p.info.cursor = min(p.info.cursor+1, max(len(variants)-1, 0))
	case key.Matches(msg, keys.Rules):
		if p.info.cursor >= len(variants) {
			return nil
		}
		v := variants[p.info.cursor]
		if !p.rulesAvailable(v) {
			return nil
		}
		stats, _ := p.statsData()
		p.rules = &rulesView{
			title:     fmt.Sprintf("%s - %s", p.info.word.Type, v.Subcategory),
			rules:     variantRules(stats, p.info.word.Type, v),
			highlight: v.Rules,
		}
		p.vp.GotoTop()
	}
	return nil
}

func (p *VocabularyPage) openInfo(w model.Word) {
	p.info = &wordInfo{word: w}
	p.vp.GotoTop()
}

// rulesAvailable hides the rules action when stats failed to load.
func (p *VocabularyPage) rulesAvailable(v model.WordVariant) bool {
	stats, ok := p.statsData()
	return ok && len(v.Rules) > 0 && len(stats.WordSkills) > 0
}

func (p *VocabularyPage) current() (vocabRow, bool) {
	if p.cursor >= len(p.rows) {
		return vocabRow{}, false
	}
	return p.rows[p.cursor], true
}

func (p *VocabularyPage) activate() {
	row, ok := p.current()
	if !ok {
		return
	}
	switch row.kind {
	case rowSkill:
		stats, _ := p.statsData()
		id := stats.WordSkills[row.skill].ID
		p.skillOpen[id] = !p.skillOpen[id]
	case rowSubcategory:
		stats, _ := p.statsData()
		ws := stats.WordSkills[row.skill]
		sc := ws.Subcategories[row.sub]
		p.rules = &rulesView{title: ws.ID + " - " + sc.ID, rules: sc.Rules}
		p.vp.GotoTop()
	case rowCategory:
		name := p.categories[row.cat].name
		p.catOpen[name] = !p.catOpen[name]
	case rowWord:
		p.openInfo(p.categories[row.cat].words[row.word])
	}
	p.rebuild()
}

func (p *VocabularyPage) View(width, height int) string {
	if p.rules != nil {
		return p.renderRules(width, height)
	}
	if p.info != nil {
		return p.renderInfo(width, height)
	}

	stats := p.stats.snapshot()
	if stats.Status == fetch.StatusUnauthorized {
		return ""
	}
	if stats.Loading() && len(p.categories) == 0 && stats.Data == nil {
		return renderLoadingPlaceholder(width, height, "")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Vocabulary") + "\n\n")
	if stats.Status == fetch.StatusFailed {
		b.WriteString(errorStyle.Render("Something went wrong") + dimStyle.Render("  r: retry") + "\n\n")
	}

	s, _ := p.statsData()
	for i, row := range p.rows {
		b.WriteString(p.renderRow(s, row, i == p.cursor) + "\n")
	}
	if len(p.categories) == 0 && !p.wordsLoading() {
		b.WriteString(mutedStyle.Render("No words yet.") + "\n")
	}
	if p.wordsLoading() {
		b.WriteString("\n" + spinnerFrame() + " " + mutedStyle.Render("Loading words..."))
	}

	hints := "↑/↓: select  enter: expand  i: info  esc: back"
	if p.canLoadMore() {
		hints += "  m: load more"
	}
	b.WriteString("\n" + dimStyle.Render(hints))
	return lipgloss.NewStyle().Width(width).Height(height).Padding(0, 2).Render(b.String())
}

func (p *VocabularyPage) wordsLoading() bool {
	return slices.ContainsFunc(p.pages, func(r *resource) bool { return r.snapshot().Loading() })
}

func (p *VocabularyPage) renderRow(stats model.StatsResponse, row vocabRow, selected bool) string {
	var line string
	switch row.kind {
	case rowSkill:
		ws := stats.WordSkills[row.skill]
		line = fmt.Sprintf("%s %s  %d/%d", expander(p.skillOpen[ws.ID]), lipgloss.NewStyle().Bold(true).Render(ws.ID), ws.Mastery, model.MaxMastery)
	case rowSubcategory:
		sc := stats.WordSkills[row.skill].Subcategories[row.sub]
		line = fmt.Sprintf("    %s  %d/%d", sc.ID, sc.Mastery, model.MaxMastery)
	case rowCategory:
		c := p.categories[row.cat]
		line = fmt.Sprintf("%s %s  %s", expander(p.catOpen[c.name]), lipgloss.NewStyle().Bold(true).Render(c.name), percent(c.winPercent))
	case rowWord:
		w := p.categories[row.cat].words[row.word]
		line = fmt.Sprintf("    %s - %s %s", w.WordRU, w.WordEN, mutedStyle.Render("("+percent(w.WinPercent())+")"))
		if w.Locked {
			line = lockedStyle.Render(fmt.Sprintf("    %s - %s", w.WordRU, w.WordEN))
		}
	}
	if selected {
		return selectedStyle.Render("›") + " " + line
	}
	return "  " + line
}

func (p *VocabularyPage) renderInfo(width, height int) string {
	w := p.info.word
	var b strings.Builder
	for i, v := range w.Variants {
		marker := "  "
		if i == p.info.cursor {
			marker = selectedStyle.Render("›") + " "
		}
		name := v.WordRU
		if v.WordRUPrefix != "" {
			name = v.WordRUPrefix + " " + name
		}
		b.WriteString(fmt.Sprintf("%s%s (%s)", marker, lipgloss.NewStyle().Bold(true).Render(name), v.Name))
		if p.rulesAvailable(v) {
			b.WriteString(dimStyle.Render("  [g: rules]"))
		}
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("    Group: %s, Subcategory: %s", v.Group, v.Subcategory)) + "\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("    Win Percent: %s", percent(v.WinPercent))) + "\n")
	}
	return renderModal(&p.vp, w.WordRU+" - "+w.WordEN, b.String(), []string{"up/down: Select", "g: Rules", "ESC: Close"}, width, height)
}

func (p *VocabularyPage) renderRules(width, height int) string {
	var b strings.Builder
	if len(p.rules.rules) == 0 {
		b.WriteString(mutedStyle.Render("No rules.") + "\n")
	}
	for _, r := range p.rules.rules {
		text := fmt.Sprintf("%d. %s", r.ID, r.Rule)
		if slices.Contains(p.rules.highlight, r.ID) {
			text = highlightStyle.Render(text)
		}
		b.WriteString(text + "\n")
	}
	return renderModal(&p.vp, p.rules.title, b.String(), []string{"up/down: Scroll", "PgUp/PgDn: Page", "ESC: Close"}, width, height)
}

func expander(open bool) string {
	if open {
		return "▾"
	}
	return "▸"
}

func percent(v float64) string {
	return strconv.Itoa(int(math.Round(v))) + "%"
}
