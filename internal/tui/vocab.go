package tui

import (
	"cmp"
	"slices"

	"github.com/russianllm/ruterm/internal/model"
)

// wordCategory is the words of one category in display order.
type wordCategory struct {
	name  string
	words []model.Word
	// mean win percent over unlocked words
	winPercent float64
}

// groupWords splits words into categories in first-seen order and sorts each.
func groupWords(words []model.Word) []wordCategory {
	var out []wordCategory
	index := make(map[string]int)
	for _, w := range words {
		i, ok := index[w.Category]
		if !ok {
			i = len(out)
			index[w.Category] = i
			out = append(out, wordCategory{name: w.Category})
		}
		out[i].words = append(out[i].words, w)
	}
	for i := range out {
		sortWords(out[i].words)
		out[i].winPercent = categoryWinPercent(out[i].words)
	}
	return out
}

// sortWords orders unlocked words first, then by win percent descending,
// then by English name.
func sortWords(words []model.Word) {
	slices.SortStableFunc(words, func(a, b model.Word) int {
		if a.Locked != b.Locked {
			if a.Locked {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(b.WinPercent(), a.WinPercent()); c != 0 {
			return c
		}
		return cmp.Compare(a.WordEN, b.WordEN)
	})
}

func categoryWinPercent(words []model.Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Locked {
			continue
		}
		sum += w.WinPercent()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// variantRules resolves the rules shown for a variant of a word of the given
// type. It returns nil when stats do not describe the subcategory.
func variantRules(stats model.StatsResponse, wordType string, v model.WordVariant) []model.WordRule {
	skill, ok := stats.WordSkill(wordType)
	if !ok {
		return nil
	}
	sub, ok := skill.Subcategory(v.Subcategory)
	if !ok {
		return nil
	}
	return sub.Rules
}
