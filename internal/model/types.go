package model

import (
	"cmp"
	"slices"
	"time"
)

// Session is the authenticated identity returned by login and the session probe.
type Session struct {
	Username string    `json:"username"`
	ExpireAt time.Time `json:"-"`
}

// Valid reports whether the session has not yet expired at now.
func (s Session) Valid(now time.Time) bool {
	return !s.ExpireAt.IsZero() && s.ExpireAt.After(now)
}

// SessionPayload is the wire form of a session: expiry in epoch milliseconds.
type SessionPayload struct {
	Username      string `json:"username"`
	SessionExpire int64  `json:"sessionExpire"`
}

// Session converts the wire payload.
func (p SessionPayload) Session() Session {
	return Session{Username: p.Username, ExpireAt: time.UnixMilli(p.SessionExpire)}
}

// ExerciseKind groups exercises on the catalog page.
type ExerciseKind string

const (
	ExerciseAlphabet   ExerciseKind = "alphabet"
	ExerciseGrammar    ExerciseKind = "grammar"
	ExerciseVocabulary ExerciseKind = "vocabulary"
)

// ExerciseType is one group of exercises.
type ExerciseType struct {
	ID          ExerciseKind `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description *string      `json:"description" yaml:"description"`
}

// ExerciseOverview is a single entry of the exercises catalog.
type ExerciseOverview struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description *string      `json:"description" yaml:"description"`
	Type        ExerciseKind `json:"type" yaml:"type"`
	Mastery     int          `json:"mastery" yaml:"mastery"`
	Locked      bool         `json:"locked" yaml:"locked"`
	SortOrder   int          `json:"sort_order" yaml:"sort_order"`
}

// ExercisesResponse is the body of GET /exercises.
type ExercisesResponse struct {
	Types     []ExerciseType     `json:"types" yaml:"types"`
	Exercises []ExerciseOverview `json:"exercises" yaml:"exercises"`
}

// ExercisesOf returns the exercises of one type ordered by sort order.
func (r ExercisesResponse) ExercisesOf(kind ExerciseKind) []ExerciseOverview {
	var out []ExerciseOverview
	for _, ex := range r.Exercises {
		if ex.Type == kind {
			out = append(out, ex)
		}
	}
	sortExercises(out)
	return out
}

// Find returns the exercise with the given id.
func (r ExercisesResponse) Find(id string) (ExerciseOverview, bool) {
	for _, ex := range r.Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return ExerciseOverview{}, false
}

func sortExercises(list []ExerciseOverview) {
	slices.SortStableFunc(list, func(a, b ExerciseOverview) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
}

// MaxMastery is the top of the mastery scale used by skills.
const MaxMastery = 4

// Skill is one language skill on the stats page.
type Skill struct {
	ID      string `json:"id" yaml:"id"`
	Mastery int    `json:"mastery" yaml:"mastery"`
}

// WordRule is a grammar rule attached to a word subcategory.
type WordRule struct {
	ID   int    `json:"id" yaml:"id"`
	Rule string `json:"rule" yaml:"rule"`
}

// WordSubcategory is a sub-skill of a word skill.
type WordSubcategory struct {
	ID      string     `json:"id" yaml:"id"`
	Mastery int        `json:"mastery" yaml:"mastery"`
	Rules   []WordRule `json:"rules" yaml:"rules"`
}

// WordSkill is a vocabulary skill broken down into subcategories.
type WordSkill struct {
	ID            string            `json:"id" yaml:"id"`
	Mastery       int               `json:"mastery" yaml:"mastery"`
	Subcategories []WordSubcategory `json:"subcategories" yaml:"subcategories"`
}

// Subcategory looks up a subcategory by id.
func (w WordSkill) Subcategory(id string) (WordSubcategory, bool) {
	for _, sc := range w.Subcategories {
		if sc.ID == id {
			return sc, true
		}
	}
	return WordSubcategory{}, false
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	LanguageSkills []Skill     `json:"language_skills" yaml:"language_skills"`
	WordSkills     []WordSkill `json:"word_skills" yaml:"word_skills"`
}

// WordSkill looks up a word skill by id.
func (s StatsResponse) WordSkill(id string) (WordSkill, bool) {
	for _, ws := range s.WordSkills {
		if ws.ID == id {
			return ws, true
		}
	}
	return WordSkill{}, false
}

// WordVariant is one inflected form of a word.
type WordVariant struct {
	Name         string  `json:"name" yaml:"name"`
	Group        string  `json:"group" yaml:"group"`
	WordRU       string  `json:"word_ru" yaml:"word_ru"`
	WordRUPrefix string  `json:"word_ru_prefix" yaml:"word_ru_prefix"`
	SortOrder    int     `json:"sort_order" yaml:"sort_order"`
	WinPercent   float64 `json:"win_percent" yaml:"win_percent"`
	Subcategory  string  `json:"subcategory" yaml:"subcategory"`
	Rules        []int   `json:"rules" yaml:"rules"`
}

// Word is a vocabulary entry.
type Word struct {
	WordRU   string        `json:"word_ru" yaml:"word_ru"`
	WordEN   string        `json:"word_en" yaml:"word_en"`
	Category string        `json:"category" yaml:"category"`
	Locked   bool          `json:"locked" yaml:"locked"`
	Type     string        `json:"type" yaml:"type"`
	Variants []WordVariant `json:"variants" yaml:"variants"`
}

// WinPercent is the mean win percentage across the word's variants.
func (w Word) WinPercent() float64 {
	if len(w.Variants) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.Variants {
		sum += v.WinPercent
	}
	return sum / float64(len(w.Variants))
}

// WordsPage is the body of GET /words?page=N.
type WordsPage struct {
	Words []Word `json:"words" yaml:"words"`
	Pages int    `json:"pages" yaml:"pages"`
}

// ResetPasswordRequest is the body of PUT /password-reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
