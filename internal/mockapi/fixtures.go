package mockapi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/russianllm/ruterm/internal/model"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the content served by the protected endpoints.
type Fixtures struct {
	Exercises model.ExercisesResponse `yaml:"exercises"`
	Stats     model.StatsResponse     `yaml:"stats"`
	Words     []model.WordsPage       `yaml:"words"`
}

// DefaultFixtures returns the built-in data set.
func DefaultFixtures() (Fixtures, error) {
	return parseFixtures(defaultFixtures)
}

// LoadFixtures reads a YAML data set from path. An empty path yields the
// built-in one.
func LoadFixtures(path string) (Fixtures, error) {
	if path == "" {
		return DefaultFixtures()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("reading fixtures: %w", err)
	}
	return parseFixtures(data)
}

func parseFixtures(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parsing fixtures: %w", err)
	}
	if len(f.Words) == 0 {
		return Fixtures{}, fmt.Errorf("parsing fixtures: no word pages")
	}
	for i := range f.Words {
		f.Words[i].Pages = len(f.Words)
	}
	return f, nil
}

// Page returns word page n, counted from 1.
func (f Fixtures) Page(n int) (model.WordsPage, bool) {
	if n < 1 || n > len(f.Words) {
		return model.WordsPage{}, false
	}
	return f.Words[n-1], true
}
