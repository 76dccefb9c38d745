package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed grounding.yaml
var groundingYAML []byte

type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type FieldStatistic struct {
	Field  string   `yaml:"field"`
	Values []string `yaml:"values"`
}

type ExampleQuery struct {
	Request string `yaml:"request"`
	Query   string `yaml:"query"`
}

// Grounding is the fixed in-context material every audience prompt carries. It describes the
// warehouse, not live data.
type Grounding struct {
	Version         int              `yaml:"version"`
	Table           string           `yaml:"table"`
	Schema          []Column         `yaml:"schema"`
	Statistics      []FieldStatistic `yaml:"statistics"`
	WhereExamples   []string         `yaml:"where_examples"`
	OrderByExamples []string         `yaml:"order_by_examples"`
	Example         ExampleQuery     `yaml:"example"`
}

var (
	groundingOnce sync.Once
	grounding     Grounding
	groundingErr  error
)

// LoadGrounding parses the embedded grounding file once.
func LoadGrounding() (Grounding, error) {
	groundingOnce.Do(func() {
		grounding, groundingErr = parseGrounding(groundingYAML)
	})
	return grounding, groundingErr
}

func parseGrounding(data []byte) (Grounding, error) {
	var g Grounding
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Grounding{}, fmt.Errorf("grounding yaml: %w", err)
	}
	if len(g.Schema) == 0 {
		return Grounding{}, fmt.Errorf("grounding yaml: empty schema")
	}
	if strings.TrimSpace(g.Example.Query) == "" {
		return Grounding{}, fmt.Errorf("grounding yaml: missing example query")
	}
	return g, nil
}

func (g Grounding) schemaText() string {
	lines := make([]string, 0, len(g.Schema))
	for _, c := range g.Schema {
		lines = append(lines, c.Name+" "+c.Type)
	}
	return strings.Join(lines, ",\n")
}

func (g Grounding) statisticsText() string {
	lines := make([]string, 0, len(g.Statistics))
	for _, s := range g.Statistics {
		lines = append(lines, "- "+s.Field+": "+strings.Join(s.Values, ", "))
	}
	return strings.Join(lines, "\n")
}

func bulleted(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}
