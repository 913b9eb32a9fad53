package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region fixture-types

// Fixture is the top-level structure of a replay fixture (JSON or YAML).
type Fixture struct {
	Description string              `json:"description" yaml:"description"`
	ExecutionID string              `json:"execution_id" yaml:"execution_id"`
	Concurrency int                 `json:"concurrency" yaml:"concurrency"`
	Evaluations []FixtureEvaluation `json:"evaluations" yaml:"evaluations"`
	Expected    *FixtureExpected    `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// FixtureEvaluation is one evaluation of an expression and what it produced.
type FixtureEvaluation struct {
	Expression string           `json:"expression" yaml:"expression"`
	Outcomes   []FixtureOutcome `json:"outcomes" yaml:"outcomes"`
}

// FixtureOutcome is one recorded result. Cause is empty for INFO outcomes
// that did not come from an error.
type FixtureOutcome struct {
	Level       summary.Level `json:"level" yaml:"level"`
	Description string        `json:"description" yaml:"description"`
	Cause       string        `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// FixtureExpected holds the counters, expression lists and report a replay
// should produce. Nil lists and an empty Summary are not checked.
type FixtureExpected struct {
	TotalEvaluated int      `json:"total_evaluated" yaml:"total_evaluated"`
	FailureCount   int      `json:"failure_count" yaml:"failure_count"`
	Attempted      []string `json:"attempted,omitempty" yaml:"attempted,omitempty"`
	Failed         []string `json:"failed,omitempty" yaml:"failed,omitempty"`
	Summary        string   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. ".yaml" and ".yml" are parsed as YAML,
// everything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToEvaluations converts the fixture's evaluations to domain Evaluations.
func (f *Fixture) ToEvaluations() []Evaluation {
	out := make([]Evaluation, len(f.Evaluations))
	for i, fe := range f.Evaluations {
		ev := Evaluation{Expression: fe.Expression}
		for _, o := range fe.Outcomes {
			ev.Outcomes = append(ev.Outcomes, Outcome{
				Level:       o.Level,
				Description: o.Description,
				Cause:       summary.Kind(o.Cause),
			})
		}
		out[i] = ev
	}
	return out
}

// ToConfig returns the replay config the fixture asks for.
func (f *Fixture) ToConfig() Config {
	cfg := DefaultConfig()
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	return cfg
}

// #endregion fixture-loader
