package replay

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region types
// Outcome is one result an evaluation reported.
type Outcome struct {
	Level       summary.Level
	Description string
	Cause       summary.Kind
}

// Evaluation is a single evaluation of Expression. An evaluation with no
// outcomes succeeded.
type Evaluation struct {
	Expression string
	Outcomes   []Outcome
}

// Config controls how a replay runs.
type Config struct {
	// Concurrency is the number of evaluations in flight; 1 is sequential.
	Concurrency int
}

// DefaultConfig replays sequentially.
func DefaultConfig() Config {
	return Config{Concurrency: 1}
}

// Mismatch describes one way a summary differs from a fixture's expectations.
type Mismatch struct {
	Field    string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Field, m.Expected, m.Actual)
}

// #endregion types

// #region replay
// Replay feeds evaluations into a fresh summary the way an expression
// evaluator does: mark the attempt, record each outcome in order, then count
// the evaluation. Outcomes of one evaluation are always recorded by the same
// goroutine, so their order survives concurrent replay.
func Replay(ctx context.Context, evaluations []Evaluation, config Config) (*summary.EvaluationSummary, error) {
	s := summary.New()

	limit := config.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ev := range evaluations {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			apply(s, ev)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return s, fmt.Errorf("replay: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return s, fmt.Errorf("replay: %w", err)
	}
	return s, nil
}

func apply(s *summary.EvaluationSummary, ev Evaluation) {
	s.MarkAttempted(ev.Expression)
	for _, o := range ev.Outcomes {
		s.Add(ev.Expression, o.Level, o.Description, o.Cause)
	}
	s.IncrementTotalEvaluated()
}

// #endregion replay

// #region compare
// Compare checks s against the fixture's expectations. Sequential fixtures
// are compared in order, including the literal report line. With concurrency
// first-seen order depends on scheduling, so the attempted and failed lists
// are compared as sets and the report line is not checked.
func Compare(f *Fixture, s *summary.EvaluationSummary) []Mismatch {
	if f.Expected == nil {
		return nil
	}
	exp := f.Expected
	ordered := f.Concurrency <= 1
	var out []Mismatch

	if exp.TotalEvaluated != s.TotalEvaluated() {
		out = append(out, Mismatch{"total_evaluated", fmt.Sprint(exp.TotalEvaluated), fmt.Sprint(s.TotalEvaluated())})
	}
	if exp.FailureCount != s.FailureCount() {
		out = append(out, Mismatch{"failure_count", fmt.Sprint(exp.FailureCount), fmt.Sprint(s.FailureCount())})
	}
	if exp.Attempted != nil && !sameExpressions(exp.Attempted, s.Attempted(), ordered) {
		out = append(out, Mismatch{"attempted", fmt.Sprintf("%q", exp.Attempted), fmt.Sprintf("%q", s.Attempted())})
	}
	if exp.Failed != nil && !sameExpressions(exp.Failed, s.FailedExpressions(), ordered) {
		out = append(out, Mismatch{"failed", fmt.Sprintf("%q", exp.Failed), fmt.Sprintf("%q", s.FailedExpressions())})
	}
	if ordered && exp.Summary != "" {
		if got := s.String(); exp.Summary != got {
			out = append(out, Mismatch{"summary", fmt.Sprintf("%q", exp.Summary), fmt.Sprintf("%q", got)})
		}
	}
	return out
}

func sameExpressions(want, got []string, ordered bool) bool {
	if ordered {
		return slices.Equal(want, got)
	}
	a, b := slices.Clone(want), slices.Clone(got)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// #endregion compare

// #region stats
// ExpressionStats is the per-expression breakdown printed by the replay CLI.
type ExpressionStats struct {
	Expression string
	Errors     int
	Infos      int
	Causes     []string
}

// Breakdown lists every attempted expression with its result counts, in
// first-seen order. Expressions recorded without being attempted come last.
func Breakdown(s *summary.EvaluationSummary) []ExpressionStats {
	results := s.Results()
	seen := make(map[string]bool)
	var order []string
	for _, e := range s.Attempted() {
		seen[e] = true
		order = append(order, e)
	}
	for _, e := range s.FailedExpressions() {
		if !seen[e] {
			order = append(order, e)
		}
	}

	out := make([]ExpressionStats, 0, len(order))
	for _, expr := range order {
		st := ExpressionStats{Expression: expr}
		causes := make(map[string]bool)
		for _, r := range results[expr] {
			if r.Level == summary.LevelError {
				st.Errors++
			} else {
				st.Infos++
			}
			if r.Cause != summary.KindNone && !causes[string(r.Cause)] {
				causes[string(r.Cause)] = true
				st.Causes = append(st.Causes, string(r.Cause))
			}
		}
		out = append(out, st)
	}
	return out
}

// #endregion stats
