package replay

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region fixture-tests

// TestFixture_Sequential replays the ordered fixture and checks the exact
// report line, including first-seen ordering.
func TestFixture_Sequential(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "sequential.json"))
	require.NoError(t, err)

	s, err := Replay(context.Background(), f.ToEvaluations(), f.ToConfig())
	require.NoError(t, err)

	assert.Empty(t, Compare(f, s))

	bake := "${#stage('Bake')['context']['amiId'] / 0}"
	rs := s.Results()[bake]
	require.Len(t, rs, 3)
	assert.Equal(t, summary.LevelError, rs[0].Level)
	assert.Equal(t, summary.Kind("ArithmeticError"), rs[0].Cause)
	assert.Equal(t, summary.LevelInfo, rs[2].Level)
	assert.Equal(t, summary.KindNone, rs[2].Cause)
}

// TestFixture_Concurrent replays the YAML fixture with four workers.
func TestFixture_Concurrent(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "concurrent.yaml"))
	require.NoError(t, err)
	require.Equal(t, 4, f.Concurrency)
	require.Len(t, f.Evaluations, 6)
	assert.Empty(t, f.Evaluations[1].Outcomes)

	s, err := Replay(context.Background(), f.ToEvaluations(), f.ToConfig())
	require.NoError(t, err)

	assert.Empty(t, Compare(f, s))
	assert.ElementsMatch(t, []string{"${a}", "${c}", "${d}"}, s.FailedExpressions())
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture(filepath.Join("testdata", "missing.json"))
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, writeFile(bad, "evaluations:\n  - expression: x\n    outcomes:\n      - level: WARN\n"))
	_, err = LoadFixture(bad)
	assert.Error(t, err, "unknown level should fail to parse")
}

// #endregion fixture-tests

// #region replay-tests
func TestReplay_OrderWithinEvaluation(t *testing.T) {
	evals := []Evaluation{{
		Expression: "${x}",
		Outcomes: []Outcome{
			{Level: summary.LevelError, Description: "1"},
			{Level: summary.LevelInfo, Description: "2"},
			{Level: summary.LevelInfo, Description: "3"},
		},
	}}

	s, err := Replay(context.Background(), evals, DefaultConfig())
	require.NoError(t, err)

	rs := s.Results()["${x}"]
	require.Len(t, rs, 3)
	for i, r := range rs {
		assert.Equal(t, fmt.Sprint(i+1), r.Description)
	}
}

func TestReplay_ManyConcurrentEvaluations(t *testing.T) {
	const k = 200
	evals := make([]Evaluation, k)
	for i := range evals {
		evals[i] = Evaluation{
			Expression: fmt.Sprintf("${e%d}", i),
			Outcomes:   []Outcome{{Level: summary.LevelError, Description: "boom"}},
		}
	}

	s, err := Replay(context.Background(), evals, Config{Concurrency: 16})
	require.NoError(t, err)

	assert.Equal(t, k, s.TotalEvaluated())
	assert.Equal(t, k, s.FailureCount())
	assert.Len(t, s.Results(), k)
	assert.Len(t, s.Attempted(), k)
}

func TestReplay_ZeroConcurrencyIsSequential(t *testing.T) {
	evals := []Evaluation{{Expression: "${a}"}, {Expression: "${b}"}}
	s, err := Replay(context.Background(), evals, Config{})
	require.NoError(t, err)
	assert.Equal(t, "Evaluated 2 expression(s) - (${a},${b}), 0 failed - ()", s.String())
}

func TestReplay_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := Replay(ctx, []Evaluation{{Expression: "${a}"}}, DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.TotalEvaluated())
}

// #endregion replay-tests

// #region compare-tests
func TestCompare(t *testing.T) {
	s := summary.New()
	s.MarkAttempted("${b}")
	s.MarkAttempted("${a}")
	s.Add("${a}", summary.LevelError, "x", summary.KindNone)
	s.IncrementTotalEvaluated()
	s.IncrementTotalEvaluated()

	tests := []struct {
		name        string
		concurrency int
		expected    *FixtureExpected
		wantFields  []string
	}{
		{"no expectations", 1, nil, nil},
		{"exact match", 1, &FixtureExpected{
			TotalEvaluated: 2, FailureCount: 1,
			Attempted: []string{"${b}", "${a}"}, Failed: []string{"${a}"},
			Summary:   "Evaluated 2 expression(s) - (${b},${a}), 1 failed - (${a})",
		}, nil},
		{"order differs sequential", 1, &FixtureExpected{
			TotalEvaluated: 2, FailureCount: 1,
			Attempted: []string{"${a}", "${b}"},
			Summary:   "Evaluated 2 expression(s) - (${a},${b}), 1 failed - (${a})",
		}, []string{"attempted", "summary"}},
		{"order differs concurrent", 2, &FixtureExpected{
			TotalEvaluated: 2, FailureCount: 1,
			Attempted: []string{"${a}", "${b}"}, Failed: []string{"${a}"},
			Summary:   "Evaluated 2 expression(s) - (${a},${b}), 1 failed - (${a})",
		}, nil},
		{"set differs concurrent", 2, &FixtureExpected{
			TotalEvaluated: 2, FailureCount: 1,
			Attempted: []string{"${a}", "${c}"}, Failed: []string{"${b}"},
		}, []string{"attempted", "failed"}},
		{"counts differ", 1, &FixtureExpected{TotalEvaluated: 3}, []string{"total_evaluated", "failure_count"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fixture{Concurrency: tt.concurrency, Expected: tt.expected}
			var fields []string
			for _, m := range Compare(f, s) {
				fields = append(fields, m.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

// Expressions may contain commas; the lists must be compared element-wise,
// never by splitting the rendered report line.
func TestCompare_ExpressionsWithCommas(t *testing.T) {
	s := summary.New()
	s.MarkAttempted("${c}")
	s.MarkAttempted("${f(a,b)}")
	s.Add("${f(a,b)}", summary.LevelError, "boom", summary.KindNone)
	s.IncrementTotalEvaluated()
	s.IncrementTotalEvaluated()

	wrong := &Fixture{Concurrency: 4, Expected: &FixtureExpected{
		TotalEvaluated: 2,
		FailureCount:   1,
		Attempted:      []string{"${f(a", "${c}", "b)}"},
		Failed:         []string{"${f(a,b)}"},
	}}
	mismatches := Compare(wrong, s)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "attempted", mismatches[0].Field)

	right := &Fixture{Concurrency: 4, Expected: &FixtureExpected{
		TotalEvaluated: 2,
		FailureCount:   1,
		Attempted:      []string{"${f(a,b)}", "${c}"},
		Failed:         []string{"${f(a,b)}"},
	}}
	assert.Empty(t, Compare(right, s))
}

// #endregion compare-tests

// #region breakdown-tests
func TestBreakdown(t *testing.T) {
	s := summary.New()
	s.MarkAttempted("${a}")
	s.MarkAttempted("${b}")
	s.Add("${a}", summary.LevelError, "x", summary.Kind("ArithmeticError"))
	s.Add("${a}", summary.LevelError, "y", summary.Kind("ArithmeticError"))
	s.Add("${a}", summary.LevelInfo, "z", summary.KindNone)
	s.Add("${orphan}", summary.LevelInfo, "never attempted", summary.KindNone)

	got := Breakdown(s)
	require.Len(t, got, 3)
	assert.Equal(t, ExpressionStats{Expression: "${a}", Errors: 2, Infos: 1, Causes: []string{"ArithmeticError"}}, got[0])
	assert.Equal(t, ExpressionStats{Expression: "${b}"}, got[1])
	assert.Equal(t, "${orphan}", got[2].Expression)
	assert.Equal(t, 1, got[2].Infos)
}

// #endregion breakdown-tests
