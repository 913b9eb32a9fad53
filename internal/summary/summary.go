// Package summary collects the outcome of evaluating a set of expressions
// during one evaluation pass and renders a one-line report at the end.
//
// An EvaluationSummary never returns errors and never logs. It is safe for
// concurrent use by any number of evaluators.
package summary

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// #region summary-struct
// EvaluationSummary accumulates results and counters for one evaluation pass.
// The zero value is ready to use.
type EvaluationSummary struct {
	mu sync.RWMutex

	results     map[string][]Result
	failedOrder []string

	attempted      map[string]struct{}
	attemptedOrder []string

	failureCount   atomic.Int64
	totalEvaluated atomic.Int64

	now func() time.Time
}

// #endregion summary-struct

// #region constructor
// New creates an empty summary.
func New() *EvaluationSummary {
	return &EvaluationSummary{
		results:   make(map[string][]Result),
		attempted: make(map[string]struct{}),
		now:       time.Now,
	}
}

// #endregion constructor

// #region writers
// Add appends a result for expression, stamped with the current time,
// and counts it as a failure.
func (s *EvaluationSummary) Add(expression string, level Level, description string, cause Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results == nil {
		s.results = make(map[string][]Result)
	}
	prev, seen := s.results[expression]
	if !seen {
		s.failedOrder = append(s.failedOrder, expression)
	}
	s.results[expression] = append(prev, Result{
		Level:       level,
		Timestamp:   s.clock(),
		Description: description,
		Cause:       cause,
	})
	// Counted under the lock so the count always matches the stored results.
	s.failureCount.Add(1)
}

// RecordError records err as an ERROR result for expression. Nil errors are ignored.
func (s *EvaluationSummary) RecordError(expression string, err error) {
	if err == nil {
		return
	}
	s.Add(expression, LevelError, err.Error(), KindOf(err))
}

// IncrementTotalEvaluated counts one finished evaluation.
func (s *EvaluationSummary) IncrementTotalEvaluated() {
	s.totalEvaluated.Add(1)
}

// MarkAttempted notes that expression was attempted. Repeated calls are no-ops.
func (s *EvaluationSummary) MarkAttempted(expression string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempted == nil {
		s.attempted = make(map[string]struct{})
	}
	if _, ok := s.attempted[expression]; ok {
		return
	}
	s.attempted[expression] = struct{}{}
	s.attemptedOrder = append(s.attemptedOrder, expression)
}

// #endregion writers

// #region readers
// TotalEvaluated returns the number of finished evaluations so far.
func (s *EvaluationSummary) TotalEvaluated() int {
	return int(s.totalEvaluated.Load())
}

// FailureCount returns the number of results recorded so far, at any level.
func (s *EvaluationSummary) FailureCount() int {
	return int(s.failureCount.Load())
}

// HasFailures reports whether any result has been recorded.
func (s *EvaluationSummary) HasFailures() bool {
	return s.FailureCount() > 0
}

// Results returns a copy of the recorded results keyed by expression.
// Each slice is in recording order.
func (s *EvaluationSummary) Results() map[string][]Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Result, len(s.results))
	for expr, rs := range s.results {
		out[expr] = append([]Result(nil), rs...)
	}
	return out
}

// Attempted returns the distinct attempted expressions in first-seen order.
func (s *EvaluationSummary) Attempted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.attemptedOrder...)
}

// FailedExpressions returns the expressions with at least one result,
// in the order their first result was recorded.
func (s *EvaluationSummary) FailedExpressions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.failedOrder...)
}

// String renders the one-line report:
//
//	Evaluated <N> expression(s) - (<attempted>), <M> failed - (<failed>)
func (s *EvaluationSummary) String() string {
	s.mu.RLock()
	attempted := strings.Join(s.attemptedOrder, ",")
	failed := strings.Join(s.failedOrder, ",")
	s.mu.RUnlock()

	return fmt.Sprintf("Evaluated %d expression(s) - (%s), %d failed - (%s)",
		s.TotalEvaluated(),
		attempted,
		s.FailureCount(),
		failed,
	)
}

// #endregion readers

// #region helpers
func (s *EvaluationSummary) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// #endregion helpers
