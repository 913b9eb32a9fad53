package logging

import (
	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region log-summary
// LogSummary reports a finished evaluation pass. A clean pass is one info
// line; a pass with results is a warn line followed by one debug line per
// recorded result.
func LogSummary(log *Logger, passID string, s *summary.EvaluationSummary) {
	if log == nil || s == nil {
		return
	}
	l := log.With("pass_id", passID)

	if !s.HasFailures() {
		l.Info("expression evaluation summary",
			"summary", s.String(),
			"total_evaluated", s.TotalEvaluated(),
		)
		return
	}

	l.Warn("expression evaluation summary",
		"summary", s.String(),
		"total_evaluated", s.TotalEvaluated(),
		"failure_count", s.FailureCount(),
	)

	results := s.Results()
	for _, expr := range s.FailedExpressions() {
		for i, r := range results[expr] {
			l.Debug("expression result",
				"expression", expr,
				"seq", i,
				"level", r.Level.String(),
				"cause", nullIfEmpty(string(r.Cause)),
				"description", r.Description,
				"timestamp_ms", r.TimestampMillis(),
			)
		}
	}
}

// #endregion log-summary

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
