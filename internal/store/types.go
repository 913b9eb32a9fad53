package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// ErrPassNotFound is returned when a pass ID has no stored row.
var ErrPassNotFound = errors.New("pass not found")

// #region pass-record
// PassRecord is the stored report of one completed evaluation pass.
// ListPasses leaves Attempted, Failed and Results empty.
type PassRecord struct {
	PassID         string
	ExecutionID    string
	TotalEvaluated int
	FailureCount   int
	Summary        string
	CreatedAt      time.Time

	Attempted []string                    // first-seen order
	Failed    []string                    // first-recorded order
	Results   map[string][]summary.Result // per-expression recording order
}
// #endregion pass-record
