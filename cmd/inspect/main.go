package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/exprsummary/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", os.Getenv("EXPRSUMMARY_DB"), "path to the passes database")
	executionID := flag.String("execution", "", "only list passes for this execution")
	last := flag.Int("last", 20, "show N most recent passes")
	passID := flag.String("pass", "", "show single pass detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/passes.db [--execution id] [--last N] [--pass id] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *passID != "" {
		err = runDetailMode(os.Stdout, st, *passID, *jsonOut)
	} else {
		err = runListMode(os.Stdout, st, *executionID, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		st.Close()
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	PassID         string `json:"pass_id"`
	ExecutionID    string `json:"execution_id"`
	TotalEvaluated int    `json:"total_evaluated"`
	FailureCount   int    `json:"failure_count"`
	CreatedAt      string `json:"created_at"`
	Summary        string `json:"summary"`
}

func runListMode(w io.Writer, st *store.Store, executionID string, last int, jsonOut bool) error {
	passes, err := st.ListPasses(executionID, last)
	if err != nil {
		return err
	}
	if len(passes) == 0 {
		fmt.Fprintln(os.Stderr, "no passes found")
		return nil
	}

	rows := make([]listRow, len(passes))
	for i, p := range passes {
		rows[i] = listRow{
			PassID:         p.PassID,
			ExecutionID:    p.ExecutionID,
			TotalEvaluated: p.TotalEvaluated,
			FailureCount:   p.FailureCount,
			CreatedAt:      p.CreatedAt.Format(time.RFC3339),
			Summary:        p.Summary,
		}
	}

	if jsonOut {
		return writeJSON(w, rows)
	}

	fmt.Fprintf(w, "%-36s  %-28s  %6s  %6s  %s\n", "PASS", "EXECUTION", "EVALS", "FAILED", "CREATED")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-28s  %6d  %6d  %s\n", r.PassID, r.ExecutionID, r.TotalEvaluated, r.FailureCount, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailResult struct {
	Seq         int    `json:"seq"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Cause       string `json:"cause,omitempty"`
	TimestampMS int64  `json:"timestamp_ms"`
}

type detailExpression struct {
	Expression string         `json:"expression"`
	Results    []detailResult `json:"results"`
}

type detailView struct {
	listRow
	Attempted []string           `json:"attempted"`
	Failed    []detailExpression `json:"failed"`
}

func runDetailMode(w io.Writer, st *store.Store, passID string, jsonOut bool) error {
	p, err := st.GetPass(passID)
	if err != nil {
		return err
	}

	view := detailView{
		listRow: listRow{
			PassID:         p.PassID,
			ExecutionID:    p.ExecutionID,
			TotalEvaluated: p.TotalEvaluated,
			FailureCount:   p.FailureCount,
			CreatedAt:      p.CreatedAt.Format(time.RFC3339),
			Summary:        p.Summary,
		},
		Attempted: p.Attempted,
	}
	for _, expr := range p.Failed {
		de := detailExpression{Expression: expr}
		for i, r := range p.Results[expr] {
			de.Results = append(de.Results, detailResult{
				Seq:         i,
				Level:       r.Level.String(),
				Description: r.Description,
				Cause:       string(r.Cause),
				TimestampMS: r.TimestampMillis(),
			})
		}
		view.Failed = append(view.Failed, de)
	}

	if jsonOut {
		return writeJSON(w, view)
	}

	fmt.Fprintf(w, "Pass:      %s\n", view.PassID)
	fmt.Fprintf(w, "Execution: %s\n", view.ExecutionID)
	fmt.Fprintf(w, "Created:   %s\n", view.CreatedAt)
	fmt.Fprintf(w, "Summary:   %s\n", view.Summary)
	fmt.Fprintf(w, "Attempted: %s\n", strings.Join(view.Attempted, ", "))
	for _, de := range view.Failed {
		fmt.Fprintf(w, "\n%s\n", de.Expression)
		for _, r := range de.Results {
			cause := r.Cause
			if cause == "" {
				cause = "-"
			}
			fmt.Fprintf(w, "  [%d] %-5s %-24s %s\n", r.Seq, r.Level, cause, r.Description)
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
