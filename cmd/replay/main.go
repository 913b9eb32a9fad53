package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/danielpatrickdp/exprsummary/internal/logging"
	"github.com/danielpatrickdp/exprsummary/internal/replay"
	"github.com/danielpatrickdp/exprsummary/internal/store"
	"github.com/danielpatrickdp/exprsummary/internal/summary"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture (.json, .yaml or .yml)")
	dbPath := flag.String("db", os.Getenv("EXPRSUMMARY_DB"), "save the pass to this SQLite database")
	executionID := flag.String("execution", "", "execution ID to save under (defaults to the fixture's)")
	concurrency := flag.Int("concurrency", 0, "evaluations in flight (overrides the fixture)")
	logMode := flag.String("log-mode", envOr("EXPRSUMMARY_LOG_MODE", "dev"), "dev or prod")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--db path] [--execution id] [--concurrency N] [--log-mode dev|prod]")
		os.Exit(2)
	}

	log, err := logging.New(*logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, log, *fixturePath, *dbPath, *executionID, *concurrency)
	stop()
	log.Sync()
	os.Exit(code)
}

// #endregion main

// #region run

func run(ctx context.Context, log *logging.Logger, fixturePath, dbPath, executionID string, concurrency int) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if concurrency > 0 {
		f.Concurrency = concurrency
	}
	if executionID == "" {
		executionID = f.ExecutionID
	}

	s, err := replay.Replay(ctx, f.ToEvaluations(), f.ToConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	printBreakdown(s)

	passID := ""
	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			return 2
		}
		defer st.Close()

		rec, err := st.SavePass(executionID, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "save pass: %v\n", err)
			return 2
		}
		passID = rec.PassID
		fmt.Printf("saved pass %s (execution %s)\n", passID, executionID)
	}

	logging.LogSummary(log.With("execution_id", executionID), passID, s)

	mismatches := replay.Compare(f, s)
	for _, m := range mismatches {
		fmt.Printf("DIFF %s\n", m)
	}
	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion run

// #region output

func printBreakdown(s *summary.EvaluationSummary) {
	fmt.Printf("%-40s| %-7s| %-7s| %s\n", "Expression", "Errors", "Infos", "Causes")
	fmt.Printf("%-40s+%-8s+%-8s+%s\n",
		strings.Repeat("-", 40), "--------", "--------", "--------")
	for _, st := range replay.Breakdown(s) {
		fmt.Printf("%-40s| %-7d| %-7d| %s\n", truncate(st.Expression, 40), st.Errors, st.Infos, strings.Join(st.Causes, ","))
	}
	fmt.Printf("\n%s\n", s)
}

// truncate shortens s to n runes, never splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// #endregion output

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
