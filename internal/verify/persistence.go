package verify

import (
	"context"
	"fmt"
	"strings"
)

// RunQACycle repeats run-all-checks until everything passes or maxCycles is
// reached, returning every report. The caller is expected to change code
// between cycles; re-running without a state change produces identical
// evidence and the caller should stop.
func RunQACycle(ctx context.Context, projectRoot, cwd string, maxCycles int) []Report {
	checks := DetectChecks(projectRoot)
	if len(checks) == 0 {
		return nil
	}

	var reports []Report
	for cycle := 0; cycle < maxCycles; cycle++ {
		report := RunAll(ctx, checks, cwd)
		reports = append(reports, report)
		if report.AllPassed() {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return reports
}

// QASummary renders the outcome of a QA run.
func QASummary(reports []Report) string {
	if len(reports) == 0 {
		return "No verification checks detected."
	}

	lines := []string{fmt.Sprintf("QA ran %d cycle(s):", len(reports))}
	for i, report := range reports {
		status := "FAIL"
		if report.AllPassed() {
			status = "PASS"
		}
		passCount := 0
		for _, c := range report.Checks {
			if c.Passed() {
				passCount++
			}
		}
		lines = append(lines, fmt.Sprintf("  Cycle %d: [%s] %d/%d checks passed",
			i+1, status, passCount, len(report.Checks)))
	}

	last := reports[len(reports)-1]
	if last.AllPassed() {
		lines = append(lines, "All checks passed.")
	} else {
		lines = append(lines, "", "Last cycle failures:", last.Summary())
	}

	return strings.Join(lines, "\n")
}
