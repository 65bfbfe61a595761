// Package judge scores and ranks candidate attempts produced for the same
// prompt, typically one per worktree in a multi-candidate run.
package judge

import (
	"fmt"
	"sort"
	"strings"
)

// Criterion identifies a scoring dimension.
type Criterion string

const (
	TestPassRate    Criterion = "TestPassRate"
	DiffSize        Criterion = "DiffSize"
	LintErrors      Criterion = "LintErrors"
	TypeErrors      Criterion = "TypeErrors"
	ComplexityDelta Criterion = "ComplexityDelta"
)

// Weight returns the criterion's weight in the total score.
func (c Criterion) Weight() float64 {
	switch c {
	case TestPassRate:
		return 3.0
	case LintErrors, TypeErrors:
		return 2.0
	default:
		return 1.0
	}
}

// Config controls a judging session.
type Config struct {
	Candidates int
	Criteria   []Criterion
}

// DefaultConfig matches the standard three-candidate run.
func DefaultConfig() Config {
	return Config{
		Candidates: 3,
		Criteria:   []Criterion{TestPassRate, DiffSize, LintErrors},
	}
}

// Score is one criterion's result for a candidate.
type Score struct {
	Criterion Criterion
	Value     float64
}

// CandidateResult carries one attempt's evidence and computed scores.
type CandidateResult struct {
	ID           int
	WorktreeName string
	Branch       string
	Scores       []Score
	TotalScore   float64
	DiffSummary  string
	TestOutput   string
	Success      bool
}

// Session accumulates candidate results for one prompt.
type Session struct {
	Config  Config
	Prompt  string
	Results []CandidateResult
}

// NewSession creates a judging session.
func NewSession(prompt string, config Config) *Session {
	return &Session{
		Config: config,
		Prompt: prompt,
	}
}

// Add appends a candidate result.
func (s *Session) Add(result CandidateResult) {
	s.Results = append(s.Results, result)
}

// Rank returns the candidates in descending score order. Ties break toward
// the lower id, so identical inputs rank deterministically.
func (s *Session) Rank() []CandidateResult {
	ranked := make([]CandidateResult, len(s.Results))
	copy(ranked, s.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Best returns the top-ranked candidate, or false when empty.
func (s *Session) Best() (CandidateResult, bool) {
	if len(s.Results) == 0 {
		return CandidateResult{}, false
	}
	return s.Rank()[0], true
}

// FormatComparison renders a ranked comparison of all candidates.
func (s *Session) FormatComparison() string {
	if len(s.Results) == 0 {
		return "No candidates to compare."
	}

	lines := []string{
		fmt.Sprintf("Judging %d candidates for: %s", len(s.Results), s.Prompt),
		"",
	}

	for rank, candidate := range s.Rank() {
		status := "FAIL"
		if candidate.Success {
			status = "PASS"
		}
		lines = append(lines, fmt.Sprintf("#%d [%s] Candidate %d (branch: %s) - Score: %.2f",
			rank+1, status, candidate.ID, candidate.Branch, candidate.TotalScore))
		for _, score := range candidate.Scores {
			lines = append(lines, fmt.Sprintf("    %s: %.2f", score.Criterion, score.Value))
		}
		if candidate.DiffSummary != "" {
			lines = append(lines, "    Diff: "+candidate.DiffSummary)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// ScoreTestOutput scores raw test output: a clean pass is 1.0; failures
// degrade proportionally to how much of the output mentions them.
func ScoreTestOutput(output string) float64 {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "test result: ok"),
		strings.Contains(lower, "tests passed"),
		strings.Contains(lower, "0 failed"):
		return 1.0
	case strings.Contains(lower, "failed"), strings.Contains(lower, "error"):
		failCount := strings.Count(lower, "failed") + strings.Count(lower, "error")
		totalLines := len(strings.Split(output, "\n"))
		if totalLines < 1 {
			totalLines = 1
		}
		score := 1.0 - float64(failCount)/float64(totalLines)
		if score < 0 {
			return 0
		}
		return score
	default:
		return 0.5
	}
}

// ScoreDiffSize scores a unified diff by line count: small diffs win.
func ScoreDiffSize(diff string) float64 {
	lines := 0
	if diff != "" {
		lines = len(strings.Split(diff, "\n"))
	}
	switch {
	case lines == 0:
		return 0.0
	case lines < 50:
		return 1.0
	case lines < 200:
		return 0.8
	case lines < 500:
		return 0.5
	default:
		return 0.3
	}
}

// ScoreLintOutput scores lint output: clean is 1.0, warnings-only 0.8, each
// error costs 0.2.
func ScoreLintOutput(output string) float64 {
	lower := strings.ToLower(output)
	errorCount := strings.Count(lower, "error")
	warningCount := strings.Count(lower, "warning")
	switch {
	case errorCount == 0 && warningCount == 0:
		return 1.0
	case errorCount == 0:
		return 0.8
	default:
		score := 1.0 - float64(errorCount)*0.2
		if score < 0 {
			return 0
		}
		return score
	}
}

// ComplexityDeltaScore is the reserved placeholder for complexity scoring.
const ComplexityDeltaScore = 0.5

// TotalScore computes the weighted average of the given scores.
func TotalScore(scores []Score) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	var weightedSum, totalWeight float64
	for _, s := range scores {
		w := s.Criterion.Weight()
		weightedSum += s.Value * w
		totalWeight += w
	}
	return weightedSum / totalWeight
}

// ScoreCandidate computes every configured criterion for one candidate and
// fills in its Scores and TotalScore.
func ScoreCandidate(candidate *CandidateResult, criteria []Criterion, lintOutput, typeOutput string) {
	candidate.Scores = candidate.Scores[:0]
	for _, criterion := range criteria {
		var value float64
		switch criterion {
		case TestPassRate:
			value = ScoreTestOutput(candidate.TestOutput)
		case DiffSize:
			value = ScoreDiffSize(candidate.DiffSummary)
		case LintErrors:
			value = ScoreLintOutput(lintOutput)
		case TypeErrors:
			value = ScoreLintOutput(typeOutput)
		case ComplexityDelta:
			value = ComplexityDeltaScore
		}
		candidate.Scores = append(candidate.Scores, Score{Criterion: criterion, Value: value})
	}
	candidate.TotalScore = TotalScore(candidate.Scores)
}
