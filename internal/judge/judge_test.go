package judge

import (
	"strings"
	"testing"
)

func TestScoreTestOutput(t *testing.T) {
	cases := []struct {
		output string
		want   float64
	}{
		{"test result: ok. 12 passed", 1.0},
		{"all tests passed", 1.0},
		{"12 passed, 0 failed", 1.0},
		{"no test framework output", 0.5},
	}
	for _, c := range cases {
		if got := ScoreTestOutput(c.output); got != c.want {
			t.Errorf("ScoreTestOutput(%q) = %v, want %v", c.output, got, c.want)
		}
	}

	if got := ScoreTestOutput("FAILED: everything broke\nerror: bad"); got >= 1.0 {
		t.Errorf("failing output should score below 1.0, got %v", got)
	}
}

func TestScoreDiffSizeBands(t *testing.T) {
	mkDiff := func(lines int) string {
		return strings.Repeat("+ line\n", lines)
	}
	cases := []struct {
		lines int
		want  float64
	}{
		{0, 0.0},
		{10, 1.0},
		{100, 0.8},
		{300, 0.5},
		{1000, 0.3},
	}
	for _, c := range cases {
		diff := ""
		if c.lines > 0 {
			diff = mkDiff(c.lines)
		}
		if got := ScoreDiffSize(diff); got != c.want {
			t.Errorf("ScoreDiffSize(%d lines) = %v, want %v", c.lines, got, c.want)
		}
	}
}

func TestScoreLintOutput(t *testing.T) {
	if got := ScoreLintOutput("clean"); got != 1.0 {
		t.Errorf("clean = %v", got)
	}
	if got := ScoreLintOutput("warning: unused variable"); got != 0.8 {
		t.Errorf("warnings only = %v", got)
	}
	if got := ScoreLintOutput("error: bad\nerror: worse"); got != 0.6 {
		t.Errorf("two errors = %v, want 0.6", got)
	}
}

func TestTotalScoreWeights(t *testing.T) {
	scores := []Score{
		{Criterion: TestPassRate, Value: 1.0},
		{Criterion: LintErrors, Value: 0.5},
		{Criterion: DiffSize, Value: 0.0},
	}
	// (3*1.0 + 2*0.5 + 1*0.0) / 6 = 4/6
	want := 4.0 / 6.0
	if got := TotalScore(scores); got != want {
		t.Errorf("TotalScore = %v, want %v", got, want)
	}

	if TotalScore(nil) != 0.0 {
		t.Error("empty scores should total 0")
	}
}

func TestBestAndRankDeterministic(t *testing.T) {
	mk := func() *Session {
		s := NewSession("fix the bug", DefaultConfig())
		s.Add(CandidateResult{ID: 2, TotalScore: 0.9})
		s.Add(CandidateResult{ID: 0, TotalScore: 0.9})
		s.Add(CandidateResult{ID: 1, TotalScore: 0.4})
		return s
	}

	first := mk()
	second := mk()

	best1, ok := first.Best()
	best2, _ := second.Best()
	if !ok {
		t.Fatal("expected a best candidate")
	}
	if best1.ID != best2.ID {
		t.Error("best must be deterministic for identical inputs")
	}
	if best1.ID != 0 {
		t.Errorf("tie should break to lower id, got %d", best1.ID)
	}

	ranked := first.Rank()
	if ranked[0].ID != 0 || ranked[1].ID != 2 || ranked[2].ID != 1 {
		t.Errorf("rank order = %d,%d,%d", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestBestEmpty(t *testing.T) {
	s := NewSession("p", DefaultConfig())
	if _, ok := s.Best(); ok {
		t.Error("empty session has no best")
	}
}

func TestScoreCandidate(t *testing.T) {
	candidate := CandidateResult{
		ID:          1,
		TestOutput:  "tests passed",
		DiffSummary: strings.Repeat("+x\n", 10),
	}
	ScoreCandidate(&candidate, []Criterion{TestPassRate, DiffSize, ComplexityDelta}, "", "")

	if len(candidate.Scores) != 3 {
		t.Fatalf("scores = %d", len(candidate.Scores))
	}
	// (3*1.0 + 1*1.0 + 1*0.5) / 5 = 0.9
	if candidate.TotalScore != 0.9 {
		t.Errorf("total = %v, want 0.9", candidate.TotalScore)
	}
}

func TestFormatComparison(t *testing.T) {
	s := NewSession("task", DefaultConfig())
	if got := s.FormatComparison(); got != "No candidates to compare." {
		t.Errorf("empty comparison = %q", got)
	}

	s.Add(CandidateResult{ID: 1, Branch: "worktree-a", TotalScore: 0.7, Success: true})
	out := s.FormatComparison()
	if !strings.Contains(out, "[PASS]") || !strings.Contains(out, "worktree-a") {
		t.Errorf("comparison missing fields: %q", out)
	}
}
