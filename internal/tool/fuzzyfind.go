package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	maxFuzzyResults = 20
	maxFuzzyFiles   = 10_000
)

// FuzzyFindTool ranks project files against a fuzzy path query
// (e.g. "agmod" matches "agent/mod.go").
type FuzzyFindTool struct{}

func (t *FuzzyFindTool) Name() string { return "FuzzyFind" }
func (t *FuzzyFindTool) Description() string {
	return "Fast fuzzy filename search across the project, returning ranked results"
}
func (t *FuzzyFindTool) Permission() Permission {
	return ReadOnly
}

func (t *FuzzyFindTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Fuzzy search query for filename/path matching",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum results to return (default 20)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *FuzzyFindTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return errorResult(t.Name(), "query is required"), nil
	}
	maxResults := intArg(args, "max_results", maxFuzzyResults)
	if maxResults <= 0 || maxResults > maxFuzzyResults {
		maxResults = maxFuzzyResults
	}

	root := tc.ProjectRoot
	if root == "" {
		root = tc.Cwd
	}

	var files []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(files) >= maxFuzzyFiles {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if skipDir(d.Name(), path == root) {
				return filepath.SkipDir
			}
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			files = append(files, rel)
		}
		return nil
	})

	queryLower := []rune(strings.ToLower(query))

	type match struct {
		path  string
		score int
	}
	var scored []match
	for _, path := range files {
		if score := fuzzyScore(queryLower, strings.ToLower(path)); score > 0 {
			scored = append(scored, match{path: path, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	if len(scored) == 0 {
		return Result{
			Output:   "No files matched the query.",
			Title:    t.Name() + ": " + query,
			Metadata: map[string]any{"match_count": 0},
		}, nil
	}

	var sb strings.Builder
	for _, m := range scored {
		fmt.Fprintf(&sb, "%s  (score: %d)\n", m.path, m.score)
	}

	return Result{
		Output:   strings.TrimSuffix(sb.String(), "\n"),
		Title:    t.Name() + ": " + query,
		Metadata: map[string]any{"match_count": len(scored)},
	}, nil
}

// fuzzyScore matches query characters in order against the candidate path.
// Consecutive matches and matches after path separators score higher; a
// query character that never appears yields zero.
func fuzzyScore(query []rune, candidate string) int {
	if len(query) == 0 {
		return 0
	}

	score := 0
	streak := 0
	qi := 0
	prev := rune(0)

	for _, c := range candidate {
		if qi < len(query) && c == query[qi] {
			qi++
			streak++
			score += 10 + streak*5
			if prev == '/' || prev == '_' || prev == '-' || prev == '.' {
				score += 15
			}
		} else {
			streak = 0
		}
		prev = c
	}

	if qi < len(query) {
		return 0
	}
	// Shorter paths rank higher on equal character matches.
	score -= len(candidate) / 4
	if score < 1 {
		score = 1
	}
	return score
}
