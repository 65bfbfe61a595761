package tool

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const maxGrepMatches = 500

// GrepTool searches file contents with a regular expression.
type GrepTool struct{}

func (t *GrepTool) Name() string        { return "Grep" }
func (t *GrepTool) Description() string { return "Search file contents with a regular expression" }
func (t *GrepTool) Permission() Permission {
	return ReadOnly
}

func (t *GrepTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression to search for",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File or directory to search (defaults to cwd)",
			},
			"include": map[string]any{
				"type":        "string",
				"description": "Glob filter on file names, e.g. *.go",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return errorResult(t.Name(), "pattern is required"), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errorResult(t.Name(), "invalid pattern: "+err.Error()), nil
	}

	basePath := tc.Cwd
	if path, ok := args["path"].(string); ok && path != "" {
		if filepath.IsAbs(path) {
			basePath = path
		} else {
			basePath = filepath.Join(tc.Cwd, path)
		}
	}
	include, _ := args["include"].(string)

	info, err := os.Stat(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(t.Name(), "path not found: "+basePath), nil
		}
		return errorResult(t.Name(), "failed to access path: "+err.Error()), nil
	}

	var sb strings.Builder
	matchCount := 0

	searchFile := func(filePath, relPath string) error {
		file, err := os.Open(filePath)
		if err != nil {
			return nil
		}
		defer file.Close()

		buf := make([]byte, 512)
		n, _ := file.Read(buf)
		if n > 0 && bytes.IndexByte(buf[:n], 0) >= 0 {
			return nil // binary
		}
		if _, err := file.Seek(0, 0); err != nil {
			return nil
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			if len(line) > maxLineLength {
				line = line[:maxLineLength] + "..."
			}
			fmt.Fprintf(&sb, "%s:%d:%s\n", relPath, lineNo, strings.TrimSpace(line))
			matchCount++
			if matchCount >= maxGrepMatches {
				return filepath.SkipAll
			}
		}
		return nil
	}

	if !info.IsDir() {
		_ = searchFile(basePath, filepath.Base(basePath))
	} else {
		err = filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.IsDir() {
				if skipDir(d.Name(), path == basePath) {
					return filepath.SkipDir
				}
				return nil
			}

			relPath, err := filepath.Rel(basePath, path)
			if err != nil {
				return nil
			}
			if include != "" {
				matched, err := doublestar.Match(include, filepath.Base(path))
				if err != nil || !matched {
					return nil
				}
			}
			return searchFile(path, relPath)
		})
		if err != nil && err != filepath.SkipAll && err != context.Canceled {
			return errorResult(t.Name(), "grep error: "+err.Error()), nil
		}
	}

	output := strings.TrimSuffix(sb.String(), "\n")
	if output == "" {
		output = "No matches for " + pattern
	}

	return Result{
		Output: output,
		Title:  t.Name() + ": " + pattern,
		Metadata: map[string]any{
			"matches":   matchCount,
			"truncated": matchCount >= maxGrepMatches,
		},
	}, nil
}
