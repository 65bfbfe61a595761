package tool

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const maxGlobResults = 1000

// ignoredDirs are directories skipped during filesystem walks.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"vendor":       true,
	"target":       true,
	"__pycache__":  true,
	".cache":       true,
	"dist":         true,
	"build":        true,
}

// skipDir reports whether a directory should be skipped during a walk.
// Hidden directories are skipped except the walk root itself.
func skipDir(name string, isRoot bool) bool {
	if isRoot {
		return false
	}
	if ignoredDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// GlobTool finds files matching a glob pattern.
type GlobTool struct{}

func (t *GlobTool) Name() string        { return "Glob" }
func (t *GlobTool) Description() string { return "Find files matching a glob pattern" }
func (t *GlobTool) Permission() Permission {
	return ReadOnly
}

func (t *GlobTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. **/*.go",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search (defaults to cwd)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return errorResult(t.Name(), "pattern is required"), nil
	}

	basePath := tc.Cwd
	if path, ok := args["path"].(string); ok && path != "" {
		if filepath.IsAbs(path) {
			basePath = path
		} else {
			basePath = filepath.Join(tc.Cwd, path)
		}
	}

	if _, err := os.Stat(basePath); err != nil {
		if os.IsNotExist(err) {
			return errorResult(t.Name(), "path not found: "+basePath), nil
		}
		return errorResult(t.Name(), "failed to access path: "+err.Error()), nil
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo

	err := filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
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
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil || !matched {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, fileInfo{path: relPath, modTime: info.ModTime()})
		return nil
	})
	if err != nil && err != context.Canceled {
		return errorResult(t.Name(), "glob error: "+err.Error()), nil
	}

	// Newest first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	truncated := false
	if len(files) > maxGlobResults {
		files = files[:maxGlobResults]
		truncated = true
	}

	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f.path)
		sb.WriteString("\n")
	}
	output := strings.TrimSuffix(sb.String(), "\n")
	if output == "" {
		output = "No files matched " + pattern
	}

	return Result{
		Output: output,
		Title:  t.Name() + ": " + pattern,
		Metadata: map[string]any{
			"count":     len(files),
			"truncated": truncated,
		},
	}, nil
}
