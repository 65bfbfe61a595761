package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EditTool performs a unique string replacement in a file.
type EditTool struct{}

func (t *EditTool) Name() string        { return "Edit" }
func (t *EditTool) Description() string { return "Edit a file by replacing a unique string" }
func (t *EditTool) Permission() Permission {
	return NeedsApproval
}

func (t *EditTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to edit",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "Exact text to replace; must occur exactly once",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

func (t *EditTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return errorResult(t.Name(), "file_path is required"), nil
	}
	oldString, ok := args["old_string"].(string)
	if !ok || oldString == "" {
		return errorResult(t.Name(), "old_string is required"), nil
	}
	newString, ok := args["new_string"].(string)
	if !ok {
		return errorResult(t.Name(), "new_string is required"), nil
	}

	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(tc.Cwd, filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(t.Name(), "file not found: "+filePath), nil
		}
		return errorResult(t.Name(), "failed to read file: "+err.Error()), nil
	}
	oldContent := string(content)

	count := strings.Count(oldContent, oldString)
	switch {
	case count == 0:
		return errorResultMeta(t.Name(),
			"old_string not found in file",
			map[string]any{"error": "no_match"}), nil
	case count > 1:
		return errorResultMeta(t.Name(),
			fmt.Sprintf("old_string occurs %d times; it must be unique", count),
			map[string]any{"error": "multiple_matches", "count": count}), nil
	}

	newContent := strings.Replace(oldContent, oldString, newString, 1)
	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return errorResult(t.Name(), "failed to write file: "+err.Error()), nil
	}

	if tc.Tracker != nil {
		tc.Tracker.Record(FileChange{
			Path:       filePath,
			Original:   &oldContent,
			NewContent: newContent,
			ToolName:   t.Name(),
		})
	}

	return Result{
		Output: "Successfully edited " + filePath,
		Title:  t.Name(),
		Metadata: map[string]any{
			"path": filePath,
			"diff": UnifiedDiff(filePath, oldContent, newContent),
		},
	}, nil
}
