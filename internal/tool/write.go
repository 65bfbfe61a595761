package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// WriteTool creates or overwrites a file.
type WriteTool struct{}

func (t *WriteTool) Name() string        { return "Write" }
func (t *WriteTool) Description() string { return "Write content to a file, creating it if needed" }
func (t *WriteTool) Permission() Permission {
	return NeedsApproval
}

func (t *WriteTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return errorResult(t.Name(), "file_path is required"), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return errorResult(t.Name(), "content is required"), nil
	}

	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(tc.Cwd, filePath)
	}

	// Capture the pre-image before the write.
	var original *string
	if existing, err := os.ReadFile(filePath); err == nil {
		s := string(existing)
		original = &s
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errorResult(t.Name(), "failed to create parent directories: "+err.Error()), nil
	}
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return errorResult(t.Name(), "failed to write file: "+err.Error()), nil
	}

	if tc.Tracker != nil {
		tc.Tracker.Record(FileChange{
			Path:       filePath,
			Original:   original,
			NewContent: content,
			ToolName:   t.Name(),
		})
	}

	action := "Created"
	if original != nil {
		action = "Updated"
	}
	return Result{
		Output: fmt.Sprintf("%s %s (%d bytes)", action, filePath, len(content)),
		Title:  t.Name(),
		Metadata: map[string]any{
			"path":    filePath,
			"bytes":   len(content),
			"created": original == nil,
		},
	}, nil
}
