package tool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxReadLines  = 2000
	maxLineLength = 500
)

// ReadTool reads file contents with line numbers.
type ReadTool struct{}

func (t *ReadTool) Name() string        { return "Read" }
func (t *ReadTool) Description() string { return "Read file contents with line numbers" }
func (t *ReadTool) Permission() Permission {
	return ReadOnly
}

func (t *ReadTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "1-based line to start reading from",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to return",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return errorResult(t.Name(), "file_path is required"), nil
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(tc.Cwd, filePath)
	}

	offset := intArg(args, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := intArg(args, "limit", maxReadLines)
	if limit <= 0 || limit > maxReadLines {
		limit = maxReadLines
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(t.Name(), "file not found: "+filePath), nil
		}
		return errorResult(t.Name(), "failed to stat file: "+err.Error()), nil
	}
	if info.IsDir() {
		return errorResult(t.Name(), "path is a directory: "+filePath), nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return errorResult(t.Name(), "failed to open file: "+err.Error()), nil
	}
	defer file.Close()

	// Sniff the first 512 bytes for a NUL; binary files are rejected
	// without allocating the full content.
	header := make([]byte, 512)
	n, _ := file.Read(header)
	for _, b := range header[:n] {
		if b == 0 {
			return Result{
				Output: "Binary file detected: " + filePath,
				Title:  t.Name(),
				Metadata: map[string]any{
					"binary": true,
					"size":   info.Size(),
				},
			}, nil
		}
	}
	if _, err := file.Seek(0, 0); err != nil {
		return errorResult(t.Name(), "failed to rewind file: "+err.Error()), nil
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	readCount := 0
	truncated := false

	for scanner.Scan() {
		lineNo++
		if offset > 0 && lineNo < offset {
			continue
		}
		if readCount >= limit {
			truncated = true
			break
		}

		text := scanner.Text()
		if len(text) > maxLineLength {
			text = text[:maxLineLength] + "..."
		}
		fmt.Fprintf(&sb, "%6d\t%s\n", lineNo, text)
		readCount++
	}
	if err := scanner.Err(); err != nil {
		return errorResult(t.Name(), "error reading file: "+err.Error()), nil
	}

	return Result{
		Output: sb.String(),
		Title:  t.Name(),
		Metadata: map[string]any{
			"path":      filePath,
			"lines":     readCount,
			"size":      info.Size(),
			"truncated": truncated,
		},
	}, nil
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
