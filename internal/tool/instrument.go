package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DebugMarker prefixes every instrumentation line so removal can find them.
const DebugMarker = "/* NYZHI_DEBUG */"

// Instrumentation records one inserted debug line.
type Instrumentation struct {
	File             string
	Line             int
	InstrumentedLine string
}

// InstrumentStore tracks instrumentation per session so removal only touches
// lines added by the owning session.
type InstrumentStore struct {
	mu      sync.Mutex
	entries map[string][]Instrumentation
}

// NewInstrumentStore creates an empty store.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{entries: make(map[string][]Instrumentation)}
}

func (s *InstrumentStore) add(sessionID string, inst Instrumentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = append(s.entries[sessionID], inst)
}

func (s *InstrumentStore) take(sessionID string) []Instrumentation {
	s.mu.Lock()
	defer s.mu.Unlock()
	insts := s.entries[sessionID]
	delete(s.entries, sessionID)
	return insts
}

// InstrumentTool inserts temporary debug lines into a file. Each inserted
// line carries the debug marker and is tracked for later removal.
type InstrumentTool struct {
	Store *InstrumentStore
}

func (t *InstrumentTool) Name() string { return "Instrument" }
func (t *InstrumentTool) Description() string {
	return "Add temporary debug instrumentation (logging/assertions) to a file; " +
		"removable with RemoveInstrumentation"
}
func (t *InstrumentTool) Permission() Permission {
	return NeedsApproval
}

func (t *InstrumentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file": map[string]any{
				"type":        "string",
				"description": "File to instrument",
			},
			"line": map[string]any{
				"type":        "integer",
				"description": "Line number to insert instrumentation AFTER",
			},
			"code": map[string]any{
				"type":        "string",
				"description": "Debug code to insert (e.g. a log statement)",
			},
		},
		"required": []string{"file", "line", "code"},
	}
}

func (t *InstrumentTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	file, ok := args["file"].(string)
	if !ok || file == "" {
		return errorResult(t.Name(), "file is required"), nil
	}
	line := intArg(args, "line", -1)
	if line < 0 {
		return errorResult(t.Name(), "line is required"), nil
	}
	code, ok := args["code"].(string)
	if !ok || code == "" {
		return errorResult(t.Name(), "code is required"), nil
	}

	filePath := file
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(tc.Cwd, filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return errorResult(t.Name(), "failed to read file: "+err.Error()), nil
	}
	original := string(content)
	lines := strings.Split(original, "\n")

	if line > len(lines) {
		return errorResult(t.Name(), fmt.Sprintf("line %d exceeds file length %d", line, len(lines))), nil
	}

	marker := DebugMarker + " " + code
	lines = append(lines[:line], append([]string{marker}, lines[line:]...)...)
	newContent := strings.Join(lines, "\n")

	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return errorResult(t.Name(), "failed to write file: "+err.Error()), nil
	}

	if tc.Tracker != nil {
		tc.Tracker.Record(FileChange{
			Path:       filePath,
			Original:   &original,
			NewContent: newContent,
			ToolName:   t.Name(),
		})
	}
	if t.Store != nil {
		t.Store.add(tc.SessionID, Instrumentation{
			File:             filePath,
			Line:             line,
			InstrumentedLine: marker,
		})
	}

	return Result{
		Output: fmt.Sprintf("Inserted debug instrumentation at %s:%d", file, line),
		Title:  fmt.Sprintf("%s: %s:%d", t.Name(), file, line),
		Metadata: map[string]any{
			"file": file,
			"line": line,
		},
	}, nil
}

// RemoveInstrumentationTool deletes exactly the marker-bearing lines the
// owning session inserted.
type RemoveInstrumentationTool struct {
	Store *InstrumentStore
}

func (t *RemoveInstrumentationTool) Name() string { return "RemoveInstrumentation" }
func (t *RemoveInstrumentationTool) Description() string {
	return "Remove all debug instrumentation added by this session"
}
func (t *RemoveInstrumentationTool) Permission() Permission {
	return NeedsApproval
}

func (t *RemoveInstrumentationTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *RemoveInstrumentationTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	if t.Store == nil {
		return errorResult(t.Name(), "no instrumentation store attached"), nil
	}

	insts := t.Store.take(tc.SessionID)
	if len(insts) == 0 {
		return Result{
			Output:   "No instrumentation to remove.",
			Title:    t.Name(),
			Metadata: map[string]any{"removed": 0},
		}, nil
	}

	// Group by file; each file is rewritten once. Only the lines this session
	// inserted are removed, counted per distinct inserted line.
	byFile := make(map[string]map[string]int)
	for _, inst := range insts {
		if byFile[inst.File] == nil {
			byFile[inst.File] = make(map[string]int)
		}
		byFile[inst.File][strings.SplitN(inst.InstrumentedLine, "\n", 2)[0]]++
	}

	removed := 0
	for file, pending := range byFile {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		original := string(content)
		lines := strings.Split(original, "\n")

		kept := lines[:0]
		for _, l := range lines {
			if pending[l] > 0 {
				pending[l]--
				removed++
				continue
			}
			kept = append(kept, l)
		}
		newContent := strings.Join(kept, "\n")

		if err := os.WriteFile(file, []byte(newContent), 0644); err != nil {
			continue
		}
		if tc.Tracker != nil {
			tc.Tracker.Record(FileChange{
				Path:       file,
				Original:   &original,
				NewContent: newContent,
				ToolName:   t.Name(),
			})
		}
	}

	return Result{
		Output: fmt.Sprintf("Removed %d instrumentation line(s) from %d file(s)", removed, len(byFile)),
		Title:  t.Name(),
		Metadata: map[string]any{
			"removed": removed,
			"files":   len(byFile),
		},
	}, nil
}
