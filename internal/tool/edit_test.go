package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	return &Context{
		SessionID:   "test-session",
		Cwd:         dir,
		ProjectRoot: dir,
		Tracker:     NewChangeTracker(),
	}
}

func TestEdit_ReplacesUniqueOccurrence(t *testing.T) {
	tc := testContext(t)
	path := filepath.Join(tc.Cwd, "f.go")
	os.WriteFile(path, []byte("hello world"), 0644)

	result, err := (&EditTool{}).Execute(context.Background(), map[string]any{
		"file_path":  "f.go",
		"old_string": "world",
		"new_string": "gopher",
	}, tc)
	if err != nil || result.IsError {
		t.Fatalf("edit failed: %v %+v", err, result)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello gopher" {
		t.Errorf("content = %q", data)
	}
	if tc.Tracker.Len() != 1 {
		t.Errorf("pre-image not recorded")
	}
}

func TestEdit_NoMatch(t *testing.T) {
	tc := testContext(t)
	os.WriteFile(filepath.Join(tc.Cwd, "f.go"), []byte("hello"), 0644)

	result, _ := (&EditTool{}).Execute(context.Background(), map[string]any{
		"file_path":  "f.go",
		"old_string": "absent",
		"new_string": "x",
	}, tc)

	if !result.IsError {
		t.Fatal("expected error result")
	}
	if result.Metadata["error"] != "no_match" {
		t.Errorf("metadata error = %v, want no_match", result.Metadata["error"])
	}
}

func TestEdit_MultipleMatches(t *testing.T) {
	tc := testContext(t)
	os.WriteFile(filepath.Join(tc.Cwd, "f.go"), []byte("aa aa aa"), 0644)

	result, _ := (&EditTool{}).Execute(context.Background(), map[string]any{
		"file_path":  "f.go",
		"old_string": "aa",
		"new_string": "bb",
	}, tc)

	if !result.IsError {
		t.Fatal("expected error result")
	}
	if result.Metadata["error"] != "multiple_matches" {
		t.Errorf("metadata error = %v, want multiple_matches", result.Metadata["error"])
	}
	if result.Metadata["count"] != 3 {
		t.Errorf("count = %v, want 3", result.Metadata["count"])
	}
}

func TestWrite_CreatesParentsAndRecordsAbsence(t *testing.T) {
	tc := testContext(t)

	result, err := (&WriteTool{}).Execute(context.Background(), map[string]any{
		"file_path": "nested/deep/f.txt",
		"content":   "data",
	}, tc)
	if err != nil || result.IsError {
		t.Fatalf("write failed: %v %+v", err, result)
	}

	data, err := os.ReadFile(filepath.Join(tc.Cwd, "nested/deep/f.txt"))
	if err != nil || string(data) != "data" {
		t.Fatalf("file not written: %v", err)
	}

	change, ok := tc.Tracker.Last()
	if !ok || change.Original != nil {
		t.Errorf("new file should record absent pre-image")
	}
}

func TestWrite_OverwriteRecordsPreImage(t *testing.T) {
	tc := testContext(t)
	path := filepath.Join(tc.Cwd, "f.txt")
	os.WriteFile(path, []byte("before"), 0644)

	_, err := (&WriteTool{}).Execute(context.Background(), map[string]any{
		"file_path": "f.txt",
		"content":   "after",
	}, tc)
	if err != nil {
		t.Fatal(err)
	}

	change, ok := tc.Tracker.Last()
	if !ok || change.Original == nil || *change.Original != "before" {
		t.Errorf("pre-image not captured: %+v", change)
	}
}
