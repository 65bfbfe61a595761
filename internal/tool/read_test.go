package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRead_LineNumbers(t *testing.T) {
	tc := testContext(t)
	os.WriteFile(filepath.Join(tc.Cwd, "f.txt"), []byte("one\ntwo\nthree\n"), 0644)

	result, err := (&ReadTool{}).Execute(context.Background(), map[string]any{
		"file_path": "f.txt",
	}, tc)
	if err != nil || result.IsError {
		t.Fatalf("read failed: %v %+v", err, result)
	}
	if !strings.Contains(result.Output, "1\tone") || !strings.Contains(result.Output, "3\tthree") {
		t.Errorf("missing numbered lines: %q", result.Output)
	}
}

func TestRead_OffsetAndLimit(t *testing.T) {
	tc := testContext(t)
	os.WriteFile(filepath.Join(tc.Cwd, "f.txt"), []byte("a\nb\nc\nd\ne\n"), 0644)

	result, _ := (&ReadTool{}).Execute(context.Background(), map[string]any{
		"file_path": "f.txt",
		"offset":    float64(2),
		"limit":     float64(2),
	}, tc)

	if strings.Contains(result.Output, "\ta\n") {
		t.Errorf("offset not applied: %q", result.Output)
	}
	if result.Metadata["lines"] != 2 {
		t.Errorf("lines = %v, want 2", result.Metadata["lines"])
	}
	if result.Metadata["truncated"] != true {
		t.Errorf("expected truncated flag")
	}
}

func TestRead_BinaryDetected(t *testing.T) {
	tc := testContext(t)
	os.WriteFile(filepath.Join(tc.Cwd, "bin"), []byte{'a', 0x00, 'b'}, 0644)

	result, _ := (&ReadTool{}).Execute(context.Background(), map[string]any{
		"file_path": "bin",
	}, tc)

	if result.IsError {
		t.Fatalf("binary read should not be an error: %+v", result)
	}
	if result.Metadata["binary"] != true {
		t.Errorf("expected binary metadata, got %v", result.Metadata)
	}
	if strings.Contains(result.Output, "\x00") {
		t.Error("binary content should not be returned")
	}
}

func TestRead_MissingFile(t *testing.T) {
	tc := testContext(t)
	result, _ := (&ReadTool{}).Execute(context.Background(), map[string]any{
		"file_path": "nope.txt",
	}, tc)
	if !result.IsError {
		t.Error("expected error for missing file")
	}
}
