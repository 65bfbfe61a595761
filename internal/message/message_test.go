package message

import (
	"strings"
	"testing"
)

func TestParseToolInput(t *testing.T) {
	params, err := ParseToolInput(`{"file_path": "a.go", "limit": 10}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["file_path"] != "a.go" {
		t.Errorf("file_path = %v", params["file_path"])
	}

	params, err = ParseToolInput("")
	if err != nil || len(params) != 0 {
		t.Errorf("empty input should yield empty params, got %v, %v", params, err)
	}

	if _, err := ParseToolInput("{broken"); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestBuildConversationText(t *testing.T) {
	msgs := []Message{
		UserMessage("fix the bug"),
		AssistantMessage("looking", "", []ToolCall{{ID: "1", Name: "Read"}}),
		ToolResultMessage(ToolResult{ToolCallID: "1", ToolName: "Read", Content: strings.Repeat("x", 600)}),
	}

	text := BuildConversationText(msgs)
	if !strings.Contains(text, "User: fix the bug") {
		t.Error("missing user content")
	}
	if !strings.Contains(text, "[Tool Call: Read]") {
		t.Error("missing tool call marker")
	}
	if !strings.Contains(text, "...[truncated]") {
		t.Error("long tool results should be truncated")
	}
}

func TestToolResultMessageRole(t *testing.T) {
	m := ToolResultMessage(ToolResult{ToolCallID: "1", Content: "ok"})
	if m.Role != RoleTool {
		t.Errorf("role = %s, want %s", m.Role, RoleTool)
	}
	if m.ToolResult == nil || m.ToolResult.ToolCallID != "1" {
		t.Error("tool result not carried")
	}
}

func TestUsageMerge(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5}
	u.Merge(Usage{InputTokens: 3, OutputTokens: 9})
	if u.InputTokens != 10 || u.OutputTokens != 9 {
		t.Errorf("merge kept wrong counts: %+v", u)
	}
}
