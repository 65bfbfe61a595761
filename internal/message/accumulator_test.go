package message

import (
	"errors"
	"testing"
)

func TestAccumulator_TextAndToolCalls(t *testing.T) {
	var acc Accumulator

	acc.Feed(StreamChunk{Type: ChunkTypeText, Text: "thinking "})
	acc.Feed(StreamChunk{Type: ChunkTypeToolStart, Index: 0, ToolID: "a", ToolName: "Glob"})
	acc.Feed(StreamChunk{Type: ChunkTypeToolInput, Index: 0, Text: `{"pattern":`})
	acc.Feed(StreamChunk{Type: ChunkTypeToolInput, Index: 0, Text: `"*.go"}`})
	acc.Feed(StreamChunk{Type: ChunkTypeToolDone, Index: 0})
	acc.Feed(StreamChunk{Type: ChunkTypeDone})

	if acc.Text != "thinking " {
		t.Errorf("unexpected text: %q", acc.Text)
	}
	if !acc.HasToolCalls() || len(acc.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(acc.ToolCalls))
	}
	tc := acc.ToolCalls[0]
	if tc.ID != "a" || tc.Name != "Glob" || tc.Input != `{"pattern":"*.go"}` {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if len(acc.InvalidCalls()) != 0 {
		t.Errorf("expected no invalid calls")
	}
}

func TestAccumulator_DeltaBeforeStartAttachesToLast(t *testing.T) {
	var acc Accumulator

	acc.Feed(StreamChunk{Type: ChunkTypeToolStart, Index: 0, ToolID: "a", ToolName: "Read"})
	// Index out of range: attributed to the last-started call.
	acc.Feed(StreamChunk{Type: ChunkTypeToolInput, Index: 5, Text: `{}`})

	if acc.ToolCalls[0].Input != "{}" {
		t.Errorf("delta not attributed to last call: %+v", acc.ToolCalls[0])
	}
}

func TestAccumulator_InvalidJSONFlagged(t *testing.T) {
	var acc Accumulator
	acc.Feed(StreamChunk{Type: ChunkTypeToolStart, Index: 0, ToolID: "a", ToolName: "Read"})
	acc.Feed(StreamChunk{Type: ChunkTypeToolInput, Index: 0, Text: `{"broken`})
	acc.Feed(StreamChunk{Type: ChunkTypeDone})

	bad := acc.InvalidCalls()
	if len(bad) != 1 || bad[0] != 0 {
		t.Errorf("expected call 0 flagged invalid, got %v", bad)
	}
}

func TestAccumulator_UsageKeepsGreaterCounts(t *testing.T) {
	var acc Accumulator
	acc.Feed(StreamChunk{Type: ChunkTypeUsage, Usage: Usage{InputTokens: 100}})
	acc.Feed(StreamChunk{Type: ChunkTypeUsage, Usage: Usage{OutputTokens: 20}})
	acc.Feed(StreamChunk{Type: ChunkTypeUsage, Usage: Usage{InputTokens: 90, OutputTokens: 45}})

	if acc.Usage.InputTokens != 100 {
		t.Errorf("input tokens = %d, want 100", acc.Usage.InputTokens)
	}
	if acc.Usage.OutputTokens != 45 {
		t.Errorf("output tokens = %d, want 45", acc.Usage.OutputTokens)
	}
}

func TestAccumulator_ErrorChunk(t *testing.T) {
	var acc Accumulator
	wantErr := errors.New("stream broke")
	acc.Feed(StreamChunk{Type: ChunkTypeError, Error: wantErr})

	if acc.Err != wantErr {
		t.Errorf("expected stream error to be captured")
	}
}

func TestAccumulator_ResponseStopReason(t *testing.T) {
	var acc Accumulator
	acc.Feed(StreamChunk{Type: ChunkTypeText, Text: "done"})
	if acc.Response().StopReason != "end_turn" {
		t.Errorf("expected end_turn without tool calls")
	}

	acc.Feed(StreamChunk{Type: ChunkTypeToolStart, ToolID: "x", ToolName: "Read"})
	if acc.Response().StopReason != "tool_use" {
		t.Errorf("expected tool_use with tool calls")
	}
}
