package message

import (
	"encoding/json"
	"strings"
)

// Accumulator reconstructs a complete response from provider stream chunks.
// Tool call indices are dense from 0; an input delta arriving before any
// start is attributed to the last-started call.
type Accumulator struct {
	Text      string
	Thinking  string
	ToolCalls []ToolCall
	Usage     Usage
	Done      bool

	// Err holds a stream-level error chunk, if one arrived.
	Err error
}

// Feed processes one stream chunk.
func (a *Accumulator) Feed(chunk StreamChunk) {
	switch chunk.Type {
	case ChunkTypeText:
		a.Text += chunk.Text

	case ChunkTypeThinking:
		a.Thinking += chunk.Text

	case ChunkTypeToolStart:
		a.ToolCalls = append(a.ToolCalls, ToolCall{
			ID:   chunk.ToolID,
			Name: chunk.ToolName,
		})

	case ChunkTypeToolInput:
		if chunk.Index >= 0 && chunk.Index < len(a.ToolCalls) {
			a.ToolCalls[chunk.Index].Input += chunk.Text
		} else if len(a.ToolCalls) > 0 {
			a.ToolCalls[len(a.ToolCalls)-1].Input += chunk.Text
		}

	case ChunkTypeUsage:
		a.Usage.Merge(chunk.Usage)

	case ChunkTypeDone:
		a.Done = true
		if chunk.Response != nil {
			if a.Text == "" {
				a.Text = chunk.Response.Content
			}
			if a.Thinking == "" {
				a.Thinking = chunk.Response.Thinking
			}
			if len(a.ToolCalls) == 0 {
				a.ToolCalls = chunk.Response.ToolCalls
			}
			a.Usage.Merge(chunk.Response.Usage)
		}

	case ChunkTypeError:
		a.Err = chunk.Error
	}
}

// HasToolCalls reports whether any tool calls were accumulated.
func (a *Accumulator) HasToolCalls() bool {
	return len(a.ToolCalls) > 0
}

// InvalidCalls returns the indices of accumulated calls whose argument
// strings do not parse as JSON. A malformed call is surfaced as a tool
// failure by the loop rather than aborting the turn.
func (a *Accumulator) InvalidCalls() []int {
	var bad []int
	for i, tc := range a.ToolCalls {
		input := strings.TrimSpace(tc.Input)
		if input == "" {
			continue
		}
		if !json.Valid([]byte(input)) {
			bad = append(bad, i)
		}
	}
	return bad
}

// Response assembles the accumulated state into a CompletionResponse.
func (a *Accumulator) Response() *CompletionResponse {
	stop := "end_turn"
	if len(a.ToolCalls) > 0 {
		stop = "tool_use"
	}
	return &CompletionResponse{
		Content:    a.Text,
		Thinking:   a.Thinking,
		ToolCalls:  a.ToolCalls,
		StopReason: stop,
		Usage:      a.Usage,
	}
}
