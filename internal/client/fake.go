package client

import (
	"context"
	"sync"

	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

// Fake is a test double that returns predefined responses. It supports both
// streaming and non-streaming modes, tool calls, and multiple sequential
// responses for multi-turn conversations.
//
// Usage:
//
//	fake := &client.Fake{
//	    Responses: []message.CompletionResponse{
//	        {Content: "hello", StopReason: "end_turn"},
//	    },
//	}
type Fake struct {
	// Responses is the queue of responses to return, consumed in order.
	// Each call to Send/Stream pops the first entry. If exhausted, a
	// default "no more responses" reply is returned.
	Responses []message.CompletionResponse

	// Chunks optionally scripts raw stream chunks per call. When the queue
	// is non-empty, Stream pops and replays one script instead of
	// synthesizing a single done chunk from Responses.
	Chunks [][]message.StreamChunk

	// Model name (defaults to "fake-model").
	Model string

	// ProviderName (defaults to "fake").
	ProviderName string

	// Calls records every set of CompletionOptions received, in order.
	Calls []provider.CompletionOptions

	// ErrorAt injects an error on the Nth call (1-based). 0 means disabled.
	ErrorAt int

	// ErrorValue is the error to inject when ErrorAt triggers.
	ErrorValue error

	mu        sync.Mutex
	callCount int
	usage     TokenUsage
}

// Send returns the next response synchronously.
func (f *Fake) Send(_ context.Context, msgs []message.Message,
	tools []provider.Tool, sysPrompt string) (message.CompletionResponse, error) {
	f.recordCall(msgs, tools, sysPrompt)
	if f.shouldInjectError() {
		return message.CompletionResponse{}, f.ErrorValue
	}
	return f.next(), nil
}

// Stream returns the next scripted chunk sequence, or the next response as a
// single done chunk.
func (f *Fake) Stream(_ context.Context, msgs []message.Message,
	tools []provider.Tool, sysPrompt string) <-chan message.StreamChunk {
	f.recordCall(msgs, tools, sysPrompt)

	var script []message.StreamChunk
	switch {
	case f.shouldInjectError():
		script = []message.StreamChunk{{Type: message.ChunkTypeError, Error: f.ErrorValue}}
	case len(f.Chunks) > 0:
		f.mu.Lock()
		script = f.Chunks[0]
		f.Chunks = f.Chunks[1:]
		f.mu.Unlock()
	default:
		resp := f.next()
		script = []message.StreamChunk{{Type: message.ChunkTypeDone, Response: &resp}}
	}

	ch := make(chan message.StreamChunk, len(script))
	go func() {
		for _, chunk := range script {
			ch <- chunk
		}
		close(ch)
	}()
	return ch
}

// Complete returns the next response (used for utility calls like compaction).
func (f *Fake) Complete(_ context.Context,
	sysPrompt string, msgs []message.Message, maxTokens int) (message.CompletionResponse, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, provider.CompletionOptions{
		Model:        f.modelID(),
		SystemPrompt: sysPrompt,
		Messages:     msgs,
		MaxTokens:    maxTokens,
	})
	f.mu.Unlock()
	if f.shouldInjectError() {
		return message.CompletionResponse{}, f.ErrorValue
	}
	return f.next(), nil
}

// AddUsage accumulates token usage.
func (f *Fake) AddUsage(usage message.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage.InputTokens += usage.InputTokens
	f.usage.OutputTokens += usage.OutputTokens
	f.usage.TotalTokens = f.usage.InputTokens + f.usage.OutputTokens
}

// Tokens returns the accumulated token usage.
func (f *Fake) Tokens() TokenUsage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage
}

// Name returns the provider name.
func (f *Fake) Name() string {
	if f.ProviderName != "" {
		return f.ProviderName
	}
	return "fake"
}

// ModelID returns the model identifier.
func (f *Fake) ModelID() string {
	return f.modelID()
}

// --- helpers ---

// shouldInjectError increments callCount and returns true when ErrorAt matches.
func (f *Fake) shouldInjectError() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return f.ErrorAt > 0 && f.callCount == f.ErrorAt
}

func (f *Fake) next() message.CompletionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Responses) == 0 {
		return message.CompletionResponse{
			Content:    "no more responses",
			StopReason: "end_turn",
		}
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	return resp
}

func (f *Fake) modelID() string {
	if f.Model != "" {
		return f.Model
	}
	return "fake-model"
}

func (f *Fake) recordCall(msgs []message.Message, tools []provider.Tool, sysPrompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, provider.CompletionOptions{
		Model:        f.modelID(),
		Messages:     msgs,
		Tools:        tools,
		SystemPrompt: sysPrompt,
	})
}

var _ Interface = (*Fake)(nil)
