// Package provider defines the contract between the agent runtime and LLM
// backends, plus retry policy for transient failures.
package provider

import (
	"context"

	"github.com/nyzhi-com/nyzhi/internal/message"
)

// Name identifies a provider backend.
type Name string

const (
	Anthropic Name = "anthropic"
	OpenAI    Name = "openai"
	Google    Name = "google"
	Moonshot  Name = "moonshot"
)

// ModelInfo represents information about an available model.
type ModelInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DisplayName      string `json:"displayName,omitempty"`
	InputTokenLimit  int    `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int    `json:"outputTokenLimit,omitempty"`
}

// CompletionOptions contains options for a completion request.
type CompletionOptions struct {
	Model        string
	Messages     []message.Message
	MaxTokens    int
	Temperature  float64
	Tools        []Tool
	SystemPrompt string
}

// Tool is the tool definition exported to providers.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"` // JSON Schema
}

// LLMProvider is the interface that all providers must implement.
type LLMProvider interface {
	// Stream sends a completion request and returns a channel of streaming chunks.
	Stream(ctx context.Context, opts CompletionOptions) <-chan message.StreamChunk

	// ListModels returns the available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name returns the provider name.
	Name() string
}

// Complete collects stream chunks into a complete response. This provides
// non-streaming output from any LLMProvider.
func Complete(ctx context.Context, p LLMProvider, opts CompletionOptions) (message.CompletionResponse, error) {
	var acc message.Accumulator

	for chunk := range p.Stream(ctx, opts) {
		select {
		case <-ctx.Done():
			return message.CompletionResponse{}, ctx.Err()
		default:
		}

		if chunk.Type == message.ChunkTypeDone && chunk.Response != nil {
			return *chunk.Response, nil
		}
		acc.Feed(chunk)
		if acc.Err != nil {
			return message.CompletionResponse{}, acc.Err
		}
	}

	return *acc.Response(), nil
}
