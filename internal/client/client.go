// Package client wraps an LLM provider with model and token configuration.
package client

import (
	"context"
	"sync"

	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

const defaultMaxTokens = 8192

// TokenUsage tracks token consumption for a session. Usage aggregates at the
// session boundary; per-turn streams report their own counts independently.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Interface is the surface the agent runtime needs from a client.
// *Client is the production implementation; Fake is the test double.
type Interface interface {
	Send(ctx context.Context, msgs []message.Message, tools []provider.Tool, sysPrompt string) (message.CompletionResponse, error)
	Stream(ctx context.Context, msgs []message.Message, tools []provider.Tool, sysPrompt string) <-chan message.StreamChunk
	Complete(ctx context.Context, sysPrompt string, msgs []message.Message, maxTokens int) (message.CompletionResponse, error)
	AddUsage(usage message.Usage)
	Tokens() TokenUsage
	Name() string
	ModelID() string
}

// Client wraps an LLM provider with model and token configuration.
type Client struct {
	Provider  provider.LLMProvider
	Model     string
	MaxTokens int // custom override; 0 means default

	mu     sync.Mutex
	tokens TokenUsage
}

// AddUsage accumulates token usage from a completion response.
func (c *Client) AddUsage(usage message.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens.InputTokens += usage.InputTokens
	c.tokens.OutputTokens += usage.OutputTokens
	c.tokens.TotalTokens = c.tokens.InputTokens + c.tokens.OutputTokens
}

// Tokens returns the accumulated token usage.
func (c *Client) Tokens() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// Send sends a non-streaming completion request and returns the full response.
func (c *Client) Send(ctx context.Context, msgs []message.Message,
	tools []provider.Tool, sysPrompt string) (message.CompletionResponse, error) {
	return provider.Complete(ctx, c.Provider, c.opts(msgs, tools, sysPrompt))
}

// Stream starts a streaming completion request and returns a chunk channel.
func (c *Client) Stream(ctx context.Context, msgs []message.Message,
	tools []provider.Tool, sysPrompt string) <-chan message.StreamChunk {
	return c.Provider.Stream(ctx, c.opts(msgs, tools, sysPrompt))
}

// Complete sends a one-shot completion (custom max tokens, no tools).
// Used for utility calls like conversation compaction.
func (c *Client) Complete(ctx context.Context,
	sysPrompt string, msgs []message.Message, maxTokens int) (message.CompletionResponse, error) {
	return provider.Complete(ctx, c.Provider, provider.CompletionOptions{
		Model:        c.Model,
		SystemPrompt: sysPrompt,
		Messages:     msgs,
		MaxTokens:    maxTokens,
	})
}

// Name returns the provider name (e.g., "anthropic").
func (c *Client) Name() string {
	return c.Provider.Name()
}

// ModelID returns the model identifier.
func (c *Client) ModelID() string {
	return c.Model
}

// opts builds CompletionOptions from the client's configuration.
func (c *Client) opts(msgs []message.Message, tools []provider.Tool, sysPrompt string) provider.CompletionOptions {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return provider.CompletionOptions{
		Model:        c.Model,
		Messages:     msgs,
		MaxTokens:    maxTokens,
		Tools:        tools,
		SystemPrompt: sysPrompt,
	}
}

var _ Interface = (*Client)(nil)
