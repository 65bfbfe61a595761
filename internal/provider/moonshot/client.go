// Package moonshot implements the LLMProvider interface for the Moonshot AI
// platform. Moonshot's API is OpenAI-compatible, so it reuses the openai-go
// SDK with a custom base URL.
package moonshot

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	openaiprovider "github.com/nyzhi-com/nyzhi/internal/provider/openai"

	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

const baseURL = "https://api.moonshot.ai/v1"

// Client implements the LLMProvider interface for Moonshot AI.
type Client struct {
	client openai.Client
	name   string
}

// NewClient creates a new Moonshot client with the given OpenAI SDK client.
func NewClient(client openai.Client, name string) *Client {
	return &Client{
		client: client,
		name:   name,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Stream sends a completion request and returns a channel of streaming chunks.
func (c *Client) Stream(ctx context.Context, opts provider.CompletionOptions) <-chan message.StreamChunk {
	return openaiprovider.StreamChat(ctx, c.client, c.name, opts)
}

// ListModels returns the available Kimi models.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	pager := c.client.Models.ListAutoPaging(ctx)

	var models []provider.ModelInfo
	for pager.Next() {
		m := pager.Current()
		if !strings.Contains(m.ID, "kimi") && !strings.Contains(m.ID, "moonshot") {
			continue
		}
		models = append(models, provider.ModelInfo{
			ID:          m.ID,
			Name:        m.ID,
			DisplayName: m.ID,
		})
	}
	if err := pager.Err(); err != nil {
		return nil, err
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// NewAPIKeyClient creates a new Moonshot client using API key authentication.
func NewAPIKeyClient(_ context.Context) (provider.LLMProvider, error) {
	apiKey := os.Getenv("MOONSHOT_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("MOONSHOT_API_KEY is not set")
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return NewClient(client, "moonshot"), nil
}

var _ provider.LLMProvider = (*Client)(nil)
