// Package openai implements the LLMProvider interface using the OpenAI SDK
// Chat Completions API. The conversion helpers are shared with the moonshot
// provider, whose platform is OpenAI-compatible.
package openai

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/message"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

// Client implements the LLMProvider interface using the OpenAI SDK.
type Client struct {
	client openai.Client
	name   string
}

// NewClient creates a new OpenAI client with the given SDK client.
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

// ConvertMessages converts runtime messages to Chat Completions params.
func ConvertMessages(opts provider.CompletionOptions) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(opts.Messages)+1)

	if opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
	}

	for _, msg := range opts.Messages {
		switch msg.Role {
		case message.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case message.RoleTool:
			if msg.ToolResult != nil {
				messages = append(messages, openai.ToolMessage(
					msg.ToolResult.Content,
					msg.ToolResult.ToolCallID,
				))
			}
		case message.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				var asstMsg openai.ChatCompletionAssistantMessageParam
				if msg.Content != "" {
					asstMsg.Content.OfString = openai.Opt(msg.Content)
				}
				asstMsg.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					asstMsg.ToolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.Name,
								Arguments: tc.Input,
							},
						},
					}
				}
				messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &asstMsg})
			} else {
				messages = append(messages, openai.AssistantMessage(msg.Content))
			}
		default:
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}

	return messages
}

// ConvertTools converts runtime tool definitions to Chat Completions params.
func ConvertTools(opts provider.CompletionOptions) []openai.ChatCompletionToolUnionParam {
	if len(opts.Tools) == 0 {
		return nil
	}
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		var funcParams openai.FunctionParameters
		if props, ok := t.Parameters.(map[string]any); ok {
			funcParams = props
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  funcParams,
				},
			},
		})
	}
	return tools
}

// StreamChat runs a Chat Completions streaming request against the given SDK
// client, translating SDK events into runtime stream chunks.
func StreamChat(ctx context.Context, client openai.Client, name string, opts provider.CompletionOptions) <-chan message.StreamChunk {
	ch := make(chan message.StreamChunk)

	go func() {
		defer close(ch)

		params := openai.ChatCompletionNewParams{
			Model:    opts.Model,
			Messages: ConvertMessages(opts),
		}

		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
		if opts.Temperature > 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
		if tools := ConvertTools(opts); tools != nil {
			params.Tools = tools
		}

		stream := client.Chat.Completions.NewStreaming(ctx, params)

		toolCalls := make(map[int]*message.ToolCall)
		var order []int
		var response message.CompletionResponse

		streamStart := time.Now()
		chunkCount := 0

		for stream.Next() {
			chunk := stream.Current()
			chunkCount++

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					ch <- message.StreamChunk{
						Type: message.ChunkTypeText,
						Text: choice.Delta.Content,
					}
					response.Content += choice.Delta.Content
				}

				for _, tc := range choice.Delta.ToolCalls {
					idx := int(tc.Index)

					if _, exists := toolCalls[idx]; !exists {
						toolCalls[idx] = &message.ToolCall{
							ID:   tc.ID,
							Name: tc.Function.Name,
						}
						order = append(order, idx)
						ch <- message.StreamChunk{
							Type:     message.ChunkTypeToolStart,
							Index:    len(order) - 1,
							ToolID:   tc.ID,
							ToolName: tc.Function.Name,
						}
					}

					if tc.Function.Arguments != "" {
						toolCalls[idx].Input += tc.Function.Arguments
						ch <- message.StreamChunk{
							Type:   message.ChunkTypeToolInput,
							Index:  len(order) - 1,
							ToolID: toolCalls[idx].ID,
							Text:   tc.Function.Arguments,
						}
					}
				}

				if choice.FinishReason != "" {
					switch choice.FinishReason {
					case "stop":
						response.StopReason = "end_turn"
					case "tool_calls":
						response.StopReason = "tool_use"
					case "length":
						response.StopReason = "max_tokens"
					default:
						response.StopReason = choice.FinishReason
					}
				}
			}

			if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
				usage := message.Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				}
				response.Usage.Merge(usage)
				ch <- message.StreamChunk{Type: message.ChunkTypeUsage, Usage: usage}
			}
		}

		log.LogStreamDone(name, time.Since(streamStart), chunkCount)

		if err := stream.Err(); err != nil {
			log.LogError(name, err)
			ch <- message.StreamChunk{
				Type:  message.ChunkTypeError,
				Error: err,
			}
			return
		}

		// Collect tool calls in stream order and signal completion per call.
		sort.Ints(order)
		for i, idx := range order {
			response.ToolCalls = append(response.ToolCalls, *toolCalls[idx])
			ch <- message.StreamChunk{
				Type:   message.ChunkTypeToolDone,
				Index:  i,
				ToolID: toolCalls[idx].ID,
			}
		}

		ch <- message.StreamChunk{
			Type:     message.ChunkTypeDone,
			Response: &response,
		}
	}()

	return ch
}

// Stream sends a completion request and returns a channel of streaming chunks.
func (c *Client) Stream(ctx context.Context, opts provider.CompletionOptions) <-chan message.StreamChunk {
	return StreamChat(ctx, c.client, c.name, opts)
}

// ListModels returns the available models using the OpenAI Models API.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	pager := c.client.Models.ListAutoPaging(ctx)

	var models []provider.ModelInfo
	for pager.Next() {
		m := pager.Current()
		if !strings.HasPrefix(m.ID, "gpt-") && !strings.Contains(m.ID, "o1") && !strings.Contains(m.ID, "o3") {
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

// NewAPIKeyClient creates a new OpenAI client using API key authentication.
func NewAPIKeyClient(_ context.Context) (provider.LLMProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return NewClient(client, "openai"), nil
}

var _ provider.LLMProvider = (*Client)(nil)
