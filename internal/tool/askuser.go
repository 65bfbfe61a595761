package tool

import (
	"context"

	"github.com/nyzhi-com/nyzhi/internal/event"
)

// AskUserTool presents a multiple-choice question and waits for the reply.
type AskUserTool struct{}

func (t *AskUserTool) Name() string { return "AskUser" }
func (t *AskUserTool) Description() string {
	return "Present a multiple-choice question to the user and wait for their selection. " +
		"Use when you need a decision that cannot be resolved by reading the codebase."
}
func (t *AskUserTool) Permission() Permission {
	return ReadOnly
}

func (t *AskUserTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question to present to the user",
			},
			"options": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value": map[string]any{"type": "string", "description": "Machine-readable value returned when selected"},
						"label": map[string]any{"type": "string", "description": "Human-readable label shown to the user"},
					},
					"required": []string{"value", "label"},
				},
				"minItems":    2,
				"maxItems":    6,
				"description": "2-6 options for the user to choose from",
			},
			"allow_custom": map[string]any{
				"type":        "boolean",
				"description": "If true, the user may type a free-form answer. Default: true",
			},
		},
		"required": []string{"question", "options"},
	}
}

func (t *AskUserTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	question, _ := args["question"].(string)
	if question == "" {
		question = "Please choose an option:"
	}

	var options []event.Option
	if arr, ok := args["options"].([]any); ok {
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			value, _ := m["value"].(string)
			label, _ := m["label"].(string)
			if value != "" && label != "" {
				options = append(options, event.Option{Value: value, Label: label})
			}
		}
	}
	if len(options) < 2 || len(options) > 6 {
		return errorResult(t.Name(), "options must contain 2-6 entries with value and label"), nil
	}

	allowCustom := true
	if v, ok := args["allow_custom"].(bool); ok {
		allowCustom = v
	}

	if tc.Events == nil {
		return errorResult(t.Name(), "no user is attached to answer questions"), nil
	}

	q := event.NewQuestion(question, options, allowCustom)
	event.Emit(tc.Events, event.Event{
		Type:     event.UserQuestion,
		Preview:  question,
		Question: q,
	})

	select {
	case reply := <-q.Respond:
		if reply == event.CancelledReply {
			return Result{
				Output:   "The user dismissed the question without answering.",
				Title:    t.Name(),
				Metadata: map[string]any{"cancelled": true},
			}, nil
		}
		return Result{
			Output:   "The user chose: " + reply,
			Title:    t.Name(),
			Metadata: map[string]any{"answer": reply},
		}, nil
	case <-ctx.Done():
		return Result{
			Output:   "The question was cancelled.",
			Title:    t.Name(),
			Metadata: map[string]any{"cancelled": true},
		}, nil
	}
}
