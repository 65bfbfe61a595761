package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyzhi-com/nyzhi/internal/tool"
)

// RegisterTools adds the agent-management tools to a registry. Each is a
// thin wrapper over the manager; baseConfig is the parent configuration
// roles overlay onto, and registry is what children inherit from.
func RegisterTools(registry *tool.Registry, m *Manager, baseConfig Config, userRoles map[string]Role) {
	registry.Register(&SpawnAgentTool{Manager: m, Registry: registry, BaseConfig: baseConfig, UserRoles: userRoles})
	registry.Register(&SendInputTool{Manager: m})
	registry.Register(&WaitTool{Manager: m})
	registry.Register(&CloseAgentTool{Manager: m})
	registry.Register(&ResumeAgentTool{Manager: m})
}

// SpawnAgentTool starts a sub-agent for a well-scoped task.
type SpawnAgentTool struct {
	Manager    *Manager
	Registry   *tool.Registry
	BaseConfig Config
	UserRoles  map[string]Role
}

func (t *SpawnAgentTool) Name() string { return "SpawnAgent" }
func (t *SpawnAgentTool) Description() string {
	return "Spawn a sub-agent for a well-scoped task. Returns the agent id to use to " +
		"communicate with this agent. Use for research, analysis, or implementation " +
		"tasks that benefit from focused attention."
}
func (t *SpawnAgentTool) Permission() tool.Permission { return tool.ReadOnly }

func (t *SpawnAgentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The initial prompt/task for the new agent",
			},
			"agent_type": map[string]any{
				"type":        "string",
				"description": "Optional role for the agent (default, explorer, worker, reviewer)",
			},
		},
		"required": []string{"message"},
	}
}

func (t *SpawnAgentTool) Execute(ctx context.Context, args map[string]any, tc *tool.Context) (tool.Result, error) {
	msg, _ := args["message"].(string)
	if strings.TrimSpace(msg) == "" {
		return tool.Result{
			Output:   "Error: empty message can't be sent to an agent",
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": "empty_message"},
			IsError:  true,
		}, nil
	}

	roleName, _ := args["agent_type"].(string)
	roleName = strings.TrimSpace(roleName)
	role := ResolveRole(roleName, t.UserRoles)

	cfg := t.BaseConfig
	cfg.SystemPrompt = "You are a focused sub-agent. Complete the assigned task thoroughly " +
		"and return your findings. Be concise but complete."
	cfg = ApplyRole(cfg, role)

	id, name, err := t.Manager.Spawn(ctx, msg, t.Registry, tc, cfg)
	if err != nil {
		return tool.Result{
			Output:   "Error spawning agent: " + err.Error(),
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": err.Error()},
			IsError:  true,
		}, nil
	}

	meta := map[string]any{
		"agent_id":       id,
		"agent_nickname": name,
		"role":           role.Name,
	}
	out, _ := json.Marshal(meta)
	return tool.Result{
		Output:   string(out),
		Title:    fmt.Sprintf("%s -> %s", t.Name(), name),
		Metadata: meta,
	}, nil
}

// SendInputTool delivers a message to an existing agent.
type SendInputTool struct {
	Manager *Manager
}

func (t *SendInputTool) Name() string { return "SendInput" }
func (t *SendInputTool) Description() string {
	return "Send a message to an existing agent. Use to provide follow-up instructions " +
		"or additional context to a running agent."
}
func (t *SendInputTool) Permission() tool.Permission { return tool.ReadOnly }

func (t *SendInputTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Agent id (from SpawnAgent)",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message to send to the agent",
			},
		},
		"required": []string{"id", "message"},
	}
}

func (t *SendInputTool) Execute(ctx context.Context, args map[string]any, tc *tool.Context) (tool.Result, error) {
	id, _ := args["id"].(string)
	msg, _ := args["message"].(string)
	if id == "" {
		return tool.Result{Output: "Error: id is required", Title: t.Name() + " (error)", IsError: true}, nil
	}
	if strings.TrimSpace(msg) == "" {
		return tool.Result{
			Output:   "Error: empty message can't be sent to an agent",
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": "empty_message"},
			IsError:  true,
		}, nil
	}

	if err := t.Manager.SendInput(id, msg); err != nil {
		return tool.Result{
			Output:   "Error: " + err.Error(),
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": err.Error(), "agent_id": id},
			IsError:  true,
		}, nil
	}

	name, _, _ := t.Manager.Info(id)
	out, _ := json.Marshal(map[string]any{"status": "sent", "agent_nickname": name})
	return tool.Result{
		Output:   string(out),
		Title:    fmt.Sprintf("%s -> %s", t.Name(), name),
		Metadata: map[string]any{"agent_id": id},
	}, nil
}

// WaitTool blocks until one of the named agents reaches a final status.
type WaitTool struct {
	Manager *Manager
}

func (t *WaitTool) Name() string { return "Wait" }
func (t *WaitTool) Description() string {
	return "Wait for agents to reach a final status. Returns the statuses of every named " +
		"agent that is final when the wait ends; completed statuses include the agent's " +
		"final message. Returns empty status when timed out. Prefer longer waits to avoid busy polling."
}
func (t *WaitTool) Permission() tool.Permission { return tool.ReadOnly }

func (t *WaitTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Agent ids to wait on. Pass multiple to wait for whichever finishes first.",
			},
			"timeout_ms": map[string]any{
				"type": "number",
				"description": fmt.Sprintf("Optional timeout in milliseconds. Default %d, min %d, max %d.",
					DefaultWaitTimeoutMS, MinWaitTimeoutMS, MaxWaitTimeoutMS),
			},
		},
		"required": []string{"ids"},
	}
}

func (t *WaitTool) Execute(ctx context.Context, args map[string]any, tc *tool.Context) (tool.Result, error) {
	var ids []string
	if arr, ok := args["ids"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
	}
	if len(ids) == 0 {
		return tool.Result{
			Output:   "Error: ids must be non-empty",
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": "empty_ids"},
			IsError:  true,
		}, nil
	}

	var timeoutMS int64
	if v, ok := args["timeout_ms"].(float64); ok {
		timeoutMS = int64(v)
	}

	statuses, timedOut, err := t.Manager.WaitAny(ctx, ids, timeoutMS)
	if err != nil {
		return tool.Result{
			Output:   "Error: " + err.Error(),
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": err.Error()},
			IsError:  true,
		}, nil
	}

	statusMap := make(map[string]any, len(statuses))
	for id, status := range statuses {
		statusMap[id] = status.String()
	}
	meta := map[string]any{"status": statusMap, "timed_out": timedOut}
	out, _ := json.Marshal(meta)

	title := fmt.Sprintf("%s -> %d completed", t.Name(), len(statuses))
	if timedOut {
		title = t.Name() + " (timed out)"
	}
	return tool.Result{Output: string(out), Title: title, Metadata: meta}, nil
}

// CloseAgentTool forces an agent to a terminal state.
type CloseAgentTool struct {
	Manager *Manager
}

func (t *CloseAgentTool) Name() string { return "CloseAgent" }
func (t *CloseAgentTool) Description() string {
	return "Stop an agent and mark it cancelled. Idempotent once the agent is terminal."
}
func (t *CloseAgentTool) Permission() tool.Permission { return tool.ReadOnly }

func (t *CloseAgentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Agent id to close",
			},
		},
		"required": []string{"id"},
	}
}

func (t *CloseAgentTool) Execute(ctx context.Context, args map[string]any, tc *tool.Context) (tool.Result, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return tool.Result{Output: "Error: id is required", Title: t.Name() + " (error)", IsError: true}, nil
	}

	status, err := t.Manager.Close(id)
	if err != nil {
		return tool.Result{
			Output:   "Error: " + err.Error(),
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": err.Error()},
			IsError:  true,
		}, nil
	}

	return tool.Result{
		Output:   fmt.Sprintf("Agent %s is now %s", id, status.Kind),
		Title:    fmt.Sprintf("%s -> %s", t.Name(), status.Kind),
		Metadata: map[string]any{"agent_id": id, "status": string(status.Kind)},
	}, nil
}

// ResumeAgentTool reopens a completed or errored agent for new input.
type ResumeAgentTool struct {
	Manager *Manager
}

func (t *ResumeAgentTool) Name() string { return "ResumeAgent" }
func (t *ResumeAgentTool) Description() string {
	return "Resume a previously completed or errored agent so it can receive new " +
		"SendInput and Wait calls."
}
func (t *ResumeAgentTool) Permission() tool.Permission { return tool.ReadOnly }

func (t *ResumeAgentTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Agent id to resume",
			},
		},
		"required": []string{"id"},
	}
}

func (t *ResumeAgentTool) Execute(ctx context.Context, args map[string]any, tc *tool.Context) (tool.Result, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return tool.Result{Output: "Error: id is required", Title: t.Name() + " (error)", IsError: true}, nil
	}

	status, err := t.Manager.Resume(id)
	if err != nil {
		return tool.Result{
			Output:   "Error: " + err.Error(),
			Title:    t.Name() + " (error)",
			Metadata: map[string]any{"error": err.Error()},
			IsError:  true,
		}, nil
	}

	return tool.Result{
		Output:   fmt.Sprintf("Agent %s is now %s", id, status.Kind),
		Title:    fmt.Sprintf("%s -> %s", t.Name(), status.Kind),
		Metadata: map[string]any{"agent_id": id, "status": string(status.Kind)},
	}, nil
}
