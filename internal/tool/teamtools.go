package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/nyzhi-com/nyzhi/internal/team"
)

// TeamTools holds the shared identity the team tools act under.
type TeamTools struct {
	TeamName  string
	AgentName string
	Color     string
}

// RegisterTeamTools adds the team coordination tools to a registry.
func RegisterTeamTools(registry *Registry, cfg TeamTools) {
	registry.Register(&TeamSendTool{cfg})
	registry.Register(&TeamBroadcastTool{cfg})
	registry.Register(&TeamReadInboxTool{cfg})
	registry.Register(&TaskCreateTool{cfg})
	registry.Register(&TaskUpdateTool{cfg})
	registry.Register(&TaskListTool{cfg})
}

// TeamSendTool sends a direct message to a teammate's inbox.
type TeamSendTool struct {
	cfg TeamTools
}

func (t *TeamSendTool) Name() string        { return "TeamSend" }
func (t *TeamSendTool) Description() string { return "Send a message to a teammate's inbox" }
func (t *TeamSendTool) Permission() Permission {
	return ReadOnly
}

func (t *TeamSendTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient agent name",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Message text",
			},
		},
		"required": []string{"to", "text"},
	}
}

func (t *TeamSendTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	to, _ := args["to"].(string)
	text, _ := args["text"].(string)
	if to == "" || strings.TrimSpace(text) == "" {
		return errorResult(t.Name(), "to and text are required"), nil
	}

	msg := team.NewMessage(t.cfg.AgentName, text, t.cfg.Color)
	if err := team.SendMessage(t.cfg.TeamName, to, msg); err != nil {
		return errorResult(t.Name(), "failed to send: "+err.Error()), nil
	}
	return Result{
		Output:   "Message sent to " + to,
		Title:    t.Name() + " -> " + to,
		Metadata: map[string]any{"to": to},
	}, nil
}

// TeamBroadcastTool sends a message to every teammate.
type TeamBroadcastTool struct {
	cfg TeamTools
}

func (t *TeamBroadcastTool) Name() string { return "TeamBroadcast" }
func (t *TeamBroadcastTool) Description() string {
	return "Broadcast a message to every teammate. Delivery is per-recipient; a failure " +
		"partway leaves earlier recipients delivered."
}
func (t *TeamBroadcastTool) Permission() Permission {
	return ReadOnly
}

func (t *TeamBroadcastTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Message text",
			},
		},
		"required": []string{"text"},
	}
}

func (t *TeamBroadcastTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return errorResult(t.Name(), "text is required"), nil
	}

	if err := team.Broadcast(t.cfg.TeamName, t.cfg.AgentName, text, t.cfg.Color); err != nil {
		return errorResult(t.Name(), "broadcast failed: "+err.Error()), nil
	}
	return Result{
		Output: "Broadcast sent",
		Title:  t.Name(),
	}, nil
}

// TeamReadInboxTool drains this agent's unread messages.
type TeamReadInboxTool struct {
	cfg TeamTools
}

func (t *TeamReadInboxTool) Name() string { return "TeamReadInbox" }
func (t *TeamReadInboxTool) Description() string {
	return "Read unread messages from this agent's team inbox, marking them read"
}
func (t *TeamReadInboxTool) Permission() Permission {
	return ReadOnly
}

func (t *TeamReadInboxTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *TeamReadInboxTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	messages, err := team.ReadUnread(t.cfg.TeamName, t.cfg.AgentName)
	if err != nil {
		return errorResult(t.Name(), "failed to read inbox: "+err.Error()), nil
	}
	if len(messages) == 0 {
		return Result{
			Output:   "No unread messages.",
			Title:    t.Name(),
			Metadata: map[string]any{"count": 0},
		}, nil
	}
	return Result{
		Output:   team.FormatForInjection(messages),
		Title:    fmt.Sprintf("%s: %d message(s)", t.Name(), len(messages)),
		Metadata: map[string]any{"count": len(messages)},
	}, nil
}

// TaskCreateTool adds a task to the team task store.
type TaskCreateTool struct {
	cfg TeamTools
}

func (t *TaskCreateTool) Name() string { return "TaskCreate" }
func (t *TaskCreateTool) Description() string {
	return "Create a team task. Tasks with a non-empty blocked_by list start blocked."
}
func (t *TaskCreateTool) Permission() Permission {
	return ReadOnly
}

func (t *TaskCreateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":        "string",
				"description": "Brief task title",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "What needs to be done",
			},
			"active_form": map[string]any{
				"type":        "string",
				"description": "Present-continuous form shown while in progress",
			},
			"blocked_by": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Ids of tasks that must complete first",
			},
		},
		"required": []string{"subject"},
	}
}

func (t *TaskCreateTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	subject, _ := args["subject"].(string)
	if strings.TrimSpace(subject) == "" {
		return errorResult(t.Name(), "subject is required"), nil
	}
	description, _ := args["description"].(string)
	activeForm, _ := args["active_form"].(string)

	var blockedBy []string
	if arr, ok := args["blocked_by"].([]any); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				blockedBy = append(blockedBy, s)
			}
		}
	}

	task, err := team.CreateTask(t.cfg.TeamName, subject, description, activeForm, blockedBy)
	if err != nil {
		return errorResult(t.Name(), "failed to create task: "+err.Error()), nil
	}
	return Result{
		Output: fmt.Sprintf("Created task #%s (%s): %s", task.ID, task.Status, task.Subject),
		Title:  t.Name() + " #" + task.ID,
		Metadata: map[string]any{
			"id":     task.ID,
			"status": string(task.Status),
		},
	}, nil
}

// TaskUpdateTool mutates a task's status or owner.
type TaskUpdateTool struct {
	cfg TeamTools
}

func (t *TaskUpdateTool) Name() string { return "TaskUpdate" }
func (t *TaskUpdateTool) Description() string {
	return "Update a team task's status or owner. Completing a task unblocks its dependents."
}
func (t *TaskUpdateTool) Permission() Permission {
	return ReadOnly
}

func (t *TaskUpdateTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Task id",
			},
			"status": map[string]any{
				"type": "string",
				"enum": []string{"pending", "in_progress", "completed", "blocked", "deleted"},
			},
			"owner": map[string]any{
				"type":        "string",
				"description": "New owner agent name",
			},
		},
		"required": []string{"id"},
	}
}

func (t *TaskUpdateTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return errorResult(t.Name(), "id is required"), nil
	}

	var status *team.TaskStatus
	if s, ok := args["status"].(string); ok && s != "" {
		st := team.TaskStatus(s)
		status = &st
	}
	var owner *string
	if o, ok := args["owner"].(string); ok && o != "" {
		owner = &o
	}

	task, err := team.UpdateTask(t.cfg.TeamName, id, status, owner)
	if err != nil {
		return errorResult(t.Name(), "failed to update task: "+err.Error()), nil
	}
	return Result{
		Output: fmt.Sprintf("Task #%s is now %s", task.ID, task.Status),
		Title:  t.Name() + " #" + task.ID,
		Metadata: map[string]any{
			"id":     task.ID,
			"status": string(task.Status),
			"owner":  task.Owner,
		},
	}, nil
}

// TaskListTool lists team tasks, optionally filtered by status.
type TaskListTool struct {
	cfg TeamTools
}

func (t *TaskListTool) Name() string        { return "TaskList" }
func (t *TaskListTool) Description() string { return "List team tasks, optionally filtered by status" }
func (t *TaskListTool) Permission() Permission {
	return ReadOnly
}

func (t *TaskListTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type": "string",
				"enum": []string{"pending", "in_progress", "completed", "blocked", "deleted"},
			},
		},
	}
}

func (t *TaskListTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	statusFilter, _ := args["status"].(string)

	tasks, err := team.ListTasks(t.cfg.TeamName, statusFilter)
	if err != nil {
		return errorResult(t.Name(), "failed to list tasks: "+err.Error()), nil
	}
	if len(tasks) == 0 {
		return Result{
			Output:   "No tasks.",
			Title:    t.Name(),
			Metadata: map[string]any{"count": 0},
		}, nil
	}

	var sb strings.Builder
	for _, task := range tasks {
		owner := ""
		if task.Owner != "" {
			owner = " @" + task.Owner
		}
		deps := ""
		if len(task.BlockedBy) > 0 {
			deps = " (blocked by " + strings.Join(task.BlockedBy, ", ") + ")"
		}
		fmt.Fprintf(&sb, "#%s [%s]%s %s%s\n", task.ID, task.Status, owner, task.Subject, deps)
	}
	return Result{
		Output:   strings.TrimSuffix(sb.String(), "\n"),
		Title:    fmt.Sprintf("%s: %d task(s)", t.Name(), len(tasks)),
		Metadata: map[string]any{"count": len(tasks)},
	}, nil
}
