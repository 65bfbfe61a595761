package tool

import (
	"context"

	"github.com/nyzhi-com/nyzhi/internal/verify"
)

// VerifyTool runs project verification checks (build, test, lint).
type VerifyTool struct{}

func (t *VerifyTool) Name() string { return "Verify" }
func (t *VerifyTool) Description() string {
	return "Run project verification checks (build, test, lint). Auto-detects project " +
		"type or accepts custom commands. Returns structured pass/fail results with output."
}
func (t *VerifyTool) Permission() Permission {
	return NeedsApproval
}

func (t *VerifyTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"checks": map[string]any{
				"type":        "array",
				"description": "Optional custom check commands. If omitted, auto-detects from project type.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind":    map[string]any{"type": "string", "enum": []string{"build", "test", "lint", "custom"}},
						"command": map[string]any{"type": "string"},
					},
					"required": []string{"kind", "command"},
				},
			},
		},
	}
}

func (t *VerifyTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	var checks []verify.Check
	if custom, ok := args["checks"].([]any); ok {
		for _, item := range custom {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := m["kind"].(string)
			command, _ := m["command"].(string)
			if command == "" {
				continue
			}
			checks = append(checks, verify.Check{
				Kind:    verify.CheckKind(kind),
				Command: command,
			})
		}
	} else {
		checks = verify.DetectChecks(tc.ProjectRoot)
	}

	if len(checks) == 0 {
		return Result{
			Output:   "No verification checks detected for this project.",
			Title:    t.Name(),
			Metadata: map[string]any{"passed": true, "checks": 0},
		}, nil
	}

	report := verify.RunAll(ctx, checks, tc.Cwd)

	results := make([]map[string]any, 0, len(report.Checks))
	for _, e := range report.Checks {
		results = append(results, map[string]any{
			"kind":       string(e.Kind),
			"command":    e.Command,
			"passed":     e.Passed(),
			"exit_code":  e.ExitCode,
			"elapsed_ms": e.ElapsedMS,
		})
	}

	return Result{
		Output: report.Summary(),
		Title:  t.Name(),
		Metadata: map[string]any{
			"passed":  report.AllPassed(),
			"checks":  len(report.Checks),
			"results": results,
		},
	}, nil
}

// UndoTool reverts the most recent tracked file change.
type UndoTool struct{}

func (t *UndoTool) Name() string { return "Undo" }
func (t *UndoTool) Description() string {
	return "Undo the most recent file change made by a tool in this session"
}
func (t *UndoTool) Permission() Permission {
	return NeedsApproval
}

func (t *UndoTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *UndoTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	if tc.Tracker == nil {
		return errorResult(t.Name(), "no change tracker attached"), nil
	}

	change, ok, err := tc.Tracker.UndoLast()
	if err != nil {
		return errorResult(t.Name(), "undo failed: "+err.Error()), nil
	}
	if !ok {
		return Result{
			Output:   "Nothing to undo.",
			Title:    t.Name(),
			Metadata: map[string]any{"reverted": false},
		}, nil
	}

	action := "Restored"
	if change.Original == nil {
		action = "Deleted"
	}
	return Result{
		Output: action + " " + change.Path,
		Title:  t.Name(),
		Metadata: map[string]any{
			"reverted": true,
			"path":     change.Path,
			"tool":     change.ToolName,
		},
	}, nil
}
