package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBashTimeout = 30 * time.Second
	maxBashTimeout     = 120 * time.Second
	maxBashOutput      = 100 * 1024
)

// BashTool executes shell commands through sh -c.
type BashTool struct{}

func (t *BashTool) Name() string        { return "Bash" }
func (t *BashTool) Description() string { return "Execute a shell command" }
func (t *BashTool) Permission() Permission {
	return NeedsApproval
}

func (t *BashTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to run",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in milliseconds (default 30000, max 120000)",
			},
		},
		"required": []string{"command"},
	}
}

func (t *BashTool) Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return errorResult(t.Name(), "command is required"), nil
	}

	timeout := defaultBashTimeout
	if ms := intArg(args, "timeout", 0); ms > 0 {
		timeout = min(time.Duration(ms)*time.Millisecond, maxBashTimeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = tc.Cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	output := stdout.String()
	if s := stderr.String(); s != "" {
		if output != "" {
			output += "\n"
		}
		output += s
	}

	truncated := false
	if len(output) > maxBashOutput {
		output = output[:maxBashOutput] + "\n... (output truncated)"
		truncated = true
	}

	if ctx.Err() == context.DeadlineExceeded {
		return Result{
			Output:  output + fmt.Sprintf("\ncommand timed out after %s", timeout),
			Title:   t.Name(),
			IsError: true,
			Metadata: map[string]any{
				"exit_code":  -1,
				"timeout":    true,
				"elapsed_ms": elapsed.Milliseconds(),
			},
		}, nil
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return errorResult(t.Name(), "failed to run command: "+err.Error()), nil
		}
	}

	title := t.Name()
	if firstLine := strings.SplitN(command, "\n", 2)[0]; len(firstLine) > 40 {
		title = t.Name() + ": " + firstLine[:40] + "..."
	} else {
		title = t.Name() + ": " + firstLine
	}

	return Result{
		Output:  output,
		Title:   title,
		IsError: exitCode != 0,
		Metadata: map[string]any{
			"exit_code":  exitCode,
			"truncated":  truncated,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	}, nil
}
