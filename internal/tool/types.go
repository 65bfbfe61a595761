// Package tool provides the tool contract, the registry that dispatches
// model-requested calls under permission policy, and the built-in tools.
package tool

import (
	"context"

	"github.com/nyzhi-com/nyzhi/internal/event"
)

// Permission classifies a tool for the permission gate.
type Permission int

const (
	// ReadOnly tools execute without approval.
	ReadOnly Permission = iota
	// NeedsApproval tools go through policy and possibly a user round-trip.
	NeedsApproval
)

// Tool is the contract all tools implement.
type Tool interface {
	// Name returns the tool name, unique within a registry.
	Name() string

	// Description returns the description exported to the model.
	Description() string

	// Schema returns the JSON-Schema-shaped parameter description.
	Schema() map[string]any

	// Permission reports whether execution requires approval.
	Permission() Permission

	// Execute runs the tool. Failures that the model should see are
	// returned as an error Result; a non-nil error is reserved for faults
	// the registry converts into one.
	Execute(ctx context.Context, args map[string]any, tc *Context) (Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	Output   string         // human-visible output fed back to the model
	Title    string         // short title for display
	Metadata map[string]any // opaque structured details
	IsError  bool
}

// Context carries per-agent execution state into a tool.
type Context struct {
	SessionID   string
	Cwd         string
	ProjectRoot string
	Depth       int
	Events      event.Sink // nil when no UI is attached
	Tracker     *ChangeTracker
}

// Child derives a context for a sub-agent one level deeper, with its own
// change tracker.
func (tc *Context) Child() *Context {
	return &Context{
		SessionID:   tc.SessionID,
		Cwd:         tc.Cwd,
		ProjectRoot: tc.ProjectRoot,
		Depth:       tc.Depth + 1,
		Events:      tc.Events,
		Tracker:     NewChangeTracker(),
	}
}

// errorResult builds an error Result.
func errorResult(title, msg string) Result {
	return Result{
		Output:  msg,
		Title:   title,
		IsError: true,
	}
}

// errorResultMeta builds an error Result with metadata.
func errorResultMeta(title, msg string, meta map[string]any) Result {
	return Result{
		Output:   msg,
		Title:    title,
		Metadata: meta,
		IsError:  true,
	}
}
