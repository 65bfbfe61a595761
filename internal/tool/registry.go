package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/event"
	"github.com/nyzhi-com/nyzhi/internal/log"
	"github.com/nyzhi-com/nyzhi/internal/provider"
)

// Policy decides how an approval-bound tool call is handled.
// *config.Settings is the production implementation.
type Policy interface {
	CheckPermission(toolName string, args map[string]any) config.PermissionResult
}

// Registry manages tool registration and dispatch.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	policy          Policy
	approvalTimeout time.Duration

	// pathLocks serialises tools mutating the same path within a turn.
	pathMu    sync.Mutex
	pathLocks map[string]*sync.Mutex
}

// NewRegistry creates a registry with the given policy. A nil policy
// auto-approves everything (sub-agents with full trust).
func NewRegistry(policy Policy, approvalTimeout time.Duration) *Registry {
	return &Registry{
		tools:           make(map[string]Tool),
		policy:          policy,
		approvalTimeout: approvalTimeout,
		pathLocks:       make(map[string]*sync.Mutex),
	}
}

// SetPolicy replaces the permission policy. Used when deriving sub-agent
// registries whose trust differs from the parent's; a nil policy
// auto-approves everything.
func (r *Registry) SetPolicy(p Policy) {
	r.policy = p
}

// Register adds a tool. A duplicate name replaces the prior registration.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the outbound tool descriptions for the model.
func (r *Registry) Definitions() []provider.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]provider.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, provider.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Without returns a copy of the registry missing the named tools. Used when
// deriving a sub-agent's registry from its parent.
func (r *Registry) Without(disallowed []string) *Registry {
	blocked := make(map[string]bool, len(disallowed))
	for _, name := range disallowed {
		blocked[name] = true
	}

	child := NewRegistry(r.policy, r.approvalTimeout)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, t := range r.tools {
		if !blocked[name] {
			child.tools[name] = t
		}
	}
	return child
}

// Execute dispatches a tool call. Every failure mode, a cancelled context
// included, materialises as a Result the turn loop feeds back to the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tc *Context) Result {
	t, ok := r.Get(name)
	if !ok {
		return errorResult(name, "Unknown tool: "+name)
	}

	if t.Permission() == NeedsApproval {
		if denied, result := r.gate(ctx, t, args, tc); denied {
			return result
		}
		if path, ok := mutationPath(name, args, tc.Cwd); ok {
			if !withinDir(path, tc.Cwd) && !withinDir(path, tc.ProjectRoot) {
				return errorResultMeta(name,
					fmt.Sprintf("Denied: %s is outside the working directory", path),
					map[string]any{"denied": true, "path": path})
			}
			unlock := r.lockPath(path)
			defer unlock()
		}
	}

	return r.run(ctx, t, args, tc)
}

// gate consults policy and, when required, suspends for the approval
// round-trip. Returns (true, denial) when the call must not execute.
func (r *Registry) gate(ctx context.Context, t Tool, args map[string]any, tc *Context) (bool, Result) {
	decision := config.PermissionAllow
	if r.policy != nil {
		decision = r.policy.CheckPermission(t.Name(), args)
	}

	switch decision {
	case config.PermissionAllow:
		return false, Result{}

	case config.PermissionDeny:
		return true, errorResultMeta(t.Name(),
			"Denied by permission policy",
			map[string]any{"denied": true})
	}

	// Ask: round-trip through the UI. No sink attached means nobody can
	// approve, which reads as a denial.
	if tc.Events == nil {
		return true, errorResultMeta(t.Name(),
			"Denied: approval required but no approver is attached",
			map[string]any{"denied": true})
	}

	approval := event.NewApproval(t.Name(), summarizeArgs(args))
	event.Emit(tc.Events, event.Event{
		Type:     event.ApprovalRequest,
		ToolName: t.Name(),
		Preview:  approval.Summary,
		Approval: approval,
	})

	var timeout <-chan time.Time
	if r.approvalTimeout > 0 {
		timer := time.NewTimer(r.approvalTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case approved := <-approval.Respond:
		if !approved {
			return true, errorResultMeta(t.Name(),
				"Denied by user",
				map[string]any{"denied": true})
		}
		return false, Result{}
	case <-timeout:
		return true, errorResultMeta(t.Name(),
			"Denied: approval timed out",
			map[string]any{"denied": true, "timeout": true})
	case <-ctx.Done():
		return true, errorResultMeta(t.Name(),
			"Denied: cancelled",
			map[string]any{"denied": true})
	}
}

// run executes the tool, converting panics and unexpected errors into
// error results so the turn continues.
func (r *Registry) run(ctx context.Context, t Tool, args map[string]any, tc *Context) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Logger().Error("tool panic",
				zap.String("tool", t.Name()),
				zap.Any("panic", rec))
			result = errorResult(t.Name(), fmt.Sprintf("Tool panicked: %v", rec))
		}
	}()

	start := time.Now()
	result, err := t.Execute(ctx, args, tc)
	log.LogTool(t.Name(), "", time.Since(start).Milliseconds(), err == nil && !result.IsError)
	if err != nil {
		return errorResult(t.Name(), "Error: "+err.Error())
	}
	return result
}

// lockPath acquires the per-path advisory lock for the tool's duration.
func (r *Registry) lockPath(path string) func() {
	key := filepath.Clean(path)

	r.pathMu.Lock()
	m, ok := r.pathLocks[key]
	if !ok {
		m = &sync.Mutex{}
		r.pathLocks[key] = m
	}
	r.pathMu.Unlock()

	m.Lock()
	return m.Unlock
}

// mutationPath extracts the filesystem path a tool intends to mutate.
// The registry cannot autodetect mutations; this covers the built-in
// writers by their conventional argument names.
func mutationPath(name string, args map[string]any, cwd string) (string, bool) {
	switch name {
	case "Write", "Edit", "Instrument", "RemoveInstrumentation":
		for _, key := range []string{"file_path", "file"} {
			if p, ok := args[key].(string); ok && p != "" {
				if !filepath.IsAbs(p) {
					p = filepath.Join(cwd, p)
				}
				return filepath.Clean(p), true
			}
		}
	}
	return "", false
}

// withinDir reports whether path is inside dir after normalisation.
func withinDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// summarizeArgs renders a compact single-line preview of tool arguments.
func summarizeArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := fmt.Sprintf("%v", args[k])
		if len(v) > 80 {
			v = v[:77] + "..."
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
