package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PermissionResult represents the result of a permission check.
type PermissionResult int

const (
	// PermissionAllow means the action is automatically allowed.
	PermissionAllow PermissionResult = iota

	// PermissionDeny means the action is automatically denied.
	PermissionDeny

	// PermissionAsk means the action requires user confirmation.
	PermissionAsk
)

// String returns a human-readable representation of the permission result.
func (p PermissionResult) String() string {
	switch p {
	case PermissionAllow:
		return "allow"
	case PermissionDeny:
		return "deny"
	case PermissionAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// CheckPermission decides how an approval-bound tool call is handled.
// Priority:
//  1. Deny rules (cannot be bypassed by trust mode)
//  2. Destructive bash protection (always ask)
//  3. Trust mode full/none
//  4. Allow rules
//  5. Ask rules, then the default: ask
func (s *Settings) CheckPermission(toolName string, args map[string]any) PermissionResult {
	rule := BuildRule(toolName, args)

	for _, pattern := range s.Permissions.Deny {
		if MatchRule(rule, pattern) {
			return PermissionDeny
		}
	}

	if toolName == "Bash" {
		if cmd, ok := args["command"].(string); ok && IsDestructiveCommand(cmd) {
			return PermissionAsk
		}
	}

	switch s.Trust {
	case TrustFull:
		return PermissionAllow
	case TrustNone:
		return PermissionDeny
	}

	for _, pattern := range s.Permissions.Allow {
		if MatchRule(rule, pattern) {
			return PermissionAllow
		}
	}
	for _, pattern := range s.Permissions.Ask {
		if MatchRule(rule, pattern) {
			return PermissionAsk
		}
	}

	return PermissionAsk
}

// BuildRule builds the "Tool(args)" rule string for a tool invocation.
func BuildRule(toolName string, args map[string]any) string {
	var argStr string

	switch toolName {
	case "Bash":
		if cmd, ok := args["command"].(string); ok {
			argStr = normalizeBashCommand(cmd)
		}
	case "Read", "Edit", "Write", "Instrument":
		for _, key := range []string{"file_path", "file"} {
			if fp, ok := args[key].(string); ok {
				argStr = fp
				break
			}
		}
	case "Glob", "Grep":
		if p, ok := args["pattern"].(string); ok {
			argStr = p
		}
	}

	if argStr == "" {
		return toolName
	}
	return toolName + "(" + argStr + ")"
}

// normalizeBashCommand turns "npm install -g x" into "npm:install -g x" so
// patterns like "Bash(npm:*)" match by command prefix.
func normalizeBashCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	parts := strings.SplitN(cmd, " ", 2)
	baseCmd := filepath.Base(parts[0])
	if len(parts) == 1 {
		return baseCmd
	}
	return baseCmd + ":" + parts[1]
}

// MatchRule checks if a rule matches a pattern.
// Rule format: "Tool(args)"; pattern format: "Tool(glob)".
func MatchRule(rule, pattern string) bool {
	toolRule, argsRule := parseRule(rule)
	toolPat, argsPat := parseRule(pattern)

	if toolRule != toolPat {
		return false
	}
	if argsPat == "" {
		return argsRule == ""
	}
	if argsPat == "**" || argsPat == "*" {
		return true
	}

	// A single trailing * is a prefix pattern; bash command rules like
	// "go:*" must match arguments containing path separators.
	if prefix, found := strings.CutSuffix(argsPat, "*"); found && !strings.Contains(prefix, "*") {
		if strings.HasPrefix(argsRule, prefix) {
			return true
		}
	}

	ok, err := doublestar.Match(argsPat, argsRule)
	if err != nil {
		return false
	}
	return ok
}

// parseRule parses "Bash(npm install)" into ("Bash", "npm install").
func parseRule(s string) (tool, args string) {
	tool, args, found := strings.Cut(s, "(")
	if !found {
		return s, ""
	}
	return tool, strings.TrimSuffix(args, ")")
}

// DestructiveCommands are bash command prefixes that always require
// confirmation regardless of trust mode or allow rules.
var DestructiveCommands = []string{
	"rm:-rf",
	"rm:-fr",
	"git:push --force",
	"git:reset --hard",
	"git:clean -f",
	"dd:",
	"mkfs",
	"shutdown",
	"reboot",
}

// IsDestructiveCommand reports whether cmd matches a destructive pattern.
func IsDestructiveCommand(cmd string) bool {
	normalized := normalizeBashCommand(cmd)
	for _, pattern := range DestructiveCommands {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}
