// Package config provides settings management for nyzhi.
// Settings are loaded from multiple sources with the following priority
// (lowest to highest):
//  1. ~/.nyzhi/settings.json (user level)
//  2. .nyzhi/settings.json (project level)
//  3. .nyzhi/settings.local.json (project local level)
//
// Later sources override earlier ones.
package config

import (
	"time"
)

// TrustMode controls how approval-bound tools are gated for a session.
type TrustMode string

const (
	// TrustFull auto-approves every tool call.
	TrustFull TrustMode = "full"
	// TrustNone denies every approval-bound tool call.
	TrustNone TrustMode = "none"
	// TrustAsk prompts per call through the approval round-trip.
	TrustAsk TrustMode = "ask"
)

// Settings represents the complete nyzhi configuration.
type Settings struct {
	// Model is the default model to use.
	Model string `json:"model,omitempty"`

	// Provider selects the LLM backend (anthropic, openai, google, moonshot).
	Provider string `json:"provider,omitempty"`

	// Trust is the session-wide trust mode: full, none, or ask.
	Trust TrustMode `json:"trust,omitempty"`

	// Permissions defines permission rules for tools.
	Permissions PermissionSettings `json:"permissions,omitempty"`

	// MaxSteps bounds the tool round-trips per turn. 0 means default.
	MaxSteps int `json:"maxSteps,omitempty"`

	// AutoCompactThreshold is the estimated token count that triggers
	// thread compaction. 0 means default.
	AutoCompactThreshold int `json:"autoCompactThreshold,omitempty"`

	// ApprovalTimeoutMS bounds approval round-trips. 0 means no timeout.
	ApprovalTimeoutMS int `json:"approvalTimeoutMs,omitempty"`

	// Retry controls provider retry behavior.
	Retry RetrySettings `json:"retry,omitempty"`

	// DisabledTools maps tool names to disabled state. Project-level
	// settings can re-enable a user-level disable by setting false.
	DisabledTools map[string]bool `json:"disabledTools,omitempty"`

	// Env defines environment variables to set.
	Env map[string]string `json:"env,omitempty"`
}

// RetrySettings mirrors the provider retry policy in config form.
type RetrySettings struct {
	MaxAttempts int `json:"maxAttempts,omitempty"`
	InitialMS   int `json:"initialMs,omitempty"`
}

// PermissionSettings defines permission rules for tool execution.
// Rules use the format "Tool(pattern)" where pattern uses glob syntax.
//
// Example rules:
//   - "Bash(npm:*)" - match npm commands
//   - "Read(**/.env)" - match .env files in any directory
//   - "Edit(/path/**)" - match files under /path
type PermissionSettings struct {
	// Allow contains patterns that are automatically allowed.
	Allow []string `json:"allow,omitempty"`

	// Deny contains patterns that are automatically denied.
	Deny []string `json:"deny,omitempty"`

	// Ask contains patterns that require user confirmation.
	Ask []string `json:"ask,omitempty"`
}

// NewSettings returns settings with defaults applied.
func NewSettings() *Settings {
	return &Settings{
		Trust:                TrustAsk,
		MaxSteps:             50,
		AutoCompactThreshold: 150_000,
		Retry:                RetrySettings{MaxAttempts: 3, InitialMS: 1000},
		DisabledTools:        map[string]bool{},
		Env:                  map[string]string{},
	}
}

// ApprovalTimeout returns the configured approval timeout as a duration,
// or zero when approvals should wait indefinitely.
func (s *Settings) ApprovalTimeout() time.Duration {
	if s.ApprovalTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(s.ApprovalTimeoutMS) * time.Millisecond
}
