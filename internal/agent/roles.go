package agent

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nyzhi-com/nyzhi/internal/config"
	"github.com/nyzhi-com/nyzhi/internal/log"
)

// Role is an overlay applied to a base Config when spawning a sub-agent.
type Role struct {
	Name                 string `yaml:"name"`
	Description          string `yaml:"description,omitempty"`
	SystemPromptOverride string `yaml:"system_prompt,omitempty"`
	ModelOverride        string `yaml:"model,omitempty"`
	MaxStepsOverride     int    `yaml:"max_steps,omitempty"`
	ReadOnly             bool   `yaml:"read_only,omitempty"`
}

// writingTools are the tools a read-only role cannot use.
var writingTools = []string{
	"Write", "Edit", "Bash", "Instrument", "RemoveInstrumentation", "Undo", "Verify",
}

// BuiltinRoles returns the built-in role set.
func BuiltinRoles() map[string]Role {
	return map[string]Role{
		"default": {
			Name:        "default",
			Description: "Default agent. Inherits parent configuration.",
		},
		"explorer": {
			Name: "explorer",
			Description: "Fast, read-only agent for codebase exploration. Use for specific, " +
				"well-scoped questions about the codebase. Trust explorer results without " +
				"re-verifying. Run explorers in parallel when useful.",
			SystemPromptOverride: "You are an explorer sub-agent. Your job is to answer questions " +
				"about the codebase quickly and accurately. You have read-only access: use Read, " +
				"Glob, Grep, and FuzzyFind. Do NOT modify any files. Be concise and authoritative " +
				"in your answers.",
			MaxStepsOverride: 30,
			ReadOnly:         true,
		},
		"worker": {
			Name: "worker",
			Description: "Execution agent for implementation tasks. Use for implementing " +
				"features, fixing bugs, writing code, or making changes. Has full tool access.",
			SystemPromptOverride: "You are a worker sub-agent. Implement the assigned task " +
				"thoroughly. You have full tool access. Note: other agents may be working on " +
				"the same codebase concurrently -- do not touch files outside your assigned scope.",
			MaxStepsOverride: 50,
		},
		"reviewer": {
			Name: "reviewer",
			Description: "Code review agent. Analyzes code for bugs, security issues, and " +
				"improvements. Has read-only access. Returns structured findings.",
			SystemPromptOverride: "You are a code reviewer sub-agent. Analyze the given code for " +
				"bugs, security issues, performance problems, and possible improvements. You " +
				"have read-only access. Structure your findings by severity: critical, warning, " +
				"suggestion. Be specific with file and line references.",
			MaxStepsOverride: 30,
			ReadOnly:         true,
		},
	}
}

// ResolveRole finds a role by name, preferring user roles over builtins.
// Unknown names fall back to default.
func ResolveRole(name string, userRoles map[string]Role) Role {
	if name == "" {
		name = "default"
	}
	if role, ok := userRoles[name]; ok {
		return role
	}
	builtins := BuiltinRoles()
	if role, ok := builtins[name]; ok {
		return role
	}
	return builtins["default"]
}

// ApplyRole overlays a role onto a base config, returning a new value.
func ApplyRole(base Config, role Role) Config {
	cfg := base
	cfg.Name = "sub-agent/" + role.Name
	if role.SystemPromptOverride != "" {
		cfg.SystemPrompt = role.SystemPromptOverride
	}
	if role.MaxStepsOverride > 0 {
		cfg.MaxSteps = role.MaxStepsOverride
	}
	if role.ReadOnly {
		cfg.Trust = config.TrustNone
		cfg.DisallowedTools = append(append([]string{}, cfg.DisallowedTools...), writingTools...)
	}
	return cfg
}

// frontmatterRe splits "---\nyaml\n---\nbody" role definition files.
var frontmatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n(.*)\z`)

// LoadUserRoles loads role definitions from .nyzhi/roles/*.md files in the
// user home, then the project; a project role replaces a home role of the
// same name. Files carry YAML frontmatter for the role
// fields; the markdown body becomes the system prompt override.
func LoadUserRoles(cwd string) map[string]Role {
	homeDir, _ := os.UserHomeDir()
	roles := make(map[string]Role)

	for _, dir := range []string{
		filepath.Join(homeDir, ".nyzhi", "roles"),
		filepath.Join(cwd, ".nyzhi", "roles"),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			role, ok := parseRoleFile(string(data))
			if !ok {
				log.Logger().Warn("skipping invalid role file: " + entry.Name())
				continue
			}
			if role.Name == "" {
				role.Name = strings.TrimSuffix(entry.Name(), ".md")
			}
			roles[role.Name] = role
		}
	}
	return roles
}

// parseRoleFile splits frontmatter from body. A file without frontmatter is
// treated as a bare system prompt.
func parseRoleFile(content string) (Role, bool) {
	var role Role
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		body := strings.TrimSpace(content)
		if body == "" {
			return Role{}, false
		}
		role.SystemPromptOverride = body
		return role, true
	}
	if err := yaml.Unmarshal([]byte(m[1]), &role); err != nil {
		return Role{}, false
	}
	if body := strings.TrimSpace(m[2]); body != "" && role.SystemPromptOverride == "" {
		role.SystemPromptOverride = body
	}
	return role, true
}
