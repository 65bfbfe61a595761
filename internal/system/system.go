// Package system assembles the system prompt from pieces supplied by the
// workspace layer: base identity, tool guidance, project memory, and an
// environment block.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const basePrompt = `You are nyzhi, a terminal-based coding assistant. You work against the
user's working directory using the provided tools. Be direct and precise.
Prefer reading code over guessing. Make the smallest change that solves the
task, and verify your work with the Verify tool when you change code.`

const toolGuidance = `Tool guidance:
- Read before you Edit; Edit requires the old string to be unique.
- Use Glob/Grep/FuzzyFind to locate code instead of guessing paths.
- Bash commands run through sh -c with a bounded timeout.
- Spawn sub-agents for well-scoped parallel work and Wait on their ids.`

// memoryFiles are project memory files injected when present, first found wins.
var memoryFiles = []string{"NYZHI.md", "AGENTS.md"}

const maxMemoryBytes = 16 * 1024

// Config holds the inputs for prompt assembly.
type Config struct {
	Cwd    string
	IsGit  bool
	Memory string   // pre-loaded memory content; if empty, loaded from disk
	Extra  []string // additional per-turn sections
}

// BuildPrompt assembles the complete system prompt.
// Assembly order: base + tools + memory + environment + extra.
func BuildPrompt(cfg Config) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")
	sb.WriteString(toolGuidance)

	memory := cfg.Memory
	if memory == "" {
		memory = LoadMemory(cfg.Cwd)
	}
	if memory != "" {
		sb.WriteString("\n\n## Project notes\n")
		sb.WriteString(memory)
	}

	sb.WriteString("\n\n## Environment\n")
	fmt.Fprintf(&sb, "- Working directory: %s\n", cfg.Cwd)
	fmt.Fprintf(&sb, "- Git repository: %t\n", cfg.IsGit)
	fmt.Fprintf(&sb, "- Platform: %s\n", runtime.GOOS)
	fmt.Fprintf(&sb, "- Date: %s\n", time.Now().Format("2006-01-02"))

	for _, extra := range cfg.Extra {
		sb.WriteString("\n")
		sb.WriteString(extra)
		sb.WriteString("\n")
	}

	return sb.String()
}

// LoadMemory reads the project memory file, truncated to a sane size.
func LoadMemory(cwd string) string {
	for _, name := range memoryFiles {
		data, err := os.ReadFile(filepath.Join(cwd, name))
		if err != nil {
			continue
		}
		if len(data) > maxMemoryBytes {
			data = data[:maxMemoryBytes]
		}
		return string(data)
	}
	return ""
}

// CompactPrompt is the system prompt for conversation summarization calls.
func CompactPrompt() string {
	return `You summarize coding conversations so they can continue in a smaller context
window. Produce a dense summary covering: the user's goal, what has been done
so far, files that were created or modified, important decisions, and what
remains to be done. Do not include pleasantries or restate the conversation
verbatim.`
}

// IsGitRepo reports whether dir contains a .git entry, i.e. is the root of a
// git work tree; parent directories are not searched.
func IsGitRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
