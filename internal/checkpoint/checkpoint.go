// Package checkpoint saves and restores working-tree states through git,
// and manages isolated worktrees for candidate runs. It is a thin policy
// layer over the git CLI.
package checkpoint

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint identifies a saved tree state. The id is an opaque string a
// restore call accepts.
type Checkpoint struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CommitHash   string `json:"commit_hash"`
	MessageCount int    `json:"message_count"`
	Timestamp    int64  `json:"timestamp"`
}

// Manager captures checkpoints for one project root.
type Manager struct {
	projectRoot string
	checkpoints []Checkpoint
}

// NewManager creates a checkpoint manager for a project root.
func NewManager(projectRoot string) *Manager {
	return &Manager{projectRoot: projectRoot}
}

func (m *Manager) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = m.projectRoot
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// IsGitRepo reports whether the project root is inside a git work tree.
func (m *Manager) IsGitRepo() bool {
	out, err := m.git("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func (m *Manager) hasChanges() bool {
	out, err := m.git("status", "--porcelain")
	return err == nil && strings.TrimSpace(out) != ""
}

// Save captures the current working tree as a checkpoint without disturbing
// it: stage everything, stash (including untracked), record the stash
// commit, then pop. Returns nil when there is nothing to save.
func (m *Manager) Save(name string, messageCount int) (*Checkpoint, error) {
	if !m.IsGitRepo() {
		return nil, fmt.Errorf("not a git repository")
	}
	if !m.hasChanges() {
		return nil, nil
	}

	_, _ = m.git("add", "-A")

	stashOut, err := m.git("stash", "push", "-u", "-m", "nyzhi-cp: "+name)
	if err != nil {
		return nil, fmt.Errorf("git stash failed: %w", err)
	}
	if strings.Contains(stashOut, "No local changes") {
		return nil, nil
	}

	hashOut, err := m.git("stash", "list", "--format=%H", "-1")
	if err != nil {
		return nil, fmt.Errorf("git stash list failed: %w", err)
	}
	commitHash := strings.TrimSpace(hashOut)

	_, _ = m.git("stash", "pop")

	cp := Checkpoint{
		ID:           "cp-" + uuid.NewString()[:8],
		Name:         name,
		CommitHash:   commitHash,
		MessageCount: messageCount,
		Timestamp:    time.Now().Unix(),
	}
	m.checkpoints = append(m.checkpoints, cp)
	return &cp, nil
}

// AutoSave saves a checkpoint with a generated name; failures are dropped.
func (m *Manager) AutoSave(messageCount int) *Checkpoint {
	name := fmt.Sprintf("auto-%d", len(m.checkpoints))
	cp, err := m.Save(name, messageCount)
	if err != nil {
		return nil
	}
	return cp
}

// List returns the checkpoints captured so far.
func (m *Manager) List() []Checkpoint {
	return m.checkpoints
}

// Restore returns the working tree to the state observed at save time for
// tracked files; untracked files are removed.
func (m *Manager) Restore(id string) (string, error) {
	if !m.IsGitRepo() {
		return "", fmt.Errorf("not a git repository")
	}

	var cp *Checkpoint
	for i := range m.checkpoints {
		if m.checkpoints[i].ID == id || m.checkpoints[i].Name == id {
			cp = &m.checkpoints[i]
			break
		}
	}
	if cp == nil {
		return "", fmt.Errorf("checkpoint %q not found", id)
	}

	_, _ = m.git("checkout", "--", ".")
	_, _ = m.git("clean", "-fd")

	if cp.CommitHash != "" {
		_, _ = m.git("stash", "apply", cp.CommitHash)
	}

	return fmt.Sprintf("Restored checkpoint '%s' (%s)", cp.Name, cp.ID), nil
}

// FormatList renders the checkpoint list newest-first with ages.
func (m *Manager) FormatList() string {
	if len(m.checkpoints) == 0 {
		return "No checkpoints saved."
	}
	var sb strings.Builder
	sb.WriteString("Checkpoints:\n")
	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		cp := m.checkpoints[i]
		age := time.Now().Unix() - cp.Timestamp
		var ageStr string
		switch {
		case age < 60:
			ageStr = fmt.Sprintf("%ds ago", age)
		case age < 3600:
			ageStr = fmt.Sprintf("%dm ago", age/60)
		default:
			ageStr = fmt.Sprintf("%dh ago", age/3600)
		}
		fmt.Fprintf(&sb, "  [%d] %s (%s) - %d messages, %s\n",
			i, cp.Name, cp.ID, cp.MessageCount, ageStr)
	}
	return sb.String()
}
