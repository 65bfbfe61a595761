package checkpoint

import (
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// worktreeDir is where candidate worktrees live, relative to the project root.
const worktreeDir = ".nyzhi/worktrees"

// WorktreeInfo describes one isolated working copy.
type WorktreeInfo struct {
	Name       string
	Path       string
	Branch     string
	HasChanges bool
}

var adjectives = []string{
	"bold", "calm", "dark", "fast", "keen", "pure", "warm", "wise", "cool", "deep",
}
var nouns = []string{
	"arch", "beam", "core", "edge", "flux", "grid", "helm", "iris", "jade", "knot",
}

func generateName() string {
	return adjectives[rand.Intn(len(adjectives))] + "-" + nouns[rand.Intn(len(nouns))]
}

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// CreateWorktree creates a git worktree for isolated candidate work. An empty
// name gets a generated adjective-noun name.
func CreateWorktree(projectRoot, name string) (*WorktreeInfo, error) {
	if name == "" {
		name = generateName()
	}
	worktreePath := filepath.Join(projectRoot, worktreeDir, name)
	branch := "worktree-" + name

	if err := ensureGitignore(projectRoot); err != nil {
		return nil, err
	}

	out, err := runGit(projectRoot, "worktree", "add", "-b", branch, worktreePath)
	if err != nil {
		if strings.Contains(out, "already exists") {
			// Branch exists from a prior run; attach without -b.
			if out2, err2 := runGit(projectRoot, "worktree", "add", worktreePath, branch); err2 != nil {
				return nil, fmt.Errorf("failed to create worktree: %s", out2)
			}
		} else {
			return nil, fmt.Errorf("failed to create worktree: %s", out)
		}
	}

	return &WorktreeInfo{
		Name:   name,
		Path:   worktreePath,
		Branch: branch,
	}, nil
}

// ListWorktrees returns the candidate worktrees under the project root.
func ListWorktrees(projectRoot string) ([]WorktreeInfo, error) {
	base := filepath.Join(projectRoot, worktreeDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []WorktreeInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(base, entry.Name())
		status, _ := runGit(path, "status", "--porcelain")
		infos = append(infos, WorktreeInfo{
			Name:       entry.Name(),
			Path:       path,
			Branch:     "worktree-" + entry.Name(),
			HasChanges: strings.TrimSpace(status) != "",
		})
	}
	return infos, nil
}

// RemoveWorktree removes a worktree and its branch.
func RemoveWorktree(projectRoot, name string) error {
	worktreePath := filepath.Join(projectRoot, worktreeDir, name)
	if out, err := runGit(projectRoot, "worktree", "remove", "--force", worktreePath); err != nil {
		return fmt.Errorf("failed to remove worktree: %s", out)
	}
	_, _ = runGit(projectRoot, "branch", "-D", "worktree-"+name)
	return nil
}

// WorktreeDiff returns the diff of a worktree's branch against HEAD.
func WorktreeDiff(projectRoot, name string) (string, error) {
	worktreePath := filepath.Join(projectRoot, worktreeDir, name)
	out, err := runGit(worktreePath, "diff", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to diff worktree: %s", out)
	}
	return out, nil
}

// ensureGitignore keeps the worktree directory out of version control.
func ensureGitignore(projectRoot string) error {
	path := filepath.Join(projectRoot, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(data), ".nyzhi/") {
		return nil
	}
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += ".nyzhi/\n"
	return os.WriteFile(path, []byte(content), 0644)
}
