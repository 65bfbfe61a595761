// Package team provides the file-backed coordination surface shared by
// agents in a named team: per-recipient mailboxes and a dependency-aware
// task store. All structures live under the team directory with sibling
// lock files; cross-process exclusion uses advisory file locks.
package team

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
)

// BaseDirEnv overrides the teams root directory; used by tests and by
// deployments that keep team state inside the project.
const BaseDirEnv = "NYZHI_TEAMS_DIR"

// Dir returns the directory for one team.
func Dir(teamName string) string {
	if base := os.Getenv(BaseDirEnv); base != "" {
		return filepath.Join(base, teamName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".nyzhi", "teams", teamName)
}

// tasksDir returns the task store directory for one team.
func tasksDir(teamName string) string {
	return filepath.Join(Dir(teamName), "tasks")
}

// inboxPath returns the mailbox file for one recipient.
func inboxPath(teamName, recipient string) string {
	return filepath.Join(Dir(teamName), "inboxes", recipient+".json")
}

// Member is one entry in a team roster.
type Member struct {
	Name  string `toml:"name"`
	Role  string `toml:"role,omitempty"`
	Color string `toml:"color,omitempty"`
}

// Config is the team roster, stored as config.toml in the team directory.
type Config struct {
	Name    string   `toml:"name"`
	Members []Member `toml:"members"`
}

// LoadConfig reads a team's roster.
func LoadConfig(teamName string) (*Config, error) {
	path := filepath.Join(Dir(teamName), "config.toml")
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load team config for %q: %w", teamName, err)
	}
	return &cfg, nil
}

// SaveConfig writes a team's roster, creating the team directory.
func SaveConfig(cfg *Config) error {
	dir := Dir(cfg.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "config.toml"))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// acquireLock takes the exclusive advisory lock at lockPath, creating
// parents as needed. Acquisition blocks with no timeout; critical sections
// are bounded file I/O and must never span network calls or user code.
func acquireLock(lockPath string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, err
	}
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", lockPath, err)
	}
	return lock, nil
}
