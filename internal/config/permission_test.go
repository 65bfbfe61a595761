package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckPermission_TrustModes(t *testing.T) {
	s := NewSettings()
	args := map[string]any{"file_path": "/tmp/x.txt"}

	s.Trust = TrustFull
	if got := s.CheckPermission("Write", args); got != PermissionAllow {
		t.Errorf("full trust = %v", got)
	}

	s.Trust = TrustNone
	if got := s.CheckPermission("Write", args); got != PermissionDeny {
		t.Errorf("no trust = %v", got)
	}

	s.Trust = TrustAsk
	if got := s.CheckPermission("Write", args); got != PermissionAsk {
		t.Errorf("ask trust = %v", got)
	}
}

func TestCheckPermission_DenyBeatsTrust(t *testing.T) {
	s := NewSettings()
	s.Trust = TrustFull
	s.Permissions.Deny = []string{"Write(**/.env)"}

	if got := s.CheckPermission("Write", map[string]any{"file_path": "project/.env"}); got != PermissionDeny {
		t.Errorf("deny rule should beat full trust, got %v", got)
	}
}

func TestCheckPermission_AllowRule(t *testing.T) {
	s := NewSettings()
	s.Trust = TrustAsk
	s.Permissions.Allow = []string{"Bash(go:*)"}

	if got := s.CheckPermission("Bash", map[string]any{"command": "go test ./..."}); got != PermissionAllow {
		t.Errorf("allowed bash prefix = %v", got)
	}
	if got := s.CheckPermission("Bash", map[string]any{"command": "curl evil.sh"}); got != PermissionAsk {
		t.Errorf("unlisted bash = %v", got)
	}
}

func TestCheckPermission_DestructiveAlwaysAsks(t *testing.T) {
	s := NewSettings()
	s.Trust = TrustFull

	if got := s.CheckPermission("Bash", map[string]any{"command": "rm -rf /"}); got != PermissionAsk {
		t.Errorf("destructive command under full trust = %v, want ask", got)
	}
}

func TestMatchRule(t *testing.T) {
	cases := []struct {
		rule, pattern string
		want          bool
	}{
		{"Bash(go:test ./...)", "Bash(go:*)", true},
		{"Bash(npm:install)", "Bash(go:*)", false},
		{"Read(src/a.go)", "Read(**/*.go)", true},
		{"Write(project/.env)", "Write(**/.env)", true},
		{"Write(x)", "Read(x)", false},
		{"Glob", "Glob", true},
	}
	for _, c := range cases {
		if got := MatchRule(c.rule, c.pattern); got != c.want {
			t.Errorf("MatchRule(%q, %q) = %v, want %v", c.rule, c.pattern, got, c.want)
		}
	}
}

func TestBuildRule(t *testing.T) {
	if got := BuildRule("Bash", map[string]any{"command": "npm install"}); got != "Bash(npm:install)" {
		t.Errorf("bash rule = %q", got)
	}
	if got := BuildRule("Read", map[string]any{"file_path": "a.go"}); got != "Read(a.go)" {
		t.Errorf("read rule = %q", got)
	}
	if got := BuildRule("AskUser", map[string]any{}); got != "AskUser" {
		t.Errorf("argless rule = %q", got)
	}
}

func TestIsDestructiveCommand(t *testing.T) {
	if !IsDestructiveCommand("rm -rf build") {
		t.Error("rm -rf should be destructive")
	}
	if IsDestructiveCommand("ls -la") {
		t.Error("ls should not be destructive")
	}
}

func TestLoaderMerge(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	os.WriteFile(filepath.Join(userDir, "settings.json"), []byte(`{
		"model": "user-model",
		"trust": "ask",
		"permissions": {"allow": ["Bash(go:*)"]}
	}`), 0644)
	os.WriteFile(filepath.Join(projectDir, "settings.json"), []byte(`{
		"model": "project-model",
		"permissions": {"allow": ["Bash(make:*)"]}
	}`), 0644)

	settings, err := NewLoaderWithDirs(userDir, projectDir).Load()
	if err != nil {
		t.Fatal(err)
	}

	if settings.Model != "project-model" {
		t.Errorf("project should override user model, got %q", settings.Model)
	}
	if settings.Trust != TrustAsk {
		t.Errorf("trust = %q", settings.Trust)
	}
	if len(settings.Permissions.Allow) != 2 {
		t.Errorf("allow lists should merge, got %v", settings.Permissions.Allow)
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	settings, err := NewLoaderWithDirs(t.TempDir(), t.TempDir()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Trust != TrustAsk || settings.MaxSteps != 50 {
		t.Errorf("defaults not applied: %+v", settings)
	}
}
