package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nyzhi-com/nyzhi/internal/config"
)

func TestApplyRoleDoesNotMutateBase(t *testing.T) {
	base := DefaultConfig()
	base.SystemPrompt = "base prompt"
	base.MaxSteps = 99

	role := BuiltinRoles()["explorer"]
	derived := ApplyRole(base, role)

	if base.SystemPrompt != "base prompt" || base.MaxSteps != 99 {
		t.Error("base config was mutated")
	}
	if len(base.DisallowedTools) != 0 {
		t.Error("base disallow list was mutated")
	}

	if derived.Name != "sub-agent/explorer" {
		t.Errorf("name = %q", derived.Name)
	}
	if derived.MaxSteps != 30 {
		t.Errorf("max steps = %d", derived.MaxSteps)
	}
	if derived.Trust != config.TrustNone {
		t.Errorf("read-only role should carry no trust, got %s", derived.Trust)
	}

	blocked := make(map[string]bool)
	for _, name := range derived.DisallowedTools {
		blocked[name] = true
	}
	if !blocked["Write"] || !blocked["Bash"] {
		t.Errorf("read-only role must disallow writers: %v", derived.DisallowedTools)
	}
}

func TestResolveRoleFallsBackToDefault(t *testing.T) {
	role := ResolveRole("no-such-role", nil)
	if role.Name != "default" {
		t.Errorf("role = %q", role.Name)
	}

	user := map[string]Role{"custom": {Name: "custom"}}
	if got := ResolveRole("custom", user); got.Name != "custom" {
		t.Errorf("user role not preferred: %q", got.Name)
	}
}

func TestLoadUserRoles(t *testing.T) {
	dir := t.TempDir()
	rolesDir := filepath.Join(dir, ".nyzhi", "roles")
	os.MkdirAll(rolesDir, 0755)

	os.WriteFile(filepath.Join(rolesDir, "tester.md"), []byte(`---
name: tester
max_steps: 12
read_only: true
---
You write and run tests for the assigned code.
`), 0644)

	os.WriteFile(filepath.Join(rolesDir, "bare.md"),
		[]byte("Just a bare prompt with no frontmatter.\n"), 0644)

	roles := LoadUserRoles(dir)

	tester, ok := roles["tester"]
	if !ok {
		t.Fatalf("tester not loaded: %v", roles)
	}
	if tester.MaxStepsOverride != 12 || !tester.ReadOnly {
		t.Errorf("frontmatter not applied: %+v", tester)
	}
	if tester.SystemPromptOverride == "" {
		t.Error("body should become the system prompt")
	}

	bare, ok := roles["bare"]
	if !ok || bare.SystemPromptOverride == "" {
		t.Errorf("bare role = %+v", bare)
	}
}

func TestBroadcasterDropsSlowSubscribers(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe()
	defer cancel()

	// Overflow the subscriber buffer; Emit must never block.
	for i := 0; i < defaultSubscriberBuffer+10; i++ {
		b.Emit(eventOf(i))
	}

	if b.Dropped() != 10 {
		t.Errorf("dropped = %d, want 10", b.Dropped())
	}
}

func TestBroadcasterOrderPreserved(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		b.Emit(eventOf(i))
	}

	for i := 0; i < 5; i++ {
		e := <-ch
		if e.Text != string(rune('0'+i)) {
			t.Fatalf("event %d out of order: %q", i, e.Text)
		}
	}
}
