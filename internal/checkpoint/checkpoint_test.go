package checkpoint

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func gitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("first\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", "-A")
	run("commit", "-m", "initial")
	return dir
}

func TestSaveAndRestore(t *testing.T) {
	if !gitAvailable() {
		t.Skip("git not available")
	}
	dir := initRepo(t)
	m := NewManager(dir)

	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("second\n"), 0644)

	cp, err := m.Save("before-edit", 3)
	if err != nil {
		t.Fatal(err)
	}
	if cp == nil || cp.ID == "" {
		t.Fatal("expected a checkpoint")
	}
	if len(cp.ID) > 64 {
		t.Errorf("checkpoint id too long: %s", cp.ID)
	}

	// Working tree is undisturbed by Save.
	data, _ := os.ReadFile(path)
	if string(data) != "second\n" {
		t.Errorf("save disturbed the tree: %q", data)
	}

	// Diverge, then restore.
	os.WriteFile(path, []byte("third\n"), 0644)
	if _, err := m.Restore(cp.ID); err != nil {
		t.Fatal(err)
	}

	data, _ = os.ReadFile(path)
	if string(data) != "second\n" {
		t.Errorf("restore = %q, want saved state", data)
	}
}

func TestSaveNoChanges(t *testing.T) {
	if !gitAvailable() {
		t.Skip("git not available")
	}
	dir := initRepo(t)
	m := NewManager(dir)

	cp, err := m.Save("clean", 0)
	if err != nil {
		t.Fatal(err)
	}
	if cp != nil {
		t.Error("clean tree should save nothing")
	}
}

func TestSaveOutsideRepo(t *testing.T) {
	if !gitAvailable() {
		t.Skip("git not available")
	}
	m := NewManager(t.TempDir())
	if _, err := m.Save("x", 0); err == nil {
		t.Error("non-repo save must error")
	}
}

func TestRestoreUnknownCheckpoint(t *testing.T) {
	if !gitAvailable() {
		t.Skip("git not available")
	}
	dir := initRepo(t)
	m := NewManager(dir)
	if _, err := m.Restore("cp-missing"); err == nil {
		t.Error("unknown checkpoint must error")
	}
}

func TestFormatList(t *testing.T) {
	m := NewManager(t.TempDir())
	if got := m.FormatList(); got != "No checkpoints saved." {
		t.Errorf("empty list = %q", got)
	}
}

func TestEnsureGitignore(t *testing.T) {
	dir := t.TempDir()
	if err := ensureGitignore(dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil || !strings.Contains(string(data), ".nyzhi/") {
		t.Errorf("gitignore = %q (%v)", data, err)
	}

	// Idempotent.
	if err := ensureGitignore(dir); err != nil {
		t.Fatal(err)
	}
	data2, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if string(data2) != string(data) {
		t.Error("second call must not duplicate the entry")
	}
}

func TestGenerateName(t *testing.T) {
	name := generateName()
	if !strings.Contains(name, "-") {
		t.Errorf("name = %q, want adjective-noun", name)
	}
}
