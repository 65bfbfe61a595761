package tool

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileChange is the pre-image/post-image pair captured for a file mutation.
// A nil Original means the file did not exist; undo deletes it.
type FileChange struct {
	Path       string
	Original   *string
	NewContent string
	ToolName   string
	Timestamp  time.Time
}

// ChangeTracker records file mutations as a LIFO stack so they can be
// undone. One tracker exists per agent context; it is not shared.
type ChangeTracker struct {
	mu      sync.Mutex
	changes []FileChange
}

// NewChangeTracker creates an empty tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{}
}

// Record pushes a change. Tools call this before returning, with the
// pre-image captured before the write.
func (t *ChangeTracker) Record(change FileChange) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = append(t.changes, change)
}

// ChangedFiles returns the distinct changed paths, sorted.
func (t *ChangeTracker) ChangedFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool, len(t.changes))
	var paths []string
	for _, c := range t.changes {
		if !seen[c.Path] {
			seen[c.Path] = true
			paths = append(paths, c.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of recorded changes.
func (t *ChangeTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.changes)
}

// Last returns the most recent change without removing it.
func (t *ChangeTracker) Last() (FileChange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.changes) == 0 {
		return FileChange{}, false
	}
	return t.changes[len(t.changes)-1], true
}

// UndoLast pops the most recent change and restores the file to its
// original state. Returns false when the stack is empty.
func (t *ChangeTracker) UndoLast() (FileChange, bool, error) {
	t.mu.Lock()
	if len(t.changes) == 0 {
		t.mu.Unlock()
		return FileChange{}, false, nil
	}
	change := t.changes[len(t.changes)-1]
	t.changes = t.changes[:len(t.changes)-1]
	t.mu.Unlock()

	if err := restore(change); err != nil {
		return change, true, err
	}
	return change, true, nil
}

// UndoAll undoes every change in reverse order, leaving the filesystem in
// the state that existed before any tracked change.
func (t *ChangeTracker) UndoAll() ([]FileChange, error) {
	var reverted []FileChange
	for {
		change, ok, err := t.UndoLast()
		if err != nil {
			return reverted, err
		}
		if !ok {
			return reverted, nil
		}
		reverted = append(reverted, change)
	}
}

func restore(change FileChange) error {
	if change.Original != nil {
		if err := os.MkdirAll(filepath.Dir(change.Path), 0755); err != nil {
			return err
		}
		return os.WriteFile(change.Path, []byte(*change.Original), 0644)
	}
	// File was created by the tool; remove it.
	if _, err := os.Stat(change.Path); err == nil {
		return os.Remove(change.Path)
	}
	return nil
}
