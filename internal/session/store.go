// Package session persists conversation threads to disk so sessions can be
// resumed across runs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyzhi-com/nyzhi/internal/thread"
)

// RetentionDays is how long sessions are kept before cleanup.
const RetentionDays = 30

// Metadata describes one stored session.
type Metadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Session is the stored unit: metadata plus the full thread.
type Session struct {
	Metadata Metadata       `json:"metadata"`
	Thread   *thread.Thread `json:"thread"`
}

// Store manages session file storage.
type Store struct {
	mu      sync.RWMutex
	baseDir string
}

// NewStore creates a store under ~/.nyzhi/sessions.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStoreAt(filepath.Join(homeDir, ".nyzhi", "sessions"))
}

// NewStoreAt creates a store at an explicit directory (tests).
func NewStoreAt(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save writes a session to disk, assigning an id on first save.
func (s *Store) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.Metadata.ID == "" {
		session.Metadata.ID = uuid.NewString()
	}
	if session.Metadata.CreatedAt.IsZero() {
		session.Metadata.CreatedAt = time.Now()
	}
	session.Metadata.UpdatedAt = time.Now()
	if session.Thread != nil {
		session.Metadata.MessageCount = session.Thread.Len()
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := filepath.Join(s.baseDir, session.Metadata.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a session from disk by id.
func (s *Store) Load(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

// List returns all session metadata, newest first.
func (s *Store) List() ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		session, err := s.loadLocked(id)
		if err != nil {
			continue // skip invalid session files
		}
		sessions = append(sessions, session.Metadata)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Latest returns the most recently updated session.
func (s *Store) Latest() (*Session, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions found")
	}
	return s.Load(sessions[0].ID)
}

// Delete removes a session file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, id+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Cleanup removes sessions older than RetentionDays.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sessions directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		session, err := s.loadLocked(id)
		if err != nil {
			continue
		}
		if session.Metadata.UpdatedAt.Before(cutoff) {
			_ = os.Remove(filepath.Join(s.baseDir, entry.Name()))
		}
	}
	return nil
}
